package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/viewer"
)

const (
	controlsPanelWidth = float32(280)
	statusBarHeight    = float32(30)
)

var (
	colorError   = imgui.NewVec4(1, 0.4, 0.4, 1)
	colorLoading = imgui.NewVec4(1, 0.8, 0, 1)
	colorReady   = imgui.NewVec4(0.4, 0.8, 0.4, 1)
)

func (app *App) renderLayout(texID uint32) {
	if imgui.BeginMainMenuBar() {
		if imgui.BeginMenu("File") {
			if imgui.MenuItemBool("Open Model...") {
				app.openFileDialog()
			}
			if imgui.MenuItemBool("Capture Frame") {
				app.captureRequested = true
			}
			imgui.Separator()
			if imgui.MenuItemBool("Exit") {
				app.quit(os.Exit)
			}
			imgui.EndMenu()
		}
		imgui.EndMainMenuBar()
	}

	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()
	contentHeight := workSize.Y - statusBarHeight

	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(workPos)
	imgui.SetNextWindowSize(imgui.NewVec2(controlsPanelWidth, contentHeight))
	if imgui.BeginV("Controls", nil, flags) {
		app.renderModelSelector()
		imgui.Separator()
		app.renderTransformControls()
		imgui.Separator()
		app.renderCaptureControls()
		imgui.Separator()
		app.renderModelInfo()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+controlsPanelWidth, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X-controlsPanelWidth, contentHeight))
	if imgui.BeginV("Viewport", nil, flags|imgui.WindowFlagsNoScrollbar) {
		app.renderViewport(texID)
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X, workPos.Y+contentHeight))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X, statusBarHeight))
	statusFlags := flags | imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoScrollbar
	if imgui.BeginV("##StatusBar", nil, statusFlags) {
		app.renderStatusBar()
	}
	imgui.End()

	if app.notice != "" && time.Since(app.noticeTime) < notificationDuration {
		notifyFlags := imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoResize |
			imgui.WindowFlagsNoMove | imgui.WindowFlagsNoScrollbar |
			imgui.WindowFlagsAlwaysAutoResize | imgui.WindowFlagsNoFocusOnAppearing
		imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+controlsPanelWidth+10, workPos.Y+10))
		imgui.SetNextWindowBgAlpha(0.85)
		if imgui.BeginV("##Notify", nil, notifyFlags) {
			imgui.Text(app.notice)
		}
		imgui.End()
	} else {
		app.notice = ""
	}
}

func (app *App) renderModelSelector() {
	imgui.Text("Model")

	preview := "Select a model"
	if app.selected >= 0 && app.selected < len(app.models) {
		preview = app.models[app.selected].Name
	}

	imgui.SetNextItemWidth(-1)
	if imgui.BeginCombo("##model", preview) {
		for i, m := range app.models {
			isSelected := i == app.selected
			if imgui.SelectableBoolV(m.Name, isSelected, 0, imgui.NewVec2(0, 0)) && !isSelected {
				app.Select(m.URL)
			}
			if isSelected {
				imgui.SetItemDefaultFocus()
			}
		}
		imgui.EndCombo()
	}

	if imgui.ButtonV("Open...", imgui.NewVec2(-1, 0)) {
		app.openFileDialog()
	}
}

func (app *App) renderTransformControls() {
	t := app.ctrl.Transform()
	step := app.cfg.Viewer.RotationStep

	imgui.Text("Rotation")
	buttonW := (imgui.ContentRegionAvail().X - 40) / 2
	for _, axis := range []viewer.Axis{viewer.AxisX, viewer.AxisY, viewer.AxisZ} {
		name := axis.String()
		imgui.Text(name)
		imgui.SameLine()
		if imgui.ButtonV(fmt.Sprintf("-##rot%s", name), imgui.NewVec2(buttonW, 0)) {
			app.ctrl.AdjustRotation(axis, -step)
		}
		imgui.SameLine()
		if imgui.ButtonV(fmt.Sprintf("+##rot%s", name), imgui.NewVec2(buttonW, 0)) {
			app.ctrl.AdjustRotation(axis, step)
		}
	}
	imgui.TextDisabled(fmt.Sprintf("%.1f, %.1f, %.1f deg",
		degrees(t.Rotation[0]), degrees(t.Rotation[1]), degrees(t.Rotation[2])))

	imgui.Spacing()
	imgui.Text(fmt.Sprintf("Scale: %.2f", t.Scale))
	scaleStep := app.cfg.Viewer.ScaleStep
	imgui.BeginDisabledV(t.Scale <= app.cfg.Viewer.MinScale)
	if imgui.ButtonV("Smaller", imgui.NewVec2(buttonW+20, 0)) {
		app.ctrl.AdjustScale(-scaleStep)
	}
	imgui.EndDisabled()
	imgui.SameLine()
	if imgui.ButtonV("Larger", imgui.NewVec2(buttonW+20, 0)) {
		app.ctrl.AdjustScale(scaleStep)
	}
}

func (app *App) renderCaptureControls() {
	imgui.BeginDisabledV(app.ctrl.State() != viewer.StateReady)
	if imgui.ButtonV("Capture Frame (F12)", imgui.NewVec2(-1, 0)) {
		app.captureRequested = true
	}
	imgui.EndDisabled()
}

func (app *App) renderModelInfo() {
	switch app.ctrl.State() {
	case viewer.StateUnloaded:
		imgui.TextDisabled("No model selected")
	case viewer.StateLoading:
		imgui.TextColored(colorLoading, "Loading...")
	case viewer.StateErrored:
		imgui.TextColored(colorError, "Failed to load model")
		if err := app.ctrl.Err(); err != nil {
			imgui.TextWrapped(err.Error())
		}
	case viewer.StateReady:
		node := app.ctrl.Node()
		imgui.TextColored(colorReady, "Ready")
		imgui.Text(fmt.Sprintf("Meshes: %d", node.MeshCount()))
		imgui.Text(fmt.Sprintf("Triangles: %d", node.TriangleCount()))
		size := node.Bounds().Size()
		imgui.Text(fmt.Sprintf("Size: %.2f x %.2f x %.2f", size[0], size[1], size[2]))
	}
}

func (app *App) renderViewport(texID uint32) {
	avail := imgui.ContentRegionAvail()
	avail.Y -= imgui.FrameHeightWithSpacing()
	if avail.X <= 0 || avail.Y <= 0 {
		return
	}

	fbW, fbH := app.renderer.Size()
	aspect := float32(fbW) / float32(fbH)
	displayW, displayH := avail.X, avail.X/aspect
	if displayH > avail.Y {
		displayH = avail.Y
		displayW = displayH * aspect
	}

	startX := imgui.CursorPosX()
	if displayW < avail.X {
		imgui.SetCursorPosX(startX + (avail.X-displayW)/2)
	}

	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(texID))
	imgui.ImageWithBgV(
		*texRef,
		imgui.NewVec2(displayW, displayH),
		imgui.NewVec2(0, 1), // GL textures are bottom-up
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0, 0, 0, 1),
		imgui.NewVec4(1, 1, 1, 1),
	)

	if imgui.IsItemHovered() {
		mousePos := imgui.MousePos()
		if imgui.IsMouseDragging(imgui.MouseButtonLeft) {
			app.renderer.HandleMouseDrag(mousePos.X-app.lastMousePos.X, mousePos.Y-app.lastMousePos.Y)
		}
		app.lastMousePos = mousePos

		if wheel := imgui.CurrentIO().MouseWheel(); wheel != 0 {
			app.renderer.HandleMouseWheel(wheel)
		}
	}

	if imgui.Button("Reset View") {
		app.renderer.ResetView()
	}
	imgui.SameLine()
	imgui.TextDisabled("(Drag to orbit, scroll to zoom, arrows/PgUp/PgDn rotate, +/- scale)")
}

func (app *App) renderStatusBar() {
	sel := app.ctrl.Selection()
	if sel == "" {
		imgui.Text("No model selected")
		return
	}
	imgui.Text(fmt.Sprintf("%s | %s | %s", app.ctrl.State(), sel, app.ctrl.Transform()))
}

// openFileDialog shows a native open dialog. The dialog blocks, so it runs in a
// goroutine and hands the path back through pendingOpen.
func (app *App) openFileDialog() {
	go func() {
		filename, err := dialog.File().
			Filter("3D Models", "glb", "gltf", "stl", "obj").
			Filter("All Files", "*").
			Title("Open Model").
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				app.log.Error("file dialog failed", zap.Error(err))
			}
			return
		}
		app.pendingOpen <- filename
	}()
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
