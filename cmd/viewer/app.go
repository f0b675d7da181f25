package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/config"
	"github.com/Faultbox/model-viewer/internal/loader"
	"github.com/Faultbox/model-viewer/internal/logger"
	"github.com/Faultbox/model-viewer/internal/render"
	"github.com/Faultbox/model-viewer/internal/viewer"
)

// notificationDuration is how long the overlay message stays visible.
const notificationDuration = 2 * time.Second

// App is the desktop viewer: window, UI state, controller and renderer.
type App struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]

	cfg      *config.Config
	log      *zap.Logger
	ctrl     *viewer.Controller
	renderer *render.Renderer

	// Selector entries; opened files are appended.
	models   []config.ModelEntry
	selected int

	// Results of native dialogs, which run off the main thread.
	pendingOpen chan string
	notices     chan string

	captureRequested bool

	notice     string
	noticeTime time.Time

	lastMousePos imgui.Vec2
}

// NewApp creates the window, GL renderer and viewer controller.
func NewApp(cfg *config.Config) (*App, error) {
	defaultColor, err := config.ParseColor(cfg.Viewer.DefaultColor)
	if err != nil {
		return nil, fmt.Errorf("default color: %w", err)
	}
	background, err := config.ParseColor(cfg.Viewer.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	app := &App{
		cfg:         cfg,
		log:         logger.Named("app"),
		models:      append([]config.ModelEntry(nil), cfg.Models...),
		selected:    -1,
		pendingOpen: make(chan string, 1),
		notices:     make(chan string, 4),
	}

	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("creating backend: %w", err)
	}
	app.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	app.backend.CreateWindow(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	app.renderer, err = render.New(int32(cfg.Window.ViewportWidth), int32(cfg.Window.ViewportHeight), render.Options{
		Background: background,
		Logger:     logger.Named("render"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	transport := loader.Transport{
		File: loader.FileFetcher{BaseDir: cfg.Fetch.BaseDir},
		HTTP: loader.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent),
	}
	l := loader.New(transport,
		loader.WithLogger(logger.Named("loader")),
		loader.WithDefaultColor(defaultColor))

	app.ctrl = viewer.NewController(l,
		viewer.WithLogger(logger.Named("viewer")),
		viewer.WithMinScale(cfg.Viewer.MinScale))
	app.ctrl.AttachSurface(app.renderer)

	return app, nil
}

// Run starts the main loop. It returns when the window closes.
func (app *App) Run() {
	app.backend.Run(app.frame)
}

// Close releases the controller and GL resources.
func (app *App) Close() {
	if app.ctrl != nil {
		app.ctrl.Close()
	}
	if app.renderer != nil {
		app.renderer.Destroy()
		app.renderer = nil
	}
}

// quit releases resources and flushes the log, then calls exit. exit skips
// deferred calls in main.
func (app *App) quit(exit func(int)) {
	app.Close()
	logger.Sync()
	exit(0)
}

// Select makes ref the active model, updating the selector when ref is in it.
func (app *App) Select(ref string) {
	app.selected = -1
	for i, m := range app.models {
		if m.URL == ref {
			app.selected = i
			break
		}
	}
	if app.selected < 0 {
		app.models = append(app.models, config.ModelEntry{Name: filepath.Base(ref), URL: ref})
		app.selected = len(app.models) - 1
	}

	app.ctrl.SelectModel(ref)
	app.backend.SetWindowTitle(fmt.Sprintf("%s - %s", app.cfg.Window.Title, app.models[app.selected].Name))
}

// frame runs once per rendered frame on the main thread.
func (app *App) frame() {
	app.drainPending()

	// No-op while the node is unchanged; a new selection clears it before its load lands.
	app.ctrl.Update()
	app.renderer.SetNode(app.ctrl.Node())

	app.handleShortcuts()

	// Draw before capturing so the framebuffer holds this frame's transform.
	texID := app.renderer.Render(app.ctrl.ModelMatrix())
	if app.captureRequested {
		app.captureRequested = false
		app.captureFrame()
	}

	app.renderLayout(texID)
}

func (app *App) drainPending() {
	for {
		select {
		case path := <-app.pendingOpen:
			app.Select(path)
		case msg := <-app.notices:
			app.showNotification(msg)
		default:
			return
		}
	}
}

func (app *App) handleShortcuts() {
	if imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF12)) {
		app.captureRequested = true
	}
	if imgui.IsAnyItemActive() {
		return
	}

	step := app.cfg.Viewer.RotationStep
	pressed := func(keys ...imgui.Key) bool {
		for _, k := range keys {
			if imgui.IsKeyChordPressed(imgui.KeyChord(k)) {
				return true
			}
		}
		return false
	}

	switch {
	case pressed(imgui.KeyUpArrow):
		app.ctrl.AdjustRotation(viewer.AxisX, -step)
	case pressed(imgui.KeyDownArrow):
		app.ctrl.AdjustRotation(viewer.AxisX, step)
	case pressed(imgui.KeyLeftArrow):
		app.ctrl.AdjustRotation(viewer.AxisY, -step)
	case pressed(imgui.KeyRightArrow):
		app.ctrl.AdjustRotation(viewer.AxisY, step)
	case pressed(imgui.KeyPageUp):
		app.ctrl.AdjustRotation(viewer.AxisZ, step)
	case pressed(imgui.KeyPageDown):
		app.ctrl.AdjustRotation(viewer.AxisZ, -step)
	case pressed(imgui.KeyEqual, imgui.KeyKeypadAdd):
		app.ctrl.AdjustScale(app.cfg.Viewer.ScaleStep)
	case pressed(imgui.KeyMinus, imgui.KeyKeypadSubtract):
		app.ctrl.AdjustScale(-app.cfg.Viewer.ScaleStep)
	case pressed(imgui.KeyR):
		app.renderer.ResetView()
	}
}

func (app *App) showNotification(msg string) {
	app.notice = msg
	app.noticeTime = time.Now()
}

// notify queues a message from any goroutine.
func (app *App) notify(msg string) {
	select {
	case app.notices <- msg:
	default:
		app.log.Warn("dropped notification", zap.String("msg", msg))
	}
}
