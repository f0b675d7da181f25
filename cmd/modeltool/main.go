// modeltool inspects model files from the command line using the viewer's loader.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/config"
	"github.com/Faultbox/model-viewer/internal/loader"
	"github.com/Faultbox/model-viewer/internal/logger"
	"github.com/Faultbox/model-viewer/internal/scene"
)

// options are the persistent flags shared by every command.
type options struct {
	configFile string
	debug      bool
	jsonOut    bool
	timeout    time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "modeltool",
		Short:        "inspect 3D model files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.debug {
				level = "debug"
			}
			return logger.Init(logger.Options{Level: level, Console: cmd.ErrOrStderr()})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	formatsCmd := &cobra.Command{
		Use:   "formats",
		Short: "list supported file suffixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFormats(cmd.OutOrStdout())
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "list the configured model catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(&config.Flags{Config: opts.configFile})
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), cfg)
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [reference]",
		Short: "load a model and print its structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts, args[0])
		},
	}
	inspectCmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print a JSON summary")
	inspectCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "overall load timeout (0 uses the fetch timeout)")

	rootCmd.AddCommand(formatsCmd, catalogCmd, inspectCmd)
	return rootCmd
}

func printFormats(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUFFIX\tFORMAT")
	for _, s := range loader.SupportedSuffixes() {
		tag, err := loader.FormatOf("model." + s)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, ".%s\t%s\n", s, tag)
	}
	return w.Flush()
}

func printCatalog(out io.Writer, cfg *config.Config) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFORMAT\tREFERENCE")
	for _, m := range cfg.Models {
		format := "unsupported"
		if tag, err := loader.FormatOf(m.URL); err == nil {
			format = tag.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, format, m.URL)
	}
	return w.Flush()
}

func runInspect(cmd *cobra.Command, opts *options, ref string) error {
	cfg, err := config.Load(&config.Flags{Config: opts.configFile})
	if err != nil {
		return err
	}
	color, err := config.ParseColor(cfg.Viewer.DefaultColor)
	if err != nil {
		return err
	}

	l := loader.New(loader.Transport{
		File: loader.FileFetcher{BaseDir: cfg.Fetch.BaseDir},
		HTTP: loader.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent),
	}, loader.WithLogger(logger.Named("loader")), loader.WithDefaultColor(color))

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = cfg.Fetch.Timeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	start := time.Now()
	node, err := l.Load(ctx, ref)
	if err != nil {
		logger.Error("inspect failed", zap.String("ref", ref), zap.Error(err))
		return err
	}
	logger.Log.Debug("inspect loaded", zap.String("ref", ref), zap.Duration("elapsed", time.Since(start)))

	tag, _ := loader.FormatOf(ref)
	summary := summarize(ref, tag, node)

	if opts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(cmd.OutOrStdout(), summary, node)
	return nil
}

// Summary describes a loaded model.
type Summary struct {
	Reference string            `json:"reference"`
	Format    string            `json:"format"`
	Nodes     int               `json:"nodes"`
	Meshes    int               `json:"meshes"`
	Triangles int               `json:"triangles"`
	Min       [3]float32        `json:"bounds_min"`
	Max       [3]float32        `json:"bounds_max"`
	Materials []MaterialSummary `json:"materials"`
}

// MaterialSummary is one distinct material with its usage count.
type MaterialSummary struct {
	Name    string     `json:"name"`
	Color   [4]float32 `json:"color"`
	Default bool       `json:"default"`
	Meshes  int        `json:"meshes"`
}

func summarize(ref string, tag loader.FormatTag, node *scene.Node) Summary {
	s := Summary{
		Reference: ref,
		Format:    tag.String(),
		Meshes:    node.MeshCount(),
		Triangles: node.TriangleCount(),
		Materials: []MaterialSummary{},
	}
	b := node.Bounds()
	s.Min, s.Max = b.Min, b.Max

	index := map[scene.Material]int{}
	node.Walk(func(n *scene.Node, _ mgl32.Mat4) {
		s.Nodes++
		for _, m := range n.Meshes {
			i, ok := index[m.Material]
			if !ok {
				i = len(s.Materials)
				index[m.Material] = i
				s.Materials = append(s.Materials, MaterialSummary{
					Name:    m.Material.Name,
					Color:   m.Material.BaseColor,
					Default: m.Material.Default,
				})
			}
			s.Materials[i].Meshes++
		}
	})
	return s
}

func printSummary(out io.Writer, s Summary, node *scene.Node) {
	fmt.Fprintf(out, "Reference: %s\n", s.Reference)
	fmt.Fprintf(out, "Format:    %s\n", s.Format)
	fmt.Fprintf(out, "Nodes:     %d\n", s.Nodes)
	fmt.Fprintf(out, "Meshes:    %d\n", s.Meshes)
	fmt.Fprintf(out, "Triangles: %d\n", s.Triangles)
	fmt.Fprintf(out, "Bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
		s.Min[0], s.Min[1], s.Min[2], s.Max[0], s.Max[1], s.Max[2])

	fmt.Fprintln(out, "\nMaterials:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, m := range s.Materials {
		name := m.Name
		if name == "" {
			name = "(unnamed)"
		}
		if m.Default {
			name += " [default]"
		}
		fmt.Fprintf(w, "  %s\t#%02x%02x%02x\talpha %.2f\t%d meshes\n",
			name, to8(m.Color[0]), to8(m.Color[1]), to8(m.Color[2]), m.Color[3], m.Meshes)
	}
	w.Flush()

	fmt.Fprintln(out, "\nTree:")
	printTree(out, node, 1)
}

func printTree(out io.Writer, n *scene.Node, depth int) {
	name := n.Name
	if name == "" {
		name = "(node)"
	}
	tris := 0
	for _, m := range n.Meshes {
		tris += m.TriangleCount()
	}
	line := fmt.Sprintf("%s%s", strings.Repeat("  ", depth), name)
	if len(n.Meshes) > 0 {
		line += fmt.Sprintf(" [%d meshes, %d triangles]", len(n.Meshes), tris)
	}
	fmt.Fprintln(out, line)
	for _, c := range n.Children {
		printTree(out, c, depth+1)
	}
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
