package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesen/conceptmap/internal/config"
	"github.com/wesen/conceptmap/internal/d2render"
	"github.com/wesen/conceptmap/internal/jsrender"
	"github.com/wesen/conceptmap/internal/logging"
	"github.com/wesen/conceptmap/internal/nodestate"
	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/graphmodel"
	"github.com/wesen/conceptmap/pkg/overlay"
)

var version = "0.1.0"

// Output colors.
var (
	brand  = color.New(color.FgHiCyan, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
)

// env is what every subcommand shares: the flags of the root command and
// the configuration they resolve to.
type env struct {
	configPath string
	logFile    string
	logLevel   string
	engine     string
	statesPath string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:           "conceptmap",
		Short:         "Explore concept maps: hover, select, zoom",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
	}
	cmd.SetVersionTemplate("conceptmap {{ .Version }}\n")

	f := cmd.PersistentFlags()
	f.StringVar(&e.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	f.StringVar(&e.logFile, "log-file", "", "write logs to this file")
	f.StringVar(&e.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&e.engine, "renderer", "", "renderer engine: builtin or d2")
	f.StringVar(&e.statesPath, "states", "", "YAML file of node states (mastered, needs_review, has_annotation)")

	cmd.AddCommand(
		viewCmd(e),
		exportCmd(e),
		inspectCmd(e),
	)

	return cmd
}

// load reads the configuration and applies flag overrides.
func (e *env) load() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.engine != "" {
		cfg.Renderer.Engine = e.engine
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	if e.logFile != "" {
		cfg.Log.File = e.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// logger builds the zap logger. quiet discards logs unless a file is set.
func (e *env) logger(quiet bool) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:  e.cfg.Log.Level,
		Format: e.cfg.Log.Format,
		File:   e.cfg.Log.File,
		Quiet:  quiet,
	})
}

// renderer builds the configured renderer.
func (e *env) renderer(log *zap.Logger) (viewer.Renderer, error) {
	rc := e.cfg.Renderer
	switch rc.Engine {
	case config.EngineD2:
		r := d2render.New(rc.D2, log)
		if err := r.Available(); err != nil {
			return nil, err
		}
		return r, nil
	default:
		if rc.LayoutScript != "" {
			r, err := jsrender.NewFromFile(rc.LayoutScript, log)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
		return jsrender.New(jsrender.Options{}, log), nil
	}
}

// states reads the --states file, if any.
func (e *env) states() (overlay.StateMap, error) {
	if e.statesPath == "" {
		return overlay.StateMap{}, nil
	}
	return nodestate.Load(e.statesPath)
}

// loadDiagram reads a diagram file; "-" reads flowchart text from stdin.
func loadDiagram(path string) (graphmodel.Diagram, error) {
	if path != "-" {
		return graphmodel.LoadFile(path)
	}
	d, err := graphmodel.Decode(os.Stdin, graphmodel.FormatFlowchart)
	if err != nil {
		return graphmodel.Diagram{}, fmt.Errorf("stdin: %w", err)
	}
	d.Source = "-"
	return d, nil
}
