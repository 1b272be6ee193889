package main

import (
	"errors"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesen/conceptmap/internal/tui"
	"github.com/wesen/conceptmap/pkg/graphmodel"
)

var errNoTerminal = errors.New("view needs an interactive terminal; try export")

func viewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "view <diagram>",
		Short: "Explore a diagram in the terminal",
		Long: "Render a diagram and explore it with the mouse and keyboard.\n" +
			"Hover a concept to highlight its neighbours, click to select,\n" +
			"scroll to zoom. Press ? for all keys.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fd := os.Stdout.Fd()
			if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
				return errNoTerminal
			}
			if args[0] == "-" {
				return errors.New("view reads a file; stdin belongs to the terminal")
			}

			log, err := e.logger(true)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			d, err := loadDiagram(args[0])
			if err != nil {
				return err
			}
			states, err := e.states()
			if err != nil {
				return err
			}
			r, err := e.renderer(log)
			if err != nil {
				return err
			}
			vopts, err := e.cfg.ViewerOptions()
			if err != nil {
				return err
			}

			path := args[0]
			m := tui.New(r, vopts, d, states, tui.Options{
				CellWidth:      e.cfg.TUI.CellWidth,
				CellHeight:     e.cfg.TUI.CellHeight,
				ResizeDebounce: e.cfg.ResizeDebounce(),
				StatesPath:     e.statesPath,
				Reload:         func() (graphmodel.Diagram, error) { return graphmodel.LoadFile(path) },
			}, log)
			defer m.Viewer().Close()

			log.Info("starting viewer", zap.String("diagram", path), zap.String("renderer", e.cfg.Renderer.Engine))
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
}
