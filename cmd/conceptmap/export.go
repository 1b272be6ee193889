package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/interact"
	"github.com/wesen/conceptmap/pkg/overlay"
	"github.com/wesen/conceptmap/pkg/scene"
)

// exportJob is one diagram to write as SVG.
type exportJob struct {
	In, Out string
	Active  string
	Hovered string
}

type exportResult struct {
	Job     exportJob
	Err     error
	Tracked int
	Elapsed time.Duration
}

func exportCmd(e *env) *cobra.Command {
	var (
		outDir  string
		active  string
		hovered string
		jobs    int
	)
	cmd := &cobra.Command{
		Use:   "export <diagram>...",
		Short: "Render diagrams with their node states to SVG",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := e.logger(false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

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
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("output directory: %w", err)
			}

			var list []exportJob
			for _, in := range args {
				list = append(list, exportJob{In: in, Out: outputPath(outDir, in), Active: active, Hovered: hovered})
			}

			brand.Printf("exporting %d diagram(s)\n", len(list))
			results := runExports(cmd.Context(), list, jobs, func(ctx context.Context, j exportJob) (int, error) {
				return exportOne(ctx, r, vopts, states, j, log)
			})

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Printf("  %s %s %s\n", bad.Sprint("✗"), res.Job.In, bad.Sprintf("(%v)", res.Err))
					continue
				}
				fmt.Printf("  %s %s → %s %s\n", good.Sprint("✓"), res.Job.In, res.Job.Out,
					subtle.Sprintf("%d elements, %.2fs", res.Tracked, res.Elapsed.Seconds()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d exports failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&active, "active", "", "node id to mark active")
	cmd.Flags().StringVar(&hovered, "hover", "", "node id to highlight as hovered")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "diagrams rendered at once")
	return cmd
}

// outputPath names the SVG for a diagram file.
func outputPath(dir, in string) string {
	if in == "-" {
		return filepath.Join(dir, "stdin.svg")
	}
	base := filepath.Base(in)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".svg")
}

// runExports runs fn over jobs with at most limit at once. Results keep the
// order of jobs; a failing job does not stop the others.
func runExports(ctx context.Context, jobs []exportJob, limit int, fn func(context.Context, exportJob) (int, error)) []exportResult {
	if limit < 1 {
		limit = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]exportResult, len(jobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, j := range jobs {
		g.Go(func() error {
			start := time.Now()
			n, err := fn(gctx, j)
			mu.Lock()
			results[i] = exportResult{Job: j, Err: err, Tracked: n, Elapsed: time.Since(start)}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// exportOne renders one diagram through a fresh viewer, applies node state
// and the requested selection, and writes the scene.
func exportOne(ctx context.Context, r viewer.Renderer, vopts viewer.Options, states overlay.StateMap, j exportJob, log *zap.Logger) (int, error) {
	d, err := loadDiagram(j.In)
	if err != nil {
		return 0, err
	}
	v := viewer.New(r, vopts, interact.Handlers{}, log.With(zap.String("diagram", j.In)))
	defer v.Close()

	v.SetNodeStates(states)
	if err := v.Render(ctx, d); err != nil {
		return 0, err
	}
	if j.Active != "" {
		if _, ok := d.Node(j.Active); !ok {
			return 0, fmt.Errorf("--active: unknown node %q", j.Active)
		}
		v.SetActive(j.Active)
	}
	if j.Hovered != "" {
		if _, ok := d.Node(j.Hovered); !ok {
			return 0, fmt.Errorf("--hover: unknown node %q", j.Hovered)
		}
		v.SetHovered(j.Hovered)
	}

	f, err := os.Create(j.Out)
	if err != nil {
		return 0, err
	}
	if err := scene.EncodeSVG(f, v.Scene()); err != nil {
		f.Close()
		return 0, fmt.Errorf("write %s: %w", j.Out, err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return v.Catalog().Len(), nil
}
