package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesen/conceptmap/internal/viewer"
	"github.com/wesen/conceptmap/pkg/interact"
	"github.com/wesen/conceptmap/pkg/scene"
	"github.com/wesen/conceptmap/pkg/sceneid"
)

func inspectCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <diagram>",
		Short: "Report how rendered elements map back to nodes and edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := e.logger(false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			d, err := loadDiagram(args[0])
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
			v := viewer.New(r, vopts, interact.Handlers{}, log)
			defer v.Close()
			if err := v.Render(cmd.Context(), d); err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), v, vopts.Resolver)
		},
	}
}

// writeReport prints the resolution of v's scene: every tracked id with the
// rule that matched it, ambiguous elements, drift and adjacency.
func writeReport(w io.Writer, v *viewer.Viewer, res *sceneid.Resolver) error {
	d := v.Diagram()
	cat := v.Catalog()
	if cat == nil {
		return errors.New("no scene")
	}
	name := d.Title
	if name == "" {
		name = d.Source
	}
	fmt.Fprintf(w, "%s %s\n\n", brand.Sprint("conceptmap"), name)

	section(w, "NODES", len(cat.NodeIDs()))
	for _, id := range cat.NodeIDs() {
		label := id
		if n, ok := d.Node(id); ok {
			label = n.Label()
		}
		fmt.Fprintf(w, "  %-16s %-24s %s\n", id, label,
			subtle.Sprintf("%s ×%d", strategies(res, cat.Nodes(id), sceneid.KindNode), len(cat.Nodes(id))))
	}
	fmt.Fprintln(w)

	section(w, "EDGES", len(cat.EdgeIDs()))
	adj := v.Adjacency()
	for _, id := range cat.EdgeIDs() {
		ends := "?"
		if e, ok := adj.Endpoints(id); ok {
			ends = e.From + " → " + e.To
		}
		fmt.Fprintf(w, "  %-16s %-24s %s\n", id, ends,
			subtle.Sprintf("%s ×%d", strategies(res, cat.Edges(id), sceneid.KindEdge), len(cat.Edges(id))))
	}
	fmt.Fprintln(w)

	if cs := cat.Conflicts(); len(cs) > 0 {
		section(w, "AMBIGUOUS", len(cs))
		for _, c := range cs {
			fmt.Fprintf(w, "  %s %s chose %q over %s\n", warn.Sprint("!"), c.Kind, c.Chosen, strings.Join(c.Others, ", "))
		}
		fmt.Fprintln(w)
	}

	edgeIDs := make([]string, len(d.Edges))
	for i, e := range d.Edges {
		edgeIDs[i] = e.ID
	}
	drift := cat.Drift(d.NodeIDs(), edgeIDs)
	if drift.Empty() {
		fmt.Fprintf(w, "%s scene matches the diagram\n\n", good.Sprint("✓"))
	} else {
		driftLine(w, "nodes missing from scene", drift.MissingNodes)
		driftLine(w, "unknown scene nodes", drift.UnknownNodes)
		driftLine(w, "edges missing from scene", drift.MissingEdges)
		driftLine(w, "unknown scene edges", drift.UnknownEdges)
		fmt.Fprintln(w)
	}

	section(w, "NEIGHBOURS", len(d.Nodes))
	for _, n := range d.Nodes {
		ns := adj.Neighbors(n.ID)
		list := subtle.Sprint("(isolated)")
		if len(ns) > 0 {
			list = strings.Join(ns, ", ")
		}
		fmt.Fprintf(w, "  %-16s %s\n", n.ID, list)
	}
	return nil
}

func section(w io.Writer, title string, n int) {
	fmt.Fprintf(w, "%s %s\n", brand.Sprint(title), subtle.Sprintf("(%d)", n))
}

func driftLine(w io.Writer, what string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "%s %s: %s\n", warn.Sprint("!"), what, strings.Join(ids, ", "))
}

// strategies lists the distinct rules that resolved els.
func strategies(res *sceneid.Resolver, els []*scene.Element, kind sceneid.Kind) string {
	var out []string
	for _, el := range els {
		m, _ := res.Resolve(el, kind)
		s := m.Strategy.String()
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return strings.Join(out, ",")
}
