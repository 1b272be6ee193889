package graphmodel

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dlclark/regexp2"
)

// Flowchart text is a small subset of the mermaid flowchart grammar:
//
//	flowchart LR
//	  A[Photosynthesis] -->|produces| B(Glucose)
//	  B e7@--> C
//	  C -- stored as --> D{Starch}
//
// Node ids are word characters, dots and colons. Shapes only carry the
// title. Styling statements (classDef, class, style, linkStyle, click) and
// subgraph markers are accepted and ignored.
var (
	termRe = regexp2.MustCompile(
		`^\s*(?<id>[A-Za-z0-9_][A-Za-z0-9_.:]*)`+
			`(?:(?<open>\[\[|\[\(|\(\(|\(\[|\{\{|\[|\(|\{|>)(?<title>.*?)(?<close>\]\]|\)\]|\)\)|\]\)|\}\}|\]|\)|\}))?`,
		regexp2.None)
	arrowRe = regexp2.MustCompile(
		`^\s*(?:(?<eid>[A-Za-z0-9_]+)@)?`+
			`(?:--\s*(?<inline>[^\s\-|>][^>]*?)\s*-->|(?<arrow>-\.->|-->|---|==>|===|-\.-))`+
			`\s*(?:\|(?<rel>[^|]*)\|)?`,
		regexp2.None)
	headerRe = regexp2.MustCompile(`^(?:flowchart|graph)(?:\s+(?<dir>TD|TB|LR|BT|RL))?\s*;?$`, regexp2.IgnoreCase)
)

var ignoredStatements = []string{"classDef ", "class ", "style ", "linkStyle ", "click ", "subgraph", "direction "}

// ParseFlowchart reads flowchart text. Edge ids are assigned with
// Normalize and the result is validated.
func ParseFlowchart(r io.Reader) (Diagram, error) {
	var d Diagram
	seen := map[string]int{}

	declare := func(id, title string) {
		if i, ok := seen[id]; ok {
			if title != "" {
				d.Nodes[i].Title = title
			}
			return
		}
		seen[id] = len(d.Nodes)
		d.Nodes = append(d.Nodes, Node{ID: id, Title: title})
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "%%"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || line == "end" || hasAnyPrefix(line, ignoredStatements) {
			continue
		}
		if m, _ := headerRe.FindStringMatch(line); m != nil {
			dir := strings.ToUpper(m.GroupByName("dir").String())
			switch dir {
			case "", "TD", "TB":
				d.Direction = "TD"
			default:
				d.Direction = dir
			}
			continue
		}

		for _, stmt := range strings.Split(line, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if err := parseStatement(stmt, declare, &d); err != nil {
				return Diagram{}, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Diagram{}, fmt.Errorf("read flowchart: %w", err)
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return Diagram{}, err
	}
	return d, nil
}

// parseStatement handles one node declaration or edge chain
// ("A --> B --> C").
func parseStatement(stmt string, declare func(id, title string), d *Diagram) error {
	rest := stmt
	from, rest, err := parseTerm(rest)
	if err != nil {
		return err
	}
	declare(from.ID, from.Title)
	for strings.TrimSpace(rest) != "" {
		m, _ := arrowRe.FindStringMatch(rest)
		if m == nil {
			return fmt.Errorf("expected arrow near %q", strings.TrimSpace(rest))
		}
		rest = rest[len(m.String()):]
		rel := strings.TrimSpace(m.GroupByName("rel").String())
		if rel == "" {
			rel = strings.TrimSpace(m.GroupByName("inline").String())
		}
		eid := m.GroupByName("eid").String()

		var to Node
		to, rest, err = parseTerm(rest)
		if err != nil {
			return err
		}
		declare(to.ID, to.Title)
		d.Edges = append(d.Edges, Edge{ID: eid, From: from.ID, To: to.ID, Relationship: unquote(rel)})
		from = to
	}
	return nil
}

func parseTerm(s string) (Node, string, error) {
	m, _ := termRe.FindStringMatch(s)
	if m == nil {
		return Node{}, s, fmt.Errorf("expected node near %q", strings.TrimSpace(s))
	}
	id := m.GroupByName("id").String()
	// An id directly followed by "@" belongs to an edge, not a node.
	if !bracketed(m) {
		if tail := s[len(m.String()):]; strings.HasPrefix(tail, "@") {
			return Node{}, s, fmt.Errorf("edge id %q without source node", id)
		}
	}
	n := Node{ID: id, Title: unquote(strings.TrimSpace(m.GroupByName("title").String()))}
	return n, s[len(m.String()):], nil
}

func bracketed(m *regexp2.Match) bool {
	return m.GroupByName("open").Length > 0
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
