package keel

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type GraphInfo struct {
	Components []ComponentInfo

	// Missing lists required services no component provides.
	Missing []string
}

type ComponentInfo struct {
	Name         string
	Lifestyle    string
	State        State
	Live         int
	Dependencies []DependencyInfo
	Dependents   []string
}

// DependencyInfo is one edge of the graph. Target is a component name, or the
// name of the required service when no component provides it.
type DependencyInfo struct {
	Slot     string
	Target   string
	Optional bool
	Missing  bool
}

// GetHandler describes the component registered as name.
func (k *Kernel) GetHandler(name string) (HandlerInfo, error) {
	return k.internal.GetHandler(name)
}

// Handlers describes every component in registration order.
func (k *Kernel) Handlers() []HandlerInfo {
	return k.internal.Handlers()
}

// Graph is the static dependency graph of the current registrations.
func (k *Kernel) Graph() GraphInfo {
	g := k.internal.Graph()
	handlers := k.internal.Handlers()

	components := make([]ComponentInfo, 0, len(handlers))
	for _, h := range handlers {
		info := ComponentInfo{
			Name:       h.Name,
			Lifestyle:  h.Lifestyle,
			State:      h.State,
			Live:       h.Live,
			Dependents: g.GetDependents(h.Name),
		}
		if node, ok := g.GetNode(h.Name); ok {
			for _, e := range node.Edges {
				info.Dependencies = append(
					info.Dependencies, DependencyInfo{
						Slot:     e.Slot,
						Target:   e.To,
						Optional: e.Optional,
						Missing:  !g.HasNode(e.To),
					},
				)
			}
		}
		components = append(components, info)
	}

	return GraphInfo{Components: components, Missing: g.Missing()}
}

func (k *Kernel) PrintGraph() {
	k.FprintGraph(os.Stdout)
}

// FprintGraph writes one line per component: ● has live instances, ○ is
// valid and idle, ✗ is waiting for dependencies.
func (k *Kernel) FprintGraph(w io.Writer) {
	info := k.Graph()

	if len(info.Components) == 0 {
		_, _ = fmt.Fprintln(w, "(empty kernel)")
		return
	}

	for _, c := range info.Components {
		status := "○"
		switch {
		case c.State != Valid:
			status = "✗"
		case c.Live > 0:
			status = "●"
		}

		header := fmt.Sprintf("%s %s [%s]", status, c.Name, c.Lifestyle)
		if len(c.Dependencies) == 0 {
			_, _ = fmt.Fprintln(w, header)
			continue
		}

		deps := make([]string, len(c.Dependencies))
		for i, d := range c.Dependencies {
			deps[i] = d.Target
			if d.Missing {
				deps[i] += "?"
			}
		}
		_, _ = fmt.Fprintf(w, "%s ← %s\n", header, strings.Join(deps, ", "))
	}
}

func (k *Kernel) SprintGraph() string {
	var sb strings.Builder
	k.FprintGraph(&sb)
	return sb.String()
}

func (k *Kernel) PrintGraphDOT() {
	k.FprintGraphDOT(os.Stdout)
}

func (k *Kernel) FprintGraphDOT(w io.Writer) {
	info := k.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, c := range info.Components {
		style := ""
		switch {
		case c.State != Valid:
			style = ", style=dashed"
		case c.Live > 0:
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", c.Name, escapeLabel(c.Name), style)
	}
	for _, missing := range info.Missing {
		_, _ = fmt.Fprintf(w, "  %q [label=%q, shape=ellipse, color=red];\n", missing, escapeLabel(missing))
	}

	_, _ = fmt.Fprintln(w)

	for _, c := range info.Components {
		for _, d := range c.Dependencies {
			attrs := fmt.Sprintf("label=%q", d.Slot)
			if d.Optional {
				attrs += ", style=dashed"
			}
			_, _ = fmt.Fprintf(w, "  %q -> %q [%s];\n", c.Name, d.Target, attrs)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (k *Kernel) SprintGraphDOT() string {
	var sb strings.Builder
	k.FprintGraphDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
