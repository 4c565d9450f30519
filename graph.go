package minidi

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

type Graph struct {
	Nodes []ModuleNode
	Edges []ModuleEdge
}

type ModuleNode struct {
	Name         string
	Dependencies []string
	Constructor  string
	File         string
	Line         int
	Instantiated bool
}

type ModuleEdge struct {
	From     string
	To       string
	Position int
	Missing  bool
}

// Graph snapshots the declared dependency graph. Nodes are sorted by name; edges
// follow node order and then declared dependency order.
func (r *Registry) Graph() Graph {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	g := Graph{
		Nodes: make([]ModuleNode, 0, len(names)),
		Edges: make([]ModuleEdge, 0),
	}
	for _, name := range names {
		rec := r.modules[name]
		node := ModuleNode{
			Name:         name,
			Dependencies: append([]string(nil), rec.dependencies...),
			Instantiated: rec.hasInstance,
		}
		describeConstructor(rec.source, &node)
		g.Nodes = append(g.Nodes, node)

		for i, dep := range rec.dependencies {
			_, ok := r.modules[dep]
			g.Edges = append(g.Edges, ModuleEdge{From: name, To: dep, Position: i, Missing: !ok})
		}
	}

	return g
}

// GraphDOT renders the registry graph in DOT (Graphviz) format.
func (r *Registry) GraphDOT() string {
	return r.Graph().DOT()
}

// Validate checks, without running any constructor, that every declared
// dependency is registered, every module has a constructor and the graph has no
// cycles. All problems are returned joined.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		rec := r.modules[name]
		if rec.constructor == nil {
			errs = append(errs, &ConstructorMissingError{Name: name})
		}
		for _, dep := range rec.dependencies {
			if _, ok := r.modules[dep]; !ok {
				errs = append(errs, fmt.Errorf("resolve %s: %w", name, &ModuleNotRegisteredError{Name: dep}))
			}
		}
	}

	state := map[string]visitState{}
	for _, name := range names {
		if state[name] != unvisited {
			continue
		}
		if path := findCycle(r.modules, name, state); path != nil {
			errs = append(errs, &CircularDependencyError{Path: path})
			// the walk stopped mid-path; those modules must not be re-entered
			for n, s := range state {
				if s == visiting {
					state[n] = visited
				}
			}
		}
	}

	return errors.Join(errs...)
}

// DOT renders a dependency graph as DOT (Graphviz) format.
func (g Graph) DOT() string {
	var b strings.Builder
	_, _ = b.WriteString("digraph DI {\n")
	_, _ = b.WriteString("  rankdir=LR;\n")
	_, _ = b.WriteString("  node [fontname=\"Helvetica\"];\n")

	for _, node := range g.Nodes {
		style := "solid"
		if node.Instantiated {
			style = "bold"
		}
		_, _ = b.WriteString(fmt.Sprintf(
			"  \"%s\" [shape=box style=%s label=\"%s\"];\n",
			escapeDOT(node.Name),
			style,
			buildNodeLabel(node),
		))
	}

	missing := map[string]bool{}
	for _, edge := range g.Edges {
		if !edge.Missing || missing[edge.To] {
			continue
		}
		missing[edge.To] = true
		_, _ = b.WriteString(fmt.Sprintf(
			"  \"%s\" [shape=diamond style=dashed label=\"%s\"];\n",
			escapeDOT(missingNodeID(edge.To)),
			escapeDOT(edge.To)+"\\nmissing",
		))
	}

	for _, edge := range g.Edges {
		target := edge.To
		style := "solid"
		if edge.Missing {
			target = missingNodeID(edge.To)
			style = "dashed"
		}
		_, _ = b.WriteString(fmt.Sprintf(
			"  \"%s\" -> \"%s\" [label=\"%d\" style=%s];\n",
			escapeDOT(edge.From),
			escapeDOT(target),
			edge.Position,
			style,
		))
	}

	_, _ = b.WriteString("}\n")
	return b.String()
}

func buildNodeLabel(node ModuleNode) string {
	parts := []string{escapeDOT(node.Name)}
	if node.Constructor != "" {
		parts = append(parts, escapeDOT(node.Constructor))
	}
	if node.File != "" && node.Line > 0 {
		parts = append(parts, escapeDOT(fmt.Sprintf("%s:%d", node.File, node.Line)))
	}
	return strings.Join(parts, "\\n")
}

func describeConstructor(source any, node *ModuleNode) {
	val := reflect.ValueOf(source)
	if val.Kind() != reflect.Func || val.IsNil() {
		return
	}
	pc := val.Pointer()
	if pc == 0 {
		return
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		node.Constructor = fn.Name()
		file, line := fn.FileLine(pc)
		node.File = file
		node.Line = line
	}
}

func missingNodeID(name string) string {
	return "missing:" + name
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
