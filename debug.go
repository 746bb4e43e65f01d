package adi

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/magicmatatjahu/adi/internal/graph"
)

type GraphInfo struct {
	Injector string
	Records  []RecordInfo
	// Cycles lists the dependency cycles among the records, repairable
	// or not.
	Cycles [][]string
	// Shared names the shared modules instantiated in the injector tree.
	Shared []string
}

type RecordInfo struct {
	Token        string
	Host         string
	Imported     bool
	Scope        string
	Definitions  int
	Dependencies []string
	Dependents   []string
	Instantiated bool
}

// Graph describes the records visible in this injector: its own first,
// then the imported ones, each in registration order.
func (in *Injector) Graph() GraphInfo {
	g := in.dependencyGraph()

	records := make([]RecordInfo, 0, in.records.Size()+in.imported.Size())
	add := func(rec *Record, imported bool) {
		defs := rec.definitions()
		name := tokenName(rec.token)
		scopes := lo.Uniq(lo.Map(defs, func(d *definition, _ int) string { return d.scope.Name() }))

		records = append(records, RecordInfo{
			Token:        name,
			Host:         rec.host.name,
			Imported:     imported,
			Scope:        strings.Join(scopes, ","),
			Definitions:  len(defs),
			Dependencies: g.Dependencies(name),
			Dependents:   g.Dependents(name),
			Instantiated: lo.SomeBy(defs, func(d *definition) bool { return d.instantiated() }),
		})
	}

	for _, rec := range in.records.Values() {
		add(rec, false)
	}
	for _, rec := range in.imported.Values() {
		add(rec, true)
	}

	return GraphInfo{
		Injector: in.name,
		Records:  records,
		Cycles:   g.DetectCycles(),
		Shared:   lo.Map(in.root.shared.Keys(), func(m *Module, _ int) string { return m.Name() }),
	}
}

// Validate checks every record reachable from this injector for required
// dependencies nothing can provide and for cycles no member of which can
// be constructed in two phases.
func (in *Injector) Validate() error {
	g := in.dependencyGraph()

	var problems []string
	for _, m := range g.Validate() {
		problems = append(problems, fmt.Sprintf("%s requires missing %s", m.From, m.To))
	}
	for _, cycle := range g.Unrepairable() {
		problems = append(problems, fmt.Sprintf("unresolvable cycle between %s (%s)",
			strings.Join(cycle, ", "), strings.Join(g.FindCyclePath(cycle[0]), " -> ")))
	}

	if len(problems) > 0 {
		return errValidationFailed(errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

func (in *Injector) dependencyGraph() *graph.Graph {
	g := graph.New()
	seen := make(map[*Record]bool)

	var visit func(rec *Record)
	visit = func(rec *Record) {
		if seen[rec] {
			return
		}
		seen[rec] = true

		name := tokenName(rec.token)
		defs := rec.definitions()
		repairable := lo.SomeBy(defs, func(d *definition) bool { return d.proto != nil })
		g.AddNode(name, repairable)

		for _, d := range defs {
			for _, dep := range d.deps {
				g.AddNode(name, repairable, graph.Edge{To: tokenName(dep.token), Optional: dep.optional})

				if _, special := specialTokens[dep.token]; special {
					g.AddNode(tokenName(dep.token), false)
					continue
				}
				if next, ok := rec.host.peek(dep); ok {
					if next == nil {
						g.AddNode(tokenName(dep.token), false)
						continue
					}
					visit(next)
				}
			}
		}
	}

	for _, rec := range in.records.Values() {
		visit(rec)
	}
	for _, rec := range in.imported.Values() {
		visit(rec)
	}
	return g
}

var specialTokens = map[Token]struct{}{
	InjectorToken: {},
	SessionToken:  {},
	ContextToken:  {},
	InquirerToken: {},
}

// peek finds the record serving inj without materializing anything. A
// nil record with true means the token is served lazily via ProvidedIn.
func (in *Injector) peek(inj Injection) (*Record, bool) {
	start := in
	if inj.skipSelf {
		start = in.parent
	}

	for cur := start; cur != nil; cur = cur.parent {
		if rec, ok := cur.records.Get(inj.token); ok {
			return rec, true
		}
		if rec, ok := cur.imported.Get(inj.token); ok {
			return rec, true
		}
		if p, labels := provided(inj.token); p != nil && cur.matches(labels) {
			return nil, true
		}
		if inj.self {
			break
		}
	}
	return nil, false
}

func (in *Injector) PrintGraph() {
	in.FprintGraph(os.Stdout)
}

func (in *Injector) FprintGraph(w io.Writer) {
	info := in.Graph()

	if len(info.Records) == 0 {
		_, _ = fmt.Fprintln(w, "(empty injector)")
		return
	}

	for _, rec := range info.Records {
		status := "○"
		if rec.Instantiated {
			status = "●"
		}

		label := rec.Token
		if rec.Imported {
			label += " [" + rec.Host + "]"
		}

		if len(rec.Dependencies) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s\n", status, label)
		} else {
			_, _ = fmt.Fprintf(w, "%s %s ← %s\n", status, label, strings.Join(rec.Dependencies, ", "))
		}
	}
}

func (in *Injector) SprintGraph() string {
	var sb strings.Builder
	in.FprintGraph(&sb)
	return sb.String()
}

func (in *Injector) FprintGraphDOT(w io.Writer) {
	info := in.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, rec := range info.Records {
		style := ""
		if rec.Instantiated {
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", rec.Token, escapeLabel(rec.Token), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, rec := range info.Records {
		for _, dep := range rec.Dependencies {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", rec.Token, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (in *Injector) SprintGraphDOT() string {
	var sb strings.Builder
	in.FprintGraphDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
