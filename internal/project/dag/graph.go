package dag

import (
	"fmt"
	"slices"
	"strings"

	"stc/internal/diag"
	"stc/internal/project"
	"stc/internal/source"
)

// Graph holds import edges. Edges[from] lists the modules from imports.
type Graph struct {
	Edges   [][]ModuleID // Edges[from] = []to
	Indeg   []int        // входящие степени для Kahn (учитывает только присутствующие модули)
	Present []bool       // признак, что модуль реально существует (а не только импортируется)
}

type ModuleNode struct {
	Meta     project.ModuleMeta
	Reporter diag.Reporter
}

type ModuleSlot struct {
	Meta     project.ModuleMeta
	Reporter diag.Reporter
	Present  bool
}

// BuildGraph wires import edges between present modules. Imports of absent
// modules are left to the checker, which reports them at the import site.
func BuildGraph(idx ModuleIndex, nodes []ModuleNode) (Graph, []ModuleSlot) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]ModuleSlot, nodeCount)
	for i, name := range idx.IDToName {
		slots[i].Meta.Path = name
	}

	for _, node := range nodes {
		meta := node.Meta
		if meta.Path == "" {
			continue
		}
		id, ok := idx.NameToID[meta.Path]
		if !ok {
			// не должно происходить, индекс строится на тех же метаданных
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				notes := make([]diag.Note, 0, 1)
				if slot.Meta.Span != (source.Span{}) {
					notes = append(notes, diag.Note{
						Span: slot.Meta.Span,
						Msg:  fmt.Sprintf("previous file for module %q", slot.Meta.Path),
					})
				}
				node.Reporter.Report(
					diag.ProjDuplicateModule,
					diag.SevError,
					meta.Span,
					fmt.Sprintf("duplicate module %q", meta.Path),
					notes,
				)
			}
			continue
		}
		slot.Meta = meta
		slot.Reporter = node.Reporter
		slot.Present = true
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present || len(slot.Meta.Imports) == 0 {
			continue
		}
		seen := make(map[ModuleID]struct{}, len(slot.Meta.Imports))
		for _, dep := range slot.Meta.Imports {
			toID, ok := idx.NameToID[dep.Path]
			if !ok || ModuleID(from) == toID || !g.Present[int(toID)] {
				continue
			}
			if _, dup := seen[toID]; dup {
				continue
			}
			seen[toID] = struct{}{}
			g.Edges[from] = append(g.Edges[from], toID)
			g.Indeg[int(toID)]++
		}
		if len(g.Edges[from]) > 1 {
			slices.Sort(g.Edges[from])
		}
	}

	return g, slots
}

// Dependents returns the reversed edges: Dependents()[to] lists importers of to.
func (g Graph) Dependents() [][]ModuleID {
	rev := make([][]ModuleID, len(g.Edges))
	for from, tos := range g.Edges {
		for _, to := range tos {
			rev[int(to)] = append(rev[int(to)], ModuleID(from))
		}
	}
	return rev
}

// Affected returns changed plus every module that transitively imports one
// of them, sorted.
func (g Graph) Affected(changed []ModuleID) []ModuleID {
	rev := g.Dependents()
	seen := make([]bool, len(g.Edges))
	stack := slices.Clone(changed)
	var out []ModuleID
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if int(id) >= len(seen) || seen[int(id)] {
			continue
		}
		seen[int(id)] = true
		out = append(out, id)
		stack = append(stack, rev[int(id)]...)
	}
	slices.Sort(out)
	return out
}

// ReportCycles emits a warning on every module left in an import cycle.
// Cycles are legal; they only lose the dependency-first check order.
func ReportCycles(idx ModuleIndex, slots []ModuleSlot, topo *Topo) {
	if topo == nil || !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	summary := strings.Join(idx.Names(topo.Cycles), " -> ")

	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("module %q participates in an import cycle: %s", slot.Meta.Path, summary)
		slot.Reporter.Report(diag.ProjImportCycle, diag.SevWarning, slot.Meta.Span, msg, nil)
	}
}
