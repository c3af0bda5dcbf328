package dag

import (
	"slices"
	"testing"

	"stc/internal/diag"
	"stc/internal/project"
	"stc/internal/source"
)

func imports(paths ...string) []project.ImportMeta {
	out := make([]project.ImportMeta, len(paths))
	for i, p := range paths {
		out[i] = project.ImportMeta{Specifier: "./" + p, Path: p}
	}
	return out
}

func build(metas ...project.ModuleMeta) (ModuleIndex, Graph, []ModuleSlot) {
	nodes := make([]ModuleNode, len(metas))
	for i, m := range metas {
		nodes[i] = ModuleNode{Meta: m}
	}
	idx := BuildIndex(metas)
	g, slots := BuildGraph(idx, nodes)
	return idx, g, slots
}

func TestBuildIndexIncludesImports(t *testing.T) {
	metas := []project.ModuleMeta{
		{Path: "core/main", Imports: imports("lib/math", "lib/util")},
		{Path: "lib/util"},
	}
	idx := BuildIndex(metas)
	wantNames := []string{"core/main", "lib/math", "lib/util"}
	if !slices.Equal(idx.IDToName, wantNames) {
		t.Fatalf("IDToName = %v, want %v", idx.IDToName, wantNames)
	}
	for i, want := range wantNames {
		if id, ok := idx.NameToID[want]; !ok || int(id) != i {
			t.Fatalf("idx.NameToID[%q] = %v, want %d", want, id, i)
		}
	}
}

func TestBuildGraphSkipsMissingModules(t *testing.T) {
	idx, g, _ := build(
		project.ModuleMeta{Path: "app", Imports: imports("core", "util", "app")},
		project.ModuleMeta{Path: "core", Imports: imports("util")},
	)
	appID, coreID, utilID := idx.NameToID["app"], idx.NameToID["core"], idx.NameToID["util"]
	if deps := g.Edges[int(appID)]; len(deps) != 1 || deps[0] != coreID {
		t.Fatalf("app deps = %v, want [%v]", deps, coreID)
	}
	if len(g.Edges[int(coreID)]) != 0 {
		t.Fatalf("core deps = %v, want none", g.Edges[int(coreID)])
	}
	if !g.Present[int(appID)] || !g.Present[int(coreID)] || g.Present[int(utilID)] {
		t.Fatalf("unexpected Present flags: %v", g.Present)
	}
}

func TestBuildGraphDuplicateModules(t *testing.T) {
	spanA := source.Span{File: 1, Start: 0, End: 5}
	spanB := source.Span{File: 2, Start: 0, End: 5}
	metaA := project.ModuleMeta{Path: "dup/mod", Span: spanA}
	metaB := project.ModuleMeta{Path: "dup/mod", Span: spanB}

	bagA := diag.NewBag(10)
	bagB := diag.NewBag(10)
	nodes := []ModuleNode{
		{Meta: metaA, Reporter: diag.BagReporter{Bag: bagA}},
		{Meta: metaB, Reporter: diag.BagReporter{Bag: bagB}},
	}
	idx := BuildIndex([]project.ModuleMeta{metaA, metaB})
	_, slots := BuildGraph(idx, nodes)

	if bagA.Len() != 0 {
		t.Fatalf("unexpected diagnostics for first module: %v", bagA.Items())
	}
	if bagB.Len() != 1 || bagB.Items()[0].Code != diag.ProjDuplicateModule {
		t.Fatalf("duplicate diagnostics = %v", bagB.Items())
	}
	if len(bagB.Items()[0].Notes) != 1 || bagB.Items()[0].Notes[0].Span != spanA {
		t.Fatalf("duplicate note should point at the first file")
	}
	slot := slots[int(idx.NameToID["dup/mod"])]
	if !slot.Present || slot.Meta.Span != spanA {
		t.Fatalf("expected slot to hold first module metadata")
	}
}

func TestToposortKahnBatches(t *testing.T) {
	idx, g, _ := build(
		project.ModuleMeta{Path: "b", Imports: imports("c")},
		project.ModuleMeta{Path: "a"},
		project.ModuleMeta{Path: "c"},
	)
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("expected acyclic graph")
	}
	if got := idx.Names(topo.Order); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", got)
	}
	if len(topo.Batches) != 2 ||
		!slices.Equal(idx.Names(topo.Batches[0]), []string{"a", "b"}) ||
		!slices.Equal(idx.Names(topo.Batches[1]), []string{"c"}) {
		t.Fatalf("batches = %v", topo.Batches)
	}
	if got := idx.Names(topo.DepsFirst(g)); !slices.Equal(got, []string{"c", "b", "a"}) {
		t.Fatalf("deps first = %v", got)
	}
}

func TestCyclesAreOrderedAndReported(t *testing.T) {
	spanA := source.Span{File: 1, Start: 0, End: 4}
	spanB := source.Span{File: 2, Start: 0, End: 4}
	metaA := project.ModuleMeta{Path: "a", Span: spanA, Imports: imports("b")}
	metaB := project.ModuleMeta{Path: "b", Span: spanB, Imports: imports("a", "c")}
	metaC := project.ModuleMeta{Path: "c"}
	metaMain := project.ModuleMeta{Path: "main", Imports: imports("a")}

	bagA := diag.NewBag(10)
	bagB := diag.NewBag(10)
	nodes := []ModuleNode{
		{Meta: metaA, Reporter: diag.BagReporter{Bag: bagA}},
		{Meta: metaB, Reporter: diag.BagReporter{Bag: bagB}},
		{Meta: metaC},
		{Meta: metaMain},
	}
	idx := BuildIndex([]project.ModuleMeta{metaA, metaB, metaC, metaMain})
	g, slots := BuildGraph(idx, nodes)

	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatalf("expected a cycle, got %+v", topo)
	}
	// c is imported from inside the cycle and cannot leave it
	if got := idx.Names(topo.Cycles); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("cycles = %v", got)
	}
	if got := idx.Names(topo.DepsFirst(g)); !slices.Equal(got, []string{"c", "b", "a", "main"}) {
		t.Fatalf("deps first = %v", got)
	}

	ReportCycles(idx, slots, topo)
	for name, bag := range map[string]*diag.Bag{"a": bagA, "b": bagB} {
		if bag.Len() != 1 || bag.Items()[0].Code != diag.ProjImportCycle || bag.Items()[0].Severity != diag.SevWarning {
			t.Fatalf("module %s diagnostics = %v", name, bag.Items())
		}
	}
}

func TestAffected(t *testing.T) {
	idx, g, _ := build(
		project.ModuleMeta{Path: "app", Imports: imports("mid")},
		project.ModuleMeta{Path: "mid", Imports: imports("leaf")},
		project.ModuleMeta{Path: "leaf"},
		project.ModuleMeta{Path: "other"},
	)
	got := idx.Names(g.Affected([]ModuleID{idx.NameToID["leaf"]}))
	if !slices.Equal(got, []string{"app", "leaf", "mid"}) {
		t.Fatalf("affected = %v", got)
	}
}
