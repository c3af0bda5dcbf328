package driver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"stc/internal/ast"
	"stc/internal/astio"
	"stc/internal/binder"
	"stc/internal/checker"
	"stc/internal/diag"
	"stc/internal/observ"
	"stc/internal/project"
	"stc/internal/project/dag"
	"stc/internal/source"
	"stc/internal/trace"
)

// Options configures one driver run.
type Options struct {
	Jobs             int // parallel document decoders; 0 means GOMAXPROCS
	Checker          checker.Options
	WarnImportCycles bool
	Cache            *ShapeCache   // nil disables shape tracking
	Timer            *observ.Timer // optional phase timings
	Progress         ProgressSink  // optional per-document events
}

// OptionsFromManifest maps the [compiler] section onto driver options.
func OptionsFromManifest(m *project.Manifest) Options {
	opts := Options{Checker: checker.DefaultOptions()}
	if m == nil {
		return opts
	}
	cc := m.Compiler
	opts.Checker.StrictNullChecks = cc.StrictNullChecks
	opts.Checker.StrictFunctionTypes = cc.StrictFunctionTypes
	opts.Checker.NoImplicitAny = cc.NoImplicitAny
	opts.Checker.MaxDiagnostics = cc.MaxDiagnostics
	if cc.MaxLoopIterations > 0 {
		opts.Checker.MaxLoopIterations = cc.MaxLoopIterations
	}
	opts.WarnImportCycles = cc.WarnImportCycles
	return opts
}

// FileResult is the outcome for one document.
type FileResult struct {
	Path        string // document path on disk
	ModulePath  string
	File        ast.NodeID // NoNodeID when the document failed to load
	Diagnostics []*diag.Diagnostic
	Meta        project.ModuleMeta
	Shape       project.Digest
	// ShapeChanged is set when the cache held a different public shape.
	ShapeChanged bool
	// Affected is set when a module this one imports, directly or not,
	// changed its public shape.
	Affected bool
}

// Result is a checked program.
type Result struct {
	Builder *ast.Builder
	Checker *checker.Checker // nil when no document loaded
	Files   []FileResult     // sorted by document path
	Order   []string         // module paths in check order
	Cycles  []string         // modules left in import cycles
}

// HasErrors reports whether any file carries an error diagnostic.
func (r *Result) HasErrors() bool {
	for i := range r.Files {
		for _, d := range r.Files[i].Diagnostics {
			if d.Severity == diag.SevError {
				return true
			}
		}
	}
	return false
}

// Diagnostics returns every diagnostic in document order.
func (r *Result) Diagnostics() []*diag.Diagnostic {
	var out []*diag.Diagnostic
	for i := range r.Files {
		out = append(out, r.Files[i].Diagnostics...)
	}
	return out
}

// Sources returns the file set diagnostics point into.
func (r *Result) Sources() *source.FileSet { return r.Builder.Sources }

// File finds the result for a module path.
func (r *Result) File(modulePath string) (*FileResult, bool) {
	for i := range r.Files {
		if r.Files[i].ModulePath == modulePath {
			return &r.Files[i], true
		}
	}
	return nil, false
}

// CheckDir loads every AST document under root and checks them as one program.
func CheckDir(ctx context.Context, root string, opts Options) (*Result, error) {
	idx := opts.Timer.Begin("list")
	paths, err := ListDocuments(root)
	opts.Timer.End(idx, strconv.Itoa(len(paths))+" documents")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	return CheckFiles(ctx, root, paths, opts)
}

// CheckFiles checks the given documents as one program. Module paths are
// derived relative to root.
func CheckFiles(ctx context.Context, root string, paths []string, opts Options) (*Result, error) {
	if opts.Checker.Tracer == nil {
		opts.Checker.Tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(opts.Checker.Tracer, trace.ScopeDriver, "check_files", trace.CurrentSpan(ctx)).
		WithExtra("root", root)
	ctx = trace.WithSpan(ctx, span)
	res, err := checkFiles(ctx, root, paths, opts)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	span.End(detail)
	return res, err
}

func checkFiles(ctx context.Context, root string, paths []string, opts Options) (*Result, error) {
	timer := opts.Timer

	idx := timer.Begin("decode")
	for _, p := range paths {
		emit(opts.Progress, Event{File: p, Stage: StageDecode, Status: StatusQueued})
	}
	docs, err := decodeAll(ctx, root, paths, opts.Jobs, opts.Progress)
	timer.End(idx, "")
	if err != nil {
		return nil, wrapCanceled(err)
	}

	idx = timer.Begin("build")
	b := ast.NewBuilder(nil, nil)
	res := &Result{Builder: b, Files: make([]FileResult, len(docs))}
	resolver := project.NewResolver()
	bags := make([]*diag.Bag, len(docs))
	var files []ast.NodeID
	for i, d := range docs {
		fr := &res.Files[i]
		fr.Path, fr.ModulePath = d.Path, d.ModulePath
		bags[i] = diag.NewBag(opts.Checker.MaxDiagnostics)
		file := ast.NoNodeID
		if d.Err == nil {
			file, err = astio.Build(b, d.Doc)
			if err != nil {
				d.Err = err
			}
		}
		if d.Err != nil {
			fileID := b.Sources.Add(displayPath(root, d.Path), nil, 0)
			bags[i].Add(diag.NewError(diag.ProjDocumentInvalid, source.Span{File: fileID}, d.Err.Error()))
			continue
		}
		fr.File = file
		files = append(files, file)
		// дубликат не регистрируется, о нём сообщит граф модулей
		_ = resolver.Add(d.ModulePath, file)
		fr.Meta = project.CollectModuleMeta(b.Nodes, file, d.ModulePath)
		fr.Meta.ContentHash = d.Hash
	}
	timer.End(idx, "")

	// импорт может ссылаться на модуль, зарегистрированный позже
	for i := range res.Files {
		fr := &res.Files[i]
		for j := range fr.Meta.Imports {
			if p, ok := resolver.Canonical(fr.Meta.Imports[j].Path); ok {
				fr.Meta.Imports[j].Path = p
			}
		}
	}

	idx = timer.Begin("graph")
	order := orderModules(res, bags, opts.WarnImportCycles)
	timer.End(idx, "")

	ordered := make([]ast.NodeID, 0, len(files))
	for _, i := range order {
		ordered = append(ordered, res.Files[i].File)
		res.Order = append(res.Order, res.Files[i].ModulePath)
	}

	if len(ordered) > 0 {
		idx = timer.Begin("bind")
		emit(opts.Progress, Event{Stage: StageBind, Status: StatusWorking})
		prog := checker.NewProgram(b, ordered, resolver, binder.Options{
			MaxDiagnostics: opts.Checker.MaxDiagnostics,
			Tracer:         opts.Checker.Tracer,
		})
		timer.End(idx, "")
		emit(opts.Progress, Event{Stage: StageBind, Status: StatusDone})

		idx = timer.Begin("check")
		c := checker.New(prog, opts.Checker)
		err := checkWithProgress(ctx, c, res, order, opts.Progress)
		timer.End(idx, "")
		if err != nil {
			return nil, err
		}
		res.Checker = c
	}

	idx = timer.Begin("hash")
	for i := range res.Files {
		fr := &res.Files[i]
		fr.Diagnostics = bags[i].Items()
		if fr.File == ast.NoNodeID {
			continue
		}
		fr.Diagnostics = append(fr.Diagnostics, res.Checker.Diagnostics(fr.File)...)
		diag.SortDiagnostics(fr.Diagnostics)
		fr.Shape = res.Checker.PublicShapeHash(fr.File)
	}
	foldModuleHashes(res, order)
	trackShapes(res, opts.Cache)
	timer.End(idx, "")
	return res, nil
}

// orderModules builds the import graph and returns indexes into res.Files,
// dependencies first. Documents that failed to load are skipped.
func orderModules(res *Result, bags []*diag.Bag, warnCycles bool) []int {
	var metas []project.ModuleMeta
	var nodes []dag.ModuleNode
	byPath := make(map[string]int, len(res.Files))
	var dups []int
	for i := range res.Files {
		fr := &res.Files[i]
		if fr.File == ast.NoNodeID {
			continue
		}
		metas = append(metas, fr.Meta)
		nodes = append(nodes, dag.ModuleNode{Meta: fr.Meta, Reporter: diag.BagReporter{Bag: bags[i]}})
		if _, seen := byPath[fr.ModulePath]; seen {
			dups = append(dups, i)
			continue
		}
		byPath[fr.ModulePath] = i
	}
	idx := dag.BuildIndex(metas)
	g, slots := dag.BuildGraph(idx, nodes)
	topo := dag.ToposortKahn(g)
	if warnCycles {
		dag.ReportCycles(idx, slots, topo)
	}
	res.Cycles = idx.Names(topo.Cycles)

	out := make([]int, 0, len(metas))
	for _, id := range topo.DepsFirst(g) {
		out = append(out, byPath[idx.IDToName[int(id)]])
	}
	// дубликаты проверяются последними, в порядке путей
	return append(out, dups...)
}

// foldModuleHashes computes ModuleHash in dependency order: a module's hash
// covers its content and the module hashes of what it imports.
func foldModuleHashes(res *Result, order []int) {
	byPath := make(map[string]*FileResult, len(res.Files))
	for _, i := range order {
		fr := &res.Files[i]
		if _, ok := byPath[fr.ModulePath]; !ok {
			byPath[fr.ModulePath] = fr
		}
	}
	for _, i := range order {
		fr := &res.Files[i]
		var deps []project.Digest
		seen := make(map[string]bool, len(fr.Meta.Imports))
		for _, imp := range fr.Meta.Imports {
			dep, ok := byPath[imp.Path]
			if !ok || dep == fr || seen[imp.Path] {
				continue
			}
			seen[imp.Path] = true
			// внутри цикла хеш зависимости может быть ещё не посчитан
			deps = append(deps, dep.Meta.ModuleHash)
		}
		fr.Meta.ModuleHash = project.Combine(fr.Meta.ContentHash, deps...)
	}
}

// trackShapes compares public shapes with the cache, marks modules that
// import a changed one, and records the new shapes.
func trackShapes(res *Result, cache *ShapeCache) {
	if cache == nil {
		return
	}
	var metas []project.ModuleMeta
	var nodes []dag.ModuleNode
	var changed []string
	var keep []string
	for i := range res.Files {
		fr := &res.Files[i]
		if fr.File == ast.NoNodeID {
			continue
		}
		metas = append(metas, fr.Meta)
		nodes = append(nodes, dag.ModuleNode{Meta: fr.Meta})
		if prev, ok := cache.Get(fr.ModulePath); ok && prev.Shape != fr.Shape {
			fr.ShapeChanged = true
			changed = append(changed, fr.ModulePath)
		}
		cache.Put(fr.ModulePath, ShapeEntry{
			ContentHash: fr.Meta.ContentHash,
			ModuleHash:  fr.Meta.ModuleHash,
			Shape:       fr.Shape,
		})
		keep = append(keep, fr.ModulePath)
	}
	cache.Retain(keep)
	if len(changed) == 0 {
		return
	}
	idx := dag.BuildIndex(metas)
	g, _ := dag.BuildGraph(idx, nodes)
	ids := make([]dag.ModuleID, 0, len(changed))
	for _, p := range changed {
		ids = append(ids, idx.NameToID[p])
	}
	affected := make(map[string]bool)
	for _, name := range idx.Names(g.Affected(ids)) {
		affected[name] = true
	}
	for i := range res.Files {
		fr := &res.Files[i]
		if fr.File != ast.NoNodeID && !fr.ShapeChanged && affected[fr.ModulePath] {
			fr.Affected = true
		}
	}
}

func wrapCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", checker.ErrCanceled, err)
	}
	return err
}

// checkWithProgress checks files one by one in check order so each gets its
// own events, then lets CheckProgram close the pass.
func checkWithProgress(ctx context.Context, c *checker.Checker, res *Result, order []int, sink ProgressSink) error {
	if sink != nil {
		for _, i := range order {
			fr := &res.Files[i]
			emit(sink, Event{File: fr.Path, Stage: StageCheck, Status: StatusWorking})
			start := time.Now()
			err := c.CheckSourceFile(ctx, fr.File)
			status := StatusDone
			if err != nil {
				status = StatusError
			}
			emit(sink, Event{File: fr.Path, Stage: StageCheck, Status: status, Err: err, Elapsed: time.Since(start)})
			if err != nil {
				return err
			}
		}
	}
	return c.CheckProgram(ctx)
}
