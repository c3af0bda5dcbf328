package binder

import (
	"strconv"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/source"
	"stc/internal/symbols"
	"stc/internal/trace"
)

// Options control one bind pass.
type Options struct {
	MaxDiagnostics int
	Tracer         trace.Tracer
}

// Session holds the arenas and side tables shared by every file bound for
// one program. Side tables are keyed by node id, which is unique program-wide.
type Session struct {
	Builder *ast.Builder
	Nodes   *ast.Nodes
	Strings *source.Interner
	Symbols *symbols.Symbols
	Flows   *Flows

	DeclSymbol map[ast.NodeID]symbols.SymbolID // declaration (or anonymous literal) -> symbol
	Locals     map[ast.NodeID]*symbols.Table   // scope container -> locals
	FlowOf     map[ast.NodeID]FlowID           // reference or statement -> flow before it
	EndFlow    map[ast.NodeID]FlowID           // function-like -> flow at end of body
	Results    map[ast.NodeID]*Result          // source file -> bind result
}

// NewSession creates a session over the nodes of b.
func NewSession(b *ast.Builder) *Session {
	return &Session{
		Builder:    b,
		Nodes:      b.Nodes,
		Strings:    b.Strings,
		Symbols:    symbols.NewSymbols(b.Strings, 0),
		Flows:      NewFlows(),
		DeclSymbol: make(map[ast.NodeID]symbols.SymbolID),
		Locals:     make(map[ast.NodeID]*symbols.Table),
		FlowOf:     make(map[ast.NodeID]FlowID),
		EndFlow:    make(map[ast.NodeID]FlowID),
		Results:    make(map[ast.NodeID]*Result),
	}
}

// Result is the per-file outcome of binding.
type Result struct {
	File        ast.NodeID
	FileID      source.FileID
	Module      bool
	Symbol      symbols.SymbolID // module symbol of a module file
	Locals      *symbols.Table   // file-level declarations; global contributions for scripts
	Exports     *symbols.Table   // exported declarations of a module file
	Diagnostics *diag.Bag

	session *Session
}

// Symbols returns the shared symbol arena.
func (r *Result) Symbols() *symbols.Symbols { return r.session.Symbols }

// Session returns the owning session.
func (r *Result) Session() *Session { return r.session }

// SymbolOf returns the symbol created for a declaration node.
func (r *Result) SymbolOf(decl ast.NodeID) symbols.SymbolID {
	return r.session.DeclSymbol[decl]
}

// FlowByNode returns the flow node recorded before node.
func (r *Result) FlowByNode(node ast.NodeID) (FlowID, bool) {
	id, ok := r.session.FlowOf[node]
	return id, ok
}

// Bind binds a single file in a fresh session.
func Bind(b *ast.Builder, file ast.NodeID, opts Options) *Result {
	return NewSession(b).Bind(file, opts)
}

// Bind binds file into s. Binding a file twice returns the first result.
func (s *Session) Bind(file ast.NodeID, opts Options) *Result {
	if r, ok := s.Results[file]; ok {
		return r
	}
	fd, ok := s.Nodes.File(file)
	if !ok {
		panic("binder: node is not a source file")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	span := trace.Begin(tracer, trace.ScopeFile, "bind", 0).WithExtra("file", fd.Path)

	res := &Result{
		File:        file,
		FileID:      fd.File,
		Module:      fd.Module || hasModuleSyntax(s.Nodes, fd.Stmts),
		Locals:      symbols.NewTable(),
		Diagnostics: diag.NewBag(opts.MaxDiagnostics),
		session:     s,
	}
	s.Locals[file] = res.Locals
	if res.Module {
		res.Symbol = s.Symbols.New(symbols.Symbol{
			Name:  s.Strings.Intern("\"" + fd.Path + "\""),
			Flags: symbols.ValueModule,
			Decls: []ast.NodeID{file},
		})
		res.Exports = s.Symbols.Get(res.Symbol).EnsureExports()
		s.DeclSymbol[file] = res.Symbol
	}
	s.Results[file] = res

	b := &binder{
		s:          s,
		nodes:      s.Nodes,
		res:        res,
		rep:        diag.BagReporter{Bag: res.Diagnostics},
		container:  file,
		blockScope: file,
		owner:      res.Symbol,
	}
	b.bindFile(file, fd)
	span.WithExtra("symbols", strconv.Itoa(s.Symbols.Len())).End("")
	return res
}

func hasModuleSyntax(nodes *ast.Nodes, stmts []ast.NodeID) bool {
	for _, st := range stmts {
		if nodes.Kind(st) == ast.KindImportDeclaration || nodes.Flags(st)&ast.FlagExport != 0 {
			return true
		}
	}
	return false
}
