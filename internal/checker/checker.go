package checker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"

	"stc/internal/ast"
	"stc/internal/binder"
	"stc/internal/diag"
	"stc/internal/source"
	"stc/internal/symbols"
	"stc/internal/trace"
	"stc/internal/types"
)

// CancellationPollInterval is the number of visited nodes between two
// context checks.
const CancellationPollInterval = 64

// Options mirror the [compiler] section of the manifest.
type Options struct {
	StrictNullChecks    bool
	StrictFunctionTypes bool
	NoImplicitAny       bool
	MaxDiagnostics      int // per file; 0 means unlimited
	MaxLoopIterations   int // flow loop fixed-point bound
	Tracer              trace.Tracer
}

// DefaultOptions returns strict settings.
func DefaultOptions() Options {
	return Options{
		StrictNullChecks:    true,
		StrictFunctionTypes: true,
		MaxLoopIterations:   64,
	}
}

// ModuleGraph resolves an import specifier written in file from to the
// source file node it names.
type ModuleGraph interface {
	Resolve(from ast.NodeID, specifier string) (ast.NodeID, bool)
}

// StaticModules resolves specifiers without regard to the importing file.
type StaticModules map[string]ast.NodeID

func (m StaticModules) Resolve(_ ast.NodeID, specifier string) (ast.NodeID, bool) {
	id, ok := m[specifier]
	return id, ok
}

// Program is a bound set of files plus their module graph.
type Program struct {
	Session *binder.Session
	Files   []ast.NodeID
	Modules ModuleGraph
}

// NewProgram binds files into one session.
func NewProgram(b *ast.Builder, files []ast.NodeID, modules ModuleGraph, opts binder.Options) *Program {
	sess := binder.NewSession(b)
	for _, f := range files {
		sess.Bind(f, opts)
	}
	if modules == nil {
		modules = StaticModules{}
	}
	return &Program{Session: sess, Files: files, Modules: modules}
}

var (
	// ErrCanceled is matched by errors returned when the context is done.
	ErrCanceled = errors.New("checker: canceled")
	// ErrInternal is matched by errors caused by broken invariants.
	ErrInternal = errors.New("checker: internal error")
)

// InternalError reports a violated invariant. It is never turned into a
// user diagnostic.
type InternalError struct {
	Msg   string
	Node  ast.NodeID
	Stack []byte
}

func (e *InternalError) Error() string {
	if e.Node.IsValid() {
		return fmt.Sprintf("checker: internal error at node %d: %s", e.Node, e.Msg)
	}
	return "checker: internal error: " + e.Msg
}

func (e *InternalError) Unwrap() error { return ErrInternal }

type canceledError struct{ cause error }

func (e *canceledError) Error() string        { return "checker: canceled: " + e.cause.Error() }
func (e *canceledError) Unwrap() error        { return e.cause }
func (e *canceledError) Is(target error) bool { return target == ErrCanceled }

type cancelSignal struct{ err error }

func internalf(node ast.NodeID, format string, args ...any) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...), Node: node})
}

// Checker is one checking session. All caches live here; a fresh Checker
// starts a fresh interning table.
type Checker struct {
	prog    *Program
	opts    Options
	sess    *binder.Session
	nodes   *ast.Nodes
	strings *source.Interner
	syms    *symbols.Symbols
	flows   *binder.Flows
	types   *types.Interner
	b       types.Builtins
	tracer  trace.Tracer

	globals   *symbols.Table
	fileOf    map[source.FileID]ast.NodeID
	symLinks  map[symbols.SymbolID]*symbolLinks
	nodeLinks map[ast.NodeID]*nodeLinks
	sigLinks  map[types.SignatureID]*signatureLinks
	members   map[types.TypeID]*structured
	resolving map[types.TypeID]bool

	mappers      mapperTable
	instCache    map[instKey]types.TypeID
	couldContain map[types.TypeID]bool
	outerParams  map[symbols.SymbolID][]types.TypeID
	relations    [relationCount]map[relationKey]Ternary
	relStack     relationStack
	variances    map[symbols.SymbolID]*varianceLinks

	resolutions   []resolution
	inCheck       bool
	undo          []func() // provisional writes of the file check in progress
	instDepth     int
	instCount     int
	inferDepth    int
	flowDepth     int
	flowLoopStack []flowLoopFrame
	flowCache     map[flowKey]types.TypeID

	bags      map[ast.NodeID]*diag.Bag
	reporters map[ast.NodeID]diag.Reporter
	checked   map[ast.NodeID]bool

	ctx         context.Context
	visited     int
	currentNode ast.NodeID // node under check, anchors depth diagnostics

	// deferred function bodies of the file being checked
	deferred []ast.NodeID

	anySig   types.SignatureID
	errorSig types.SignatureID

	// синтетические типы для кажущихся (apparent) членов примитивов
	apparentString types.TypeID
	apparentNumber types.TypeID
	apparentBool   types.TypeID
	globalArray    *structured
	arrayElem      types.TypeID
	markerNames    map[types.TypeID]string

	// маркеры для измерения вариантности
	markerSuper types.TypeID
	markerSub   types.TypeID
	markerOther types.TypeID
}

// New creates a checker over prog.
func New(prog *Program, opts Options) *Checker {
	if opts.MaxLoopIterations <= 0 {
		opts.MaxLoopIterations = 64
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	in := types.NewInterner()
	in.StrictNullChecks = opts.StrictNullChecks
	c := &Checker{
		prog:      prog,
		opts:      opts,
		sess:      prog.Session,
		nodes:     prog.Session.Nodes,
		strings:   prog.Session.Strings,
		syms:      prog.Session.Symbols,
		flows:     prog.Session.Flows,
		types:     in,
		b:         in.Builtins(),
		tracer:    tracer,
		fileOf:    make(map[source.FileID]ast.NodeID),
		symLinks:  make(map[symbols.SymbolID]*symbolLinks),
		nodeLinks: make(map[ast.NodeID]*nodeLinks),
		sigLinks:  make(map[types.SignatureID]*signatureLinks),
		members:   make(map[types.TypeID]*structured),
		resolving: make(map[types.TypeID]bool),
		variances: make(map[symbols.SymbolID]*varianceLinks),
		flowCache: make(map[flowKey]types.TypeID),

		instCache:    make(map[instKey]types.TypeID),
		couldContain: make(map[types.TypeID]bool),
		outerParams:  make(map[symbols.SymbolID][]types.TypeID),
		markerNames:  make(map[types.TypeID]string),
		bags:      make(map[ast.NodeID]*diag.Bag),
		reporters: make(map[ast.NodeID]diag.Reporter),
		checked:   make(map[ast.NodeID]bool),
	}
	c.mappers.init()
	c.arrayElem = in.Marker(symbols.NoSymbolID, 0)
	c.markerNames[c.arrayElem] = "T"
	for i := range c.relations {
		c.relations[i] = make(map[relationKey]Ternary)
	}
	for _, f := range prog.Files {
		if fd, ok := c.nodes.File(f); ok {
			c.fileOf[fd.File] = f
		}
	}
	c.initGlobals()
	return c
}

// Types exposes the session's type interner.
func (c *Checker) Types() *types.Interner { return c.types }

// Builtins returns the intrinsic type ids.
func (c *Checker) Builtins() types.Builtins { return c.b }

// Program returns the checked program.
func (c *Checker) Program() *Program { return c.prog }

// --- entry points ---

// CheckSourceFile checks every statement of file. Checking a file twice is
// a no-op. Cancellation and internal failures are returned as errors;
// memoized results computed before the abort are kept.
func (c *Checker) CheckSourceFile(ctx context.Context, file ast.NodeID) (err error) {
	if c.checked[file] {
		return nil
	}
	fd, ok := c.nodes.File(file)
	if !ok {
		return &InternalError{Msg: "not a source file", Node: file}
	}
	span := trace.Begin(c.tracer, trace.ScopeFile, "check_file", trace.CurrentSpan(ctx)).WithExtra("file", fd.Path)
	defer func() {
		detail := "ok"
		if err != nil {
			detail = err.Error()
		}
		span.End(detail)
	}()
	defer c.recoverAbort(&err)
	c.ctx = ctx
	c.inCheck = true
	defer func() { c.ctx, c.inCheck = nil, false }()

	c.checkSourceFileWorker(file, fd)
	c.undo = c.undo[:0]
	c.checked[file] = true
	return nil
}

// CheckProgram checks all files in program order.
func (c *Checker) CheckProgram(ctx context.Context) error {
	span := trace.Begin(c.tracer, trace.ScopePass, "check_program", trace.CurrentSpan(ctx)).
		WithExtra("files", strconv.Itoa(len(c.prog.Files)))
	ctx = trace.WithSpan(ctx, span)
	for _, f := range c.prog.Files {
		if err := ctx.Err(); err != nil {
			span.End("canceled")
			return &canceledError{cause: err}
		}
		if err := c.CheckSourceFile(ctx, f); err != nil {
			span.End(err.Error())
			return err
		}
	}
	span.End("")
	return nil
}

func (c *Checker) recoverAbort(err *error) {
	r := recover()
	if r == nil {
		return
	}
	switch v := r.(type) {
	case cancelSignal:
		*err = &canceledError{cause: v.err}
	case *InternalError:
		v.Stack = debug.Stack()
		*err = v
	case error:
		*err = &InternalError{Msg: v.Error(), Stack: debug.Stack()}
	default:
		*err = &InternalError{Msg: fmt.Sprint(v), Stack: debug.Stack()}
	}
	// состояние резолюций после паники недостоверно
	for i := len(c.undo) - 1; i >= 0; i-- {
		c.undo[i]()
	}
	c.undo = c.undo[:0]
	clear(c.resolving)
	c.deferred = c.deferred[:0]
	c.resolutions = c.resolutions[:0]
	c.flowLoopStack = c.flowLoopStack[:0]
	c.instDepth, c.inferDepth, c.flowDepth = 0, 0, 0
	c.resetRelationStack()
}

// tick counts a visited node and polls the context.
func (c *Checker) tick() {
	c.visited++
	if c.ctx == nil || c.visited%CancellationPollInterval != 0 {
		return
	}
	if err := c.ctx.Err(); err != nil {
		panic(cancelSignal{err: err})
	}
}

// --- diagnostics ---

func (c *Checker) fileNode(node ast.NodeID) ast.NodeID {
	if n := c.nodes.Get(node); n != nil {
		if f, ok := c.fileOf[n.Span.File]; ok {
			return f
		}
	}
	return c.nodes.ContainingFile(node)
}

func (c *Checker) reporter(file ast.NodeID) diag.Reporter {
	if r, ok := c.reporters[file]; ok {
		return r
	}
	bag := diag.NewBag(c.opts.MaxDiagnostics)
	c.bags[file] = bag
	r := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	c.reporters[file] = r
	return r
}

func (c *Checker) span(node ast.NodeID) source.Span {
	if n := c.nodes.Get(node); n != nil {
		return n.Span
	}
	return source.Span{}
}

// errorAt starts an error diagnostic anchored at node. The caller emits it.
func (c *Checker) errorAt(node ast.NodeID, code diag.Code, format string, args ...any) *diag.ReportBuilder {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return diag.ReportError(c.reporter(c.fileNode(node)), code, c.span(node), msg)
}

func (c *Checker) error(node ast.NodeID, code diag.Code, format string, args ...any) {
	c.errorAt(node, code, format, args...).Emit()
}

// Diagnostics returns binder and checker diagnostics of file, sorted by
// position.
func (c *Checker) Diagnostics(file ast.NodeID) []*diag.Diagnostic {
	var out []*diag.Diagnostic
	if res, ok := c.sess.Results[file]; ok && res.Diagnostics != nil {
		out = append(out, res.Diagnostics.Items()...)
	}
	if bag, ok := c.bags[file]; ok {
		out = append(out, bag.Items()...)
	}
	diag.SortDiagnostics(out)
	return out
}

// AllDiagnostics returns the diagnostics of every file in program order.
func (c *Checker) AllDiagnostics() []*diag.Diagnostic {
	var out []*diag.Diagnostic
	for _, f := range c.prog.Files {
		out = append(out, c.Diagnostics(f)...)
	}
	return out
}

// --- small helpers ---

func (c *Checker) text(id source.StringID) string {
	return c.strings.MustLookup(id)
}

func (c *Checker) symbolName(sym symbols.SymbolID) string {
	return c.syms.Name(sym)
}

// identText returns the text of an identifier or literal name node.
func (c *Checker) identText(node ast.NodeID) string {
	if d, ok := c.nodes.Ident(node); ok {
		return c.text(d.Name)
	}
	if l, ok := c.nodes.Literal(node); ok {
		return l.Text
	}
	return ""
}

func (c *Checker) declSymbol(decl ast.NodeID) symbols.SymbolID {
	return c.sess.DeclSymbol[decl]
}

func (c *Checker) kind(node ast.NodeID) ast.Kind { return c.nodes.Kind(node) }

func (c *Checker) trace(name, detail string) {
	trace.Point(c.tracer, trace.ScopeRelation, name, detail)
}
