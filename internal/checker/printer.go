package checker

import (
	"math"
	"strconv"
	"strings"

	"stc/internal/ast"
	"stc/internal/symbols"
	"stc/internal/types"
)

// maxPrintDepth bounds nesting of anonymous object types in printed text.
const maxPrintDepth = 8

type typePrinter struct {
	c       *Checker
	sb      strings.Builder
	depth   int
	visited map[types.TypeID]bool
}

// TypeToString renders t the way diagnostics show it.
func (c *Checker) TypeToString(t types.TypeID) string {
	p := &typePrinter{c: c, visited: make(map[types.TypeID]bool)}
	p.typ(t, false)
	return p.sb.String()
}

func (c *Checker) signatureToString(id types.SignatureID) string {
	p := &typePrinter{c: c, visited: make(map[types.TypeID]bool)}
	p.signature(id, "=>")
	return p.sb.String()
}

func (p *typePrinter) write(s string) { p.sb.WriteString(s) }

// typ prints t; nested wraps function, union and intersection text in
// parentheses where it is an operand of a postfix or binary type operator.
func (p *typePrinter) typ(t types.TypeID, nested bool) {
	c := p.c
	if t == types.NoTypeID {
		p.write("?")
		return
	}
	if alias, ok := c.types.Alias(t); ok && alias.Symbol.IsValid() {
		p.write(c.symbolName(alias.Symbol))
		p.typeArgs(alias.Args)
		return
	}
	tt, ok := c.types.Lookup(t)
	if !ok {
		p.write("?")
		return
	}
	switch tt.Kind {
	case types.KindAny:
		p.write("any")
	case types.KindUnknown:
		p.write("unknown")
	case types.KindNever:
		p.write("never")
	case types.KindVoid:
		p.write("void")
	case types.KindUndefined:
		p.write("undefined")
	case types.KindNull:
		p.write("null")
	case types.KindString:
		p.write("string")
	case types.KindNumber:
		p.write("number")
	case types.KindNonPrimitive:
		p.write("object")
	case types.KindStringLiteral, types.KindNumberLiteral, types.KindBooleanLiteral:
		p.literal(t, tt)
	case types.KindUnion:
		p.union(t, nested)
	case types.KindIntersection:
		p.list(c.types.Members(t), " & ", nested)
	case types.KindInterface:
		p.write(c.symbolName(tt.Symbol))
		if info, ok := c.types.InterfaceInfo(t); ok && info.Local > 0 {
			p.typeArgs(info.TypeParams[len(info.TypeParams)-info.Local:])
		}
	case types.KindReference:
		info, _ := c.types.ReferenceInfo(t)
		p.write(c.symbolName(c.types.Symbol(info.Target)))
		if ti, ok := c.types.InterfaceInfo(info.Target); ok && ti.Local > 0 && len(info.Args) >= ti.Local {
			p.typeArgs(info.Args[len(info.Args)-ti.Local:])
		}
	case types.KindArray:
		elem, _ := c.types.ArrayElem(t)
		p.typ(elem, true)
		p.write("[]")
	case types.KindTuple:
		p.write("[")
		for i, m := range c.types.Members(t) {
			if i > 0 {
				p.write(", ")
			}
			p.typ(m, false)
		}
		p.write("]")
	case types.KindTypeParameter:
		p.typeParameter(t, tt)
	case types.KindIndex:
		target, _ := c.types.IndexTarget(t)
		p.write("keyof ")
		p.typ(target, true)
	case types.KindIndexedAccess:
		info, _ := c.types.AccessInfo(t)
		p.typ(info.Object, true)
		p.write("[")
		p.typ(info.Index, false)
		p.write("]")
	case types.KindConditional:
		p.conditional(t, nested)
	case types.KindMapped:
		p.mapped(t)
	case types.KindObject:
		p.object(t, tt, nested)
	default:
		p.write(tt.Kind.String())
	}
}

func (p *typePrinter) typeArgs(args []types.TypeID) {
	if len(args) == 0 {
		return
	}
	p.write("<")
	for i, a := range args {
		if i > 0 {
			p.write(", ")
		}
		p.typ(a, false)
	}
	p.write(">")
}

func (p *typePrinter) literal(t types.TypeID, tt types.Type) {
	c := p.c
	if tt.Flags&types.FlagEnumLiteral != 0 && tt.Symbol.IsValid() {
		member := c.syms.Get(tt.Symbol)
		enum := c.declSymbol(c.nodes.Parent(member.FirstDecl()))
		if enum.IsValid() {
			p.write(c.symbolName(enum) + ".")
		}
		p.write(c.symbolName(tt.Symbol))
		return
	}
	lit, _ := c.types.Literal(t)
	switch tt.Kind {
	case types.KindStringLiteral:
		p.write(strconv.Quote(lit.Str))
	case types.KindNumberLiteral:
		p.write(formatNumber(lit.Num))
	default:
		p.write(strconv.FormatBool(lit.Bool))
	}
}

// union prints members in interning order with null and undefined last;
// true|false collapses to boolean.
func (p *typePrinter) union(t types.TypeID, nested bool) {
	c := p.c
	members := c.types.Members(t)
	hasTrue, hasFalse := false, false
	for _, m := range members {
		switch c.types.Regular(m) {
		case c.b.True:
			hasTrue = true
		case c.b.False:
			hasFalse = true
		}
	}
	var out, nullish []types.TypeID
	boolDone := false
	for _, m := range members {
		r := c.types.Regular(m)
		switch {
		case hasTrue && hasFalse && (r == c.b.True || r == c.b.False):
			if !boolDone {
				out = append(out, c.b.Boolean)
				boolDone = true
			}
		case r == c.b.Null || r == c.b.Undefined:
			nullish = append(nullish, m)
		default:
			out = append(out, m)
		}
	}
	out = append(out, nullish...)
	if len(out) == 1 && boolDone {
		p.write("boolean")
		return
	}
	p.list(out, " | ", nested)
}

func (p *typePrinter) list(members []types.TypeID, sep string, nested bool) {
	if nested {
		p.write("(")
	}
	for i, m := range members {
		if i > 0 {
			p.write(sep)
		}
		if m == p.c.b.Boolean {
			p.write("boolean")
			continue
		}
		p.typ(m, true)
	}
	if nested {
		p.write(")")
	}
}

func (p *typePrinter) typeParameter(t types.TypeID, tt types.Type) {
	c := p.c
	switch {
	case tt.Flags&types.FlagThis != 0:
		p.write("this")
	case !tt.Symbol.IsValid():
		if name, ok := c.markerNames[t]; ok {
			p.write(name)
		} else {
			p.write("T")
		}
	default:
		p.write(c.symbolName(tt.Symbol))
	}
}

func (p *typePrinter) conditional(t types.TypeID, nested bool) {
	c := p.c
	info, _ := c.types.DeferredInfo(t)
	e, _ := c.nodes.Expr(info.Decl)
	if nested {
		p.write("(")
	}
	p.typ(info.Check, true)
	p.write(" extends ")
	p.typ(c.instantiate(c.typeFromTypeNode(e.Right), info.Mapper), true)
	p.write(" ? ")
	p.typ(c.instantiate(c.typeFromTypeNode(e.Then), info.Mapper), false)
	p.write(" : ")
	p.typ(c.instantiate(c.typeFromTypeNode(e.Else), info.Mapper), false)
	if nested {
		p.write(")")
	}
}

func (p *typePrinter) mapped(t types.TypeID) {
	c := p.c
	info, _ := c.types.DeferredInfo(t)
	e, _ := c.nodes.Expr(info.Decl)
	tpd, _ := c.nodes.TypeParam(e.Left)
	flags := c.nodes.Flags(info.Decl)
	p.write("{ ")
	if flags&ast.FlagReadonly != 0 {
		p.write("readonly ")
	}
	p.write("[" + c.identText(tpd.Name) + " in ")
	p.typ(c.instantiate(c.typeFromTypeNode(tpd.Constraint), info.Mapper), false)
	p.write("]")
	switch {
	case flags&ast.FlagMinusOptional != 0:
		p.write("-?")
	case flags&ast.FlagOptional != 0:
		p.write("?")
	}
	p.write(": ")
	p.typ(c.instantiate(c.typeFromTypeNode(e.Right), info.Mapper), false)
	p.write("; }")
}

func (p *typePrinter) object(t types.TypeID, tt types.Type, nested bool) {
	c := p.c
	if tt.Flags&types.FlagAnonymous != 0 && tt.Symbol.IsValid() {
		flags := c.syms.Flags(tt.Symbol)
		if tt.Flags&types.FlagClass != 0 || flags&(symbols.Enum|symbols.Module) != 0 {
			p.write("typeof " + c.symbolName(tt.Symbol))
			return
		}
	}
	if p.visited[t] || p.depth >= maxPrintDepth {
		p.write("...")
		return
	}
	p.visited[t] = true
	p.depth++
	defer func() {
		delete(p.visited, t)
		p.depth--
	}()

	st := c.resolveStructured(t)
	switch {
	case len(st.props) == 0 && len(st.indexes) == 0 && len(st.calls) == 1 && len(st.constructs) == 0:
		if nested {
			p.write("(")
		}
		p.signature(st.calls[0], "=>")
		if nested {
			p.write(")")
		}
		return
	case len(st.props) == 0 && len(st.indexes) == 0 && len(st.calls) == 0 && len(st.constructs) == 1:
		if nested {
			p.write("(")
		}
		p.write("new ")
		p.signature(st.constructs[0], "=>")
		if nested {
			p.write(")")
		}
		return
	case len(st.props) == 0 && len(st.indexes) == 0 && len(st.calls) == 0 && len(st.constructs) == 0:
		p.write("{}")
		return
	}
	p.write("{ ")
	for _, ix := range st.indexes {
		if ix.Readonly {
			p.write("readonly ")
		}
		p.write("[x: ")
		p.typ(ix.Key, false)
		p.write("]: ")
		p.typ(ix.Type, false)
		p.write("; ")
	}
	for _, s := range st.calls {
		p.signature(s, ":")
		p.write("; ")
	}
	for _, s := range st.constructs {
		p.write("new ")
		p.signature(s, ":")
		p.write("; ")
	}
	for _, prop := range st.props {
		if prop.flags&types.PropReadonly != 0 {
			p.write("readonly ")
		}
		p.write(prop.name)
		if prop.flags&types.PropOptional != 0 {
			p.write("?")
		}
		p.write(": ")
		pt := c.typeOfProperty(prop)
		if prop.flags&types.PropOptional != 0 && c.opts.StrictNullChecks {
			pt = c.types.Filter(pt, func(m types.TypeID) bool { return m != c.b.Undefined })
		}
		p.typ(pt, false)
		p.write("; ")
	}
	p.write("}")
}

// signature prints `<T>(a: A, b?: B, ...c: C[]) => R`; arrow is ":" in
// member position.
func (p *typePrinter) signature(id types.SignatureID, arrow string) {
	c := p.c
	sig := c.types.Signature(id)
	if sig == nil {
		p.write("?")
		return
	}
	if len(sig.TypeParams) > 0 {
		p.write("<")
		for i, tp := range sig.TypeParams {
			if i > 0 {
				p.write(", ")
			}
			p.typ(tp, false)
		}
		p.write(">")
	}
	p.write("(")
	for i, param := range sig.Params {
		if i > 0 {
			p.write(", ")
		}
		if param.Rest {
			p.write("...")
		}
		name := param.Name
		if name == "" {
			name = "arg" + strconv.Itoa(i)
		}
		p.write(name)
		if param.Optional && !param.Rest {
			p.write("?")
		}
		p.write(": ")
		p.typ(param.Type, false)
	}
	p.write(")")
	if arrow == "=>" {
		p.write(" => ")
	} else {
		p.write(": ")
	}
	if sig.Predicate.Kind != types.PredicateNone {
		p.predicate(sig)
		return
	}
	p.typ(c.returnTypeOf(id), false)
}

func (p *typePrinter) predicate(sig *types.Signature) {
	pred := sig.Predicate
	subject := "this"
	if pred.Kind != types.PredicateThis && pred.Param < len(sig.Params) {
		subject = sig.Params[pred.Param].Name
	}
	switch pred.Kind {
	case types.PredicateAssert:
		p.write("asserts " + subject)
		return
	case types.PredicateAssertIs:
		p.write("asserts ")
	}
	p.write(subject + " is ")
	p.typ(pred.Type, false)
}

// formatNumber renders a number literal the way JavaScript converts it to
// a string.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// isNumericName reports property names that are canonical number strings,
// which number index signatures apply to.
func isNumericName(name string) bool {
	v, err := strconv.ParseFloat(name, 64)
	return err == nil && formatNumber(v) == name
}
