package checker

import (
	"crypto/sha256"
	"slices"
	"strings"

	"stc/internal/ast"
	"stc/internal/symbols"
)

// PublicShapeHash digests what file exposes to other files: the exports of
// a module, or the global contributions of a script. Each entry contributes
// its name, meaning and printed types, in name order.
func (c *Checker) PublicShapeHash(file ast.NodeID) [32]byte {
	res, ok := c.sess.Results[file]
	if !ok {
		return [32]byte{}
	}
	table := res.Locals
	if res.Module {
		table = res.Exports
	}
	var lines []string
	for _, local := range table.Symbols() {
		lines = append(lines, c.shapeLine(local))
	}
	slices.Sort(lines)
	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func (c *Checker) shapeLine(local symbols.SymbolID) string {
	var sb strings.Builder
	sb.WriteString(c.symbolName(local))
	sym := c.resolveAliasOrSelf(local)
	if !sym.IsValid() {
		sb.WriteString(" unresolved")
		return sb.String()
	}
	flags := c.syms.Flags(sym)
	if flags&symbols.Value != 0 {
		sb.WriteString(" value ")
		sb.WriteString(c.TypeToString(c.typeOfSymbol(sym)))
	}
	if flags&symbols.Type != 0 {
		sb.WriteString(" type ")
		t := c.declaredTypeOfSymbol(sym)
		// имя типа само по себе ничего не говорит о форме
		sb.WriteString(c.TypeToString(t))
		for _, p := range c.PropertiesOfType(t) {
			sb.WriteString(" " + p.Name + ":" + c.TypeToString(p.Type))
		}
	}
	if flags&symbols.Namespace != 0 {
		for _, member := range c.exportsOf(sym).Symbols() {
			sb.WriteString(" {" + c.shapeLine(member) + "}")
		}
	}
	return sb.String()
}
