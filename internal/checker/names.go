package checker

import (
	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/source"
	"stc/internal/symbols"
)

// excludesOf returns the declaration kinds that may not share a name with a
// symbol carrying flags.
func excludesOf(flags symbols.SymbolFlags) symbols.SymbolFlags {
	var ex symbols.SymbolFlags
	pairs := []struct{ include, exclude symbols.SymbolFlags }{
		{symbols.FunctionScopedVariable, symbols.FunctionScopedVariableExcludes},
		{symbols.BlockScopedVariable, symbols.BlockScopedVariableExcludes},
		{symbols.Function, symbols.FunctionExcludes},
		{symbols.Class, symbols.ClassExcludes},
		{symbols.Interface, symbols.InterfaceExcludes},
		{symbols.RegularEnum, symbols.RegularEnumExcludes},
		{symbols.ConstEnum, symbols.ConstEnumExcludes},
		{symbols.ValueModule, symbols.ValueModuleExcludes},
		{symbols.TypeAlias, symbols.TypeAliasExcludes},
		{symbols.Alias, symbols.AliasExcludes},
		{symbols.Method, symbols.MethodExcludes},
	}
	for _, p := range pairs {
		if flags&p.include != 0 {
			ex |= p.exclude
		}
	}
	return ex
}

// initGlobals merges the top-level declarations of every script file into
// one global table. Module files keep their own scope.
func (c *Checker) initGlobals() {
	c.globals = symbols.NewTable()
	for _, f := range c.prog.Files {
		res, ok := c.sess.Results[f]
		if !ok || res.Module {
			continue
		}
		res.Locals.Each(func(name source.StringID, id symbols.SymbolID) {
			existing, found := c.globals.Get(name)
			if !found {
				c.globals.Set(name, id)
				return
			}
			if existing == id {
				return
			}
			if c.syms.Flags(existing)&excludesOf(c.syms.Flags(id)) != 0 {
				for _, d := range c.syms.Get(id).Decls {
					at := c.nodes.Name(d)
					if !at.IsValid() {
						at = d
					}
					c.error(at, diag.BindDuplicateIdentifier, "Duplicate identifier '%s'.", c.text(name))
				}
				return
			}
			c.mergeSymbol(existing, id)
			res.Locals.Set(name, existing)
		})
	}
}

// mergeSymbol folds src into dst: declarations, flags and member tables.
func (c *Checker) mergeSymbol(dst, src symbols.SymbolID) {
	d, s := c.syms.Get(dst), c.syms.Get(src)
	d.Flags |= s.Flags
	for _, decl := range s.Decls {
		isValue := s.ValueDecl == decl
		d.AddDecl(decl, isValue, isValue && !d.ValueDecl.IsValid())
		c.sess.DeclSymbol[decl] = dst
	}
	mergeTables := func(into **symbols.Table, from *symbols.Table) {
		from.Each(func(name source.StringID, id symbols.SymbolID) {
			if *into == nil {
				*into = symbols.NewTable()
			}
			if have, ok := (*into).Get(name); ok && have != id {
				c.mergeSymbol(have, id)
				return
			}
			(*into).Set(name, id)
			if m := c.syms.Get(id); m != nil {
				m.Parent = dst
			}
		})
	}
	mergeTables(&d.Members, s.Members)
	mergeTables(&d.Exports, s.Exports)
}

// symbolOfDecl returns the (merged) symbol declared by decl.
func (c *Checker) symbolOfDecl(decl ast.NodeID) symbols.SymbolID {
	return c.sess.DeclSymbol[decl]
}

// hasMeaning reports whether sym, seen through aliases, has one of the
// declaration kinds in meaning.
func (c *Checker) hasMeaning(sym symbols.SymbolID, meaning symbols.SymbolFlags) bool {
	flags := c.syms.Flags(sym)
	if flags&meaning != 0 {
		return true
	}
	if flags&symbols.Alias != 0 {
		target := c.resolveAlias(sym)
		return target.IsValid() && c.syms.Flags(target)&meaning != 0
	}
	return false
}

// lookupScopes walks the scopes enclosing location and returns the first
// symbol named name with the requested meaning.
func (c *Checker) lookupScopes(location ast.NodeID, name source.StringID, meaning symbols.SymbolFlags) symbols.SymbolID {
	for n := location; n.IsValid(); n = c.nodes.Parent(n) {
		if table := c.sess.Locals[n]; table != nil {
			if sym, ok := table.Get(name); ok && c.hasMeaning(sym, meaning) {
				return sym
			}
		}
		switch c.kind(n) {
		case ast.KindModuleDeclaration, ast.KindEnumDeclaration:
			// члены слитых объявлений пространства имён видны друг другу
			if owner := c.syms.Get(c.symbolOfDecl(n)); owner != nil {
				if sym, ok := owner.Exports.Get(name); ok && c.hasMeaning(sym, meaning) {
					return sym
				}
			}
		}
	}
	if sym, ok := c.globals.Get(name); ok && c.hasMeaning(sym, meaning) {
		return sym
	}
	return symbols.NoSymbolID
}

// resolveName resolves an identifier. When nothing is found and report is
// set, a diagnostic is emitted at location: 2693/2749 when the name exists
// with the other meaning, 2304/2503 otherwise.
func (c *Checker) resolveName(location ast.NodeID, name string, meaning symbols.SymbolFlags, report bool) symbols.SymbolID {
	id := c.strings.Intern(name)
	if sym := c.lookupScopes(location, id, meaning); sym.IsValid() {
		return sym
	}
	if !report {
		return symbols.NoSymbolID
	}
	switch {
	case meaning&symbols.Value != 0 && c.lookupScopes(location, id, symbols.Type).IsValid():
		c.error(location, diag.CheckTypeUsedAsValue, "'%s' only refers to a type, but is being used as a value here.", name)
	case meaning&symbols.Type != 0 && c.lookupScopes(location, id, symbols.Value).IsValid():
		c.error(location, diag.CheckValueUsedAsType, "'%s' refers to a value, but is being used as a type here.", name)
	case meaning == symbols.Namespace:
		c.error(location, diag.CheckCannotFindNamespace, "Cannot find namespace '%s'.", name)
	default:
		c.error(location, diag.CheckCannotFindName, "Cannot find name '%s'.", name)
	}
	return symbols.NoSymbolID
}

// resolveEntityName resolves an identifier or a qualified name (`A.B.C`)
// with meaning applied to the last segment.
func (c *Checker) resolveEntityName(node ast.NodeID, meaning symbols.SymbolFlags, report bool) symbols.SymbolID {
	l := c.nodeLink(node)
	if l.symDone {
		return l.sym
	}
	var sym symbols.SymbolID
	switch c.kind(node) {
	case ast.KindIdentifier:
		sym = c.resolveName(node, c.identText(node), meaning, report)
	case ast.KindQualifiedName, ast.KindPropertyAccess:
		e, _ := c.nodes.Expr(node)
		left := c.resolveEntityName(e.Left, symbols.Namespace, report)
		if left.IsValid() {
			left = c.resolveAliasOrSelf(left)
			name := c.identText(e.Right)
			exports := c.exportsOf(left)
			if s, ok := exports.Get(c.strings.Intern(name)); ok && c.hasMeaning(s, meaning) {
				sym = s
			} else if report {
				c.error(e.Right, diag.CheckNoExportedMember, "Namespace '%s' has no exported member '%s'.", c.symbolName(left), name)
			}
		}
		c.nodeLink(e.Right).sym, c.nodeLink(e.Right).symDone = sym, true
	}
	l.sym, l.symDone = sym, true
	return sym
}

// exportsOf returns the export table of a namespace, enum, class or module
// symbol.
func (c *Checker) exportsOf(sym symbols.SymbolID) *symbols.Table {
	s := c.syms.Get(sym)
	if s == nil {
		return nil
	}
	return s.Exports
}

func (c *Checker) resolveAliasOrSelf(sym symbols.SymbolID) symbols.SymbolID {
	if c.syms.Flags(sym)&symbols.Alias == 0 {
		return sym
	}
	if t := c.resolveAlias(sym); t.IsValid() {
		return t
	}
	return sym
}

// resolveAlias follows an import binding to the exported symbol of the
// target module. Unresolvable imports yield NoSymbolID after reporting.
func (c *Checker) resolveAlias(sym symbols.SymbolID) symbols.SymbolID {
	l := c.symLink(sym)
	switch l.targetState {
	case stateDone:
		return l.target
	case stateResolving:
		return symbols.NoSymbolID
	}
	if !c.pushResolution(resolveAlias, uint32(sym)) {
		return symbols.NoSymbolID
	}
	c.markResolving(&l.targetState)
	target := c.resolveImportTarget(sym)
	if !c.popResolution() {
		decl := c.syms.Get(sym).FirstDecl()
		c.error(decl, diag.CheckCircularImportAlias, "Circular definition of import alias '%s'.", c.symbolName(sym))
		target = symbols.NoSymbolID
	}
	l.target, l.targetState = target, stateDone
	return target
}

func (c *Checker) resolveImportTarget(sym symbols.SymbolID) symbols.SymbolID {
	spec := c.syms.Get(sym).FirstDecl()
	if c.kind(spec) != ast.KindImportSpecifier {
		return symbols.NoSymbolID
	}
	decl := c.nodes.Parent(spec)
	im, ok := c.nodes.Import(decl)
	if !ok {
		internalf(spec, "import specifier outside of an import declaration")
	}
	file, found := c.prog.Modules.Resolve(c.fileNode(decl), im.Module)
	if !found {
		c.error(decl, diag.CheckModuleNotFound, "Cannot find module '%s'.", im.Module)
		return symbols.NoSymbolID
	}
	res, ok := c.sess.Results[file]
	if !ok || !res.Module {
		c.error(decl, diag.CheckModuleNotFound, "File '%s' is not a module.", im.Module)
		return symbols.NoSymbolID
	}
	e, _ := c.nodes.Expr(spec)
	nameNode := e.Left
	if !nameNode.IsValid() {
		nameNode = e.Right
	}
	name := c.identText(nameNode)
	target, ok := res.Exports.Get(c.strings.Intern(name))
	if !ok {
		c.error(nameNode, diag.CheckNoExportedMember, "Module '%s' has no exported member '%s'.", im.Module, name)
		return symbols.NoSymbolID
	}
	if c.syms.Flags(target)&symbols.Alias != 0 {
		return c.resolveAlias(target)
	}
	return target
}
