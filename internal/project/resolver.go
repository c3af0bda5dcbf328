package project

import (
	"fmt"

	"stc/internal/ast"
)

// Resolver maps module paths to source file nodes and resolves import
// specifiers between them. It satisfies checker.ModuleGraph.
type Resolver struct {
	byPath map[string]ast.NodeID
	pathOf map[ast.NodeID]string
}

func NewResolver() *Resolver {
	return &Resolver{
		byPath: make(map[string]ast.NodeID),
		pathOf: make(map[ast.NodeID]string),
	}
}

// Add registers file under a normalised modulePath.
func (r *Resolver) Add(modulePath string, file ast.NodeID) error {
	if prev, ok := r.byPath[modulePath]; ok && prev != file {
		return fmt.Errorf("duplicate module %q", modulePath)
	}
	r.byPath[modulePath] = file
	r.pathOf[file] = modulePath
	return nil
}

// Path returns the module path file was registered under.
func (r *Resolver) Path(file ast.NodeID) (string, bool) {
	p, ok := r.pathOf[file]
	return p, ok
}

// Lookup finds a module by path, falling back to "<path>/index".
func (r *Resolver) Lookup(modulePath string) (ast.NodeID, bool) {
	if id, ok := r.byPath[modulePath]; ok {
		return id, true
	}
	id, ok := r.byPath[modulePath+"/index"]
	return id, ok
}

func (r *Resolver) Resolve(from ast.NodeID, specifier string) (ast.NodeID, bool) {
	resolved, err := ResolveSpecifier(r.pathOf[from], specifier)
	if err != nil {
		return ast.NoNodeID, false
	}
	return r.Lookup(resolved)
}

// Len reports the number of registered modules.
func (r *Resolver) Len() int { return len(r.byPath) }

// Canonical maps a resolved import path to the path of the module Lookup
// would pick.
func (r *Resolver) Canonical(modulePath string) (string, bool) {
	id, ok := r.Lookup(modulePath)
	if !ok {
		return "", false
	}
	return r.pathOf[id], true
}
