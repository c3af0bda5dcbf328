package project

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"stc/internal/ast"
	"stc/internal/source"
)

// ImportMeta is one `import ... from "specifier"` of a module file.
type ImportMeta struct {
	Specifier string
	Path      string // resolved module path; empty when the specifier is invalid
	Span      source.Span
}

type ModuleMeta struct {
	Path        string // нормализованный путь к модулю: "a/b"
	File        ast.NodeID
	Module      bool         // false for global scripts
	Span        source.Span  // span всего файла
	Imports     []ImportMeta // в порядке объявления
	ContentHash Digest       // хеш исходного документа
	ModuleHash  Digest       // агрегированный хеш модуля с учётом зависимостей
}

// sourceExts are stripped from file paths, longest first.
var sourceExts = []string{".ast.yaml", ".ast.yml", ".d.ts", ".tsx", ".ts"}

// NormalizeModulePath приводит путь модуля к каноническому виду "a/b":
// слэши к '/', без расширения, без пустых сегментов, "." и "..".
func NormalizeModulePath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	for _, ext := range sourceExts {
		if strings.HasSuffix(p, ext) {
			p = strings.TrimSuffix(p, ext)
			break
		}
	}
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", errors.New("invalid module path")
	}
	segs := strings.Split(p, "/")
	for _, seg := range segs {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid module path %q", p)
		}
	}
	return strings.Join(segs, "/"), nil
}

// ResolveSpecifier resolves an import specifier written in module from.
// "./x" and "../x" are relative to from's directory; anything else is
// relative to the project root.
func ResolveSpecifier(from, specifier string) (string, error) {
	spec := strings.ReplaceAll(strings.TrimSpace(specifier), "\\", "/")
	if spec == "" {
		return "", errors.New("empty import specifier")
	}
	relative := spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
	var target []string
	if relative {
		if dir := path.Dir(from); dir != "." && dir != "/" {
			target = strings.Split(dir, "/")
		}
	}
	for _, seg := range strings.Split(strings.TrimLeft(spec, "/"), "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(target) == 0 {
				return "", fmt.Errorf("import %q escapes project root", specifier)
			}
			target = target[:len(target)-1]
		default:
			target = append(target, seg)
		}
	}
	if len(target) == 0 {
		return "", fmt.Errorf("import %q resolves to empty path", specifier)
	}
	return NormalizeModulePath(strings.Join(target, "/"))
}

// CollectModuleMeta reads the top-level imports of file. Hashes are left to
// the caller.
func CollectModuleMeta(nodes *ast.Nodes, file ast.NodeID, modulePath string) ModuleMeta {
	meta := ModuleMeta{Path: modulePath, File: file}
	if n := nodes.Get(file); n != nil {
		meta.Span = n.Span
	}
	fd, ok := nodes.File(file)
	if !ok {
		return meta
	}
	meta.Module = fd.Module
	for _, stmt := range fd.Stmts {
		if nodes.Kind(stmt) != ast.KindImportDeclaration {
			continue
		}
		imp, ok := nodes.Import(stmt)
		if !ok {
			continue
		}
		im := ImportMeta{Specifier: imp.Module, Span: nodes.Get(stmt).Span}
		if resolved, err := ResolveSpecifier(modulePath, imp.Module); err == nil {
			im.Path = resolved
		}
		meta.Imports = append(meta.Imports, im)
	}
	return meta
}
