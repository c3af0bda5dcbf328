package driver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stc/internal/astio"
	"stc/internal/project"
	"stc/internal/trace"
)

// DocumentExts are the file suffixes LoadDir picks up.
var DocumentExts = []string{".ast.yaml", ".ast.yml"}

// IsDocument reports whether path names an AST document.
func IsDocument(path string) bool {
	for _, ext := range DocumentExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// ListDocuments возвращает отсортированный список всех AST-документов в директории
func ListDocuments(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && IsDocument(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

// loaded is one decoded document. Err is set when the file could not be
// read or decoded; the program still carries a diagnostic for it.
type loaded struct {
	Path       string // path on disk
	ModulePath string
	Doc        *astio.Document
	Hash       project.Digest
	Err        error
}

// decodeAll reads and decodes paths in parallel. Results keep the input
// order; per-document failures land in loaded.Err, while cancellation is
// returned as an error.
func decodeAll(ctx context.Context, root string, paths []string, jobs int, sink ProgressSink) ([]loaded, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "decode_documents", trace.CurrentSpan(ctx)).
		WithExtra("files", fmt.Sprint(len(paths)))
	defer span.End("")

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]loaded, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			emit(sink, Event{File: path, Stage: StageDecode, Status: StatusWorking})
			start := time.Now()
			results[i] = decodeOne(root, path)
			status := StatusDone
			if results[i].Err != nil {
				status = StatusError
			}
			emit(sink, Event{File: path, Stage: StageDecode, Status: status, Err: results[i].Err, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func decodeOne(root, path string) loaded {
	res := loaded{Path: path, ModulePath: modulePathFor(root, path)}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Hash = sha256.Sum256(data)
	doc, err := astio.Decode(bytes.NewReader(data), displayPath(root, path))
	if err != nil {
		res.Err = err
		return res
	}
	res.Doc = doc
	return res
}

// modulePathFor derives the module path from the document location
// relative to root: "<root>/lib/math.ast.yaml" is module "lib/math".
func modulePathFor(root, path string) string {
	rel := displayPath(root, path)
	mp, err := project.NormalizeModulePath(rel)
	if err != nil {
		return rel
	}
	return mp
}

func displayPath(root, path string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
