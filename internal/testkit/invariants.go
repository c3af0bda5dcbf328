package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"stc/internal/ast"
	"stc/internal/source"
)

// CheckTreeInvariants runs a minimal set of structural invariants on one
// built file:
// 1) the root is a SourceFile whose span points at its registered source
// 2) every descendant's Parent is the node it was reached from
// 3) every span is ordered and belongs to the file's source
// 4) when the file carries text, no span ends beyond it
func CheckTreeInvariants(nodes *ast.Nodes, files *source.FileSet, file ast.NodeID) error {
	if nodes == nil || files == nil {
		return fmt.Errorf("nil nodes or file set")
	}
	root := nodes.Get(file)
	if root == nil || root.Kind != ast.KindSourceFile {
		return fmt.Errorf("node %d is not a source file", file)
	}
	fd, ok := nodes.File(file)
	if !ok {
		return fmt.Errorf("file payload missing for node %d", file)
	}
	sf := files.Get(fd.File)
	if sf == nil {
		return fmt.Errorf("source %d not registered", fd.File)
	}
	if root.Span.File != sf.ID {
		return fmt.Errorf("file span points to different file id: got=%d want=%d", root.Span.File, sf.ID)
	}
	limit := ^uint32(0)
	if len(sf.Content) > 0 {
		n, err := safecast.Conv[uint32](len(sf.Content))
		if err != nil {
			return fmt.Errorf("len content overflow: %w", err)
		}
		limit = n
	}

	var walk func(parent ast.NodeID) error
	walk = func(parent ast.NodeID) error {
		var failed error
		nodes.ForEachChild(parent, func(c ast.NodeID) bool {
			n := nodes.Get(c)
			switch {
			case n.Parent != parent:
				failed = fmt.Errorf("node %d (%s): parent %d, reached from %d", c, n.Kind, n.Parent, parent)
			case n.Span.File != sf.ID:
				failed = fmt.Errorf("node %d (%s): span file %d, want %d", c, n.Kind, n.Span.File, sf.ID)
			case n.Span.End < n.Span.Start:
				failed = fmt.Errorf("node %d (%s): reversed span %v", c, n.Kind, n.Span)
			case n.Span.End > limit:
				failed = fmt.Errorf("node %d (%s): span %v beyond content length %d", c, n.Kind, n.Span, limit)
			default:
				failed = walk(c)
			}
			return failed != nil
		})
		return failed
	}
	return walk(file)
}
