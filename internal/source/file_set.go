package source

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet owns the registry of source files known to one program.
type FileSet struct {
	files []File // files[0] is the NoFileID sentinel
	index map[string]FileID
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 1, 16),
		index: make(map[string]FileID),
	}
}

// Add registers a file with optional original text and returns its id.
// Adding the same path twice yields a new id; lookups by path see the latest.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(n)
	normalized := normalizePath(path)
	if len(content) > 0 {
		flags |= FileHasText
	}
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalized,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.index[normalized] = id
	return id
}

// AddVirtual adds an in-memory file (tests, stdin) flagged FileVirtual.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file metadata for id, or nil for unknown ids.
func (fs *FileSet) Get(id FileID) *File {
	if id == NoFileID || int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Lookup returns the latest file registered under path.
func (fs *FileSet) Lookup(path string) (FileID, bool) {
	id, ok := fs.index[normalizePath(path)]
	return id, ok
}

// Len reports the number of registered files.
func (fs *FileSet) Len() int { return len(fs.files) - 1 }

// IDs returns all file ids in registration order.
func (fs *FileSet) IDs() []FileID {
	out := make([]FileID, 0, len(fs.files)-1)
	for i := 1; i < len(fs.files); i++ {
		out = append(out, fs.files[i].ID)
	}
	return out
}

// SetFlags ORs extra flags into an existing file entry.
func (fs *FileSet) SetFlags(id FileID, flags FileFlags) {
	if f := fs.Get(id); f != nil {
		f.Flags |= flags
	}
}

// Resolve converts a span into 1-based line/column pairs.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{Line: 1, Col: span.Start + 1}, LineCol{Line: 1, Col: span.End + 1}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// GetLine returns the text of a 1-based line, or "" when out of range or
// when the file carries no text.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 || len(f.Content) == 0 {
		return ""
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	lenIdx, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}

	var start uint32
	switch {
	case lineNum == 1:
		start = 0
	case lineNum-2 < lenIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}
	end := lenContent
	if lineNum-1 < lenIdx {
		end = f.LineIdx[lineNum-1]
	}
	if start >= lenContent || start > end {
		return ""
	}
	return string(f.Content[start:end])
}

func normalizePath(path string) string {
	if path == "" {
		return path
	}
	return filepath.ToSlash(filepath.Clean(path))
}
