package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

// NoFileID marks the absence of a file; real files start at 1.
const NoFileID FileID = 0

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	// FileModule marks files that have import/export statements and therefore their own scope.
	FileModule
	// FileHasText is set when the AST document shipped the original source text.
	FileHasText
)

// File captures metadata and (optional) text for a single source file.
// The checker never reads Content; it is kept for diagnostics rendering.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
