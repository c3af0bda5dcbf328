package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is the decoded stc.toml of one project.
type Manifest struct {
	Path string `toml:"-"` // absolute path of stc.toml
	Dir  string `toml:"-"` // directory holding stc.toml

	Project  ProjectConfig  `toml:"project"`
	Compiler CompilerConfig `toml:"compiler"`
	Trace    TraceConfig    `toml:"trace"`
}

type ProjectConfig struct {
	Name string `toml:"name"`
	// Root is the directory of *.ast.yaml documents, relative to the manifest.
	Root string `toml:"root"`
}

// CompilerConfig mirrors the checker switches. Keys absent from the file keep
// the DefaultManifest values.
type CompilerConfig struct {
	StrictNullChecks    bool `toml:"strictNullChecks"`
	StrictFunctionTypes bool `toml:"strictFunctionTypes"`
	NoImplicitAny       bool `toml:"noImplicitAny"`
	MaxDiagnostics      int  `toml:"maxDiagnostics"`
	MaxLoopIterations   int  `toml:"maxLoopIterations"`
	WarnImportCycles    bool `toml:"warnImportCycles"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

var (
	// ErrProjectSectionMissing indicates that [project] is missing in stc.toml.
	ErrProjectSectionMissing = errors.New("missing [project]")
	// ErrProjectNameMissing indicates that [project].name is missing or blank.
	ErrProjectNameMissing = errors.New("missing [project].name")
)

// DefaultManifest returns the settings `stc init` writes.
func DefaultManifest(name string) Manifest {
	return Manifest{
		Project: ProjectConfig{Name: name, Root: "."},
		Compiler: CompilerConfig{
			StrictNullChecks:    true,
			StrictFunctionTypes: true,
			MaxLoopIterations:   64,
		},
		Trace: TraceConfig{Level: "off", Mode: "ring"},
	}
}

// LoadManifest decodes and validates the stc.toml at path.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	m := DefaultManifest("")
	meta, err := toml.DecodeFile(abs, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", abs, undecoded[0].String())
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: %w", abs, ErrProjectSectionMissing)
	}
	m.Project.Name = strings.TrimSpace(m.Project.Name)
	if !meta.IsDefined("project", "name") || m.Project.Name == "" {
		return nil, fmt.Errorf("%s: %w", abs, ErrProjectNameMissing)
	}
	if m.Compiler.MaxDiagnostics < 0 {
		return nil, fmt.Errorf("%s: [compiler].maxDiagnostics must not be negative", abs)
	}
	if m.Compiler.MaxLoopIterations <= 0 {
		return nil, fmt.Errorf("%s: [compiler].maxLoopIterations must be positive", abs)
	}
	m.Path = abs
	m.Dir = filepath.Dir(abs)
	return &m, nil
}

// LoadProjectManifest finds stc.toml upward from startDir and loads it.
func LoadProjectManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// SourceRoot resolves [project].root against the manifest directory.
func (m *Manifest) SourceRoot() (string, error) {
	root := strings.TrimSpace(m.Project.Root)
	if root == "" {
		root = "."
	}
	if filepath.IsAbs(root) {
		return "", fmt.Errorf("invalid [project].root %q: must be relative", root)
	}
	rootPath := filepath.Join(m.Dir, filepath.Clean(filepath.FromSlash(root)))
	if !pathWithin(m.Dir, rootPath) {
		return "", fmt.Errorf("invalid [project].root %q: escapes project directory", root)
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return "", fmt.Errorf("invalid [project].root %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("invalid [project].root %q: not a directory", root)
	}
	return rootPath, nil
}

// WriteManifest encodes m into path. An existing file is not overwritten.
func WriteManifest(path string, m Manifest) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
