package diagfmt

import (
	"path/filepath"
	"strings"

	"stc/internal/source"
)

// autoPathLimit is the length above which PathModeAuto falls back to the basename.
const autoPathLimit = 40

func formatPath(f *source.File, mode PathMode, base string) string {
	if f == nil {
		return "<unknown>"
	}
	p := f.Path
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(filepath.FromSlash(p)); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		if base != "" {
			if rel, err := filepath.Rel(base, filepath.FromSlash(p)); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
	case PathModeBasename:
		return filepath.Base(p)
	case PathModeAuto:
		if filepath.IsAbs(filepath.FromSlash(p)) && len(p) > autoPathLimit {
			return filepath.Base(p)
		}
	}
	return p
}
