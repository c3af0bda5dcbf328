package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"stc/internal/diag"
	"stc/internal/source"
)

type palette struct {
	err, warn, hint, path, gutter, caret, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		hint:   color.New(color.FgCyan),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
		note:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.hint, p.path, p.gutter, p.caret, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.hint
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	pal := newPalette(opts.Color)
	for _, d := range bag.Items() {
		start, _ := fs.Resolve(d.Primary)
		file := fs.Get(d.Primary.File)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			pal.path.Sprintf("%s:%d:%d", formatPath(file, opts.PathMode, opts.BaseDir), start.Line, start.Col),
			pal.severity(d.Severity).Sprint(d.Severity.String()),
			d.Code.ID(),
			d.Message)
		writeSnippet(w, fs, d.Primary, int(opts.Context), pal)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if n.Span.File == source.NoFileID {
				// элаборация без позиции
				fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("="), n.Msg)
				continue
			}
			ns, _ := fs.Resolve(n.Span)
			nf := fs.Get(n.Span.File)
			fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", pal.note.Sprint("note:"),
				formatPath(nf, opts.PathMode, opts.BaseDir), ns.Line, ns.Col, n.Msg)
		}
	}
}

// writeSnippet prints context lines and the primary line with a caret
// underline. Files without text print nothing.
func writeSnippet(w io.Writer, fs *source.FileSet, span source.Span, context int, pal palette) {
	f := fs.Get(span.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(span)
	line := f.GetLine(start.Line)
	first := max(int(start.Line)-context, 1)
	width := len(fmt.Sprint(start.Line))
	for ln := first; ln <= int(start.Line); ln++ {
		text := f.GetLine(uint32(ln)) //nolint:gosec // ln <= start.Line
		fmt.Fprintf(w, " %s %s\n", pal.gutter.Sprintf("%*d |", width, ln), expandTabs(text))
	}

	col := min(int(start.Col)-1, len(line))
	stop := len(line)
	if end.Line == start.Line {
		stop = min(max(int(end.Col)-1, col), len(line))
	}
	pad := runewidth.StringWidth(expandTabs(line[:col]))
	marks := max(runewidth.StringWidth(expandTabs(line[col:stop])), 1)
	underline := "^" + strings.Repeat("~", marks-1)
	fmt.Fprintf(w, " %s %s%s\n", pal.gutter.Sprintf("%*s |", width, ""), strings.Repeat(" ", pad), pal.caret.Sprint(underline))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

// Summary prints "N errors, M warnings" for a non-empty bag.
func Summary(w io.Writer, bag *diag.Bag, colored bool) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	pal := newPalette(colored)
	fmt.Fprintf(w, "%s, %s\n",
		pal.err.Sprint(plural(errs, "error")),
		pal.warn.Sprint(plural(warns, "warning")))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
