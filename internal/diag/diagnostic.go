package diag

import (
	"stc/internal/source"
)

// Note attaches secondary context to a diagnostic. A note with an empty
// span is an elaboration line ("Types of property 'x' are incompatible.").
type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

// File returns the file the diagnostic points at.
func (d *Diagnostic) File() source.FileID { return d.Primary.File }

// Start returns the byte offset of the primary span.
func (d *Diagnostic) Start() uint32 { return d.Primary.Start }

// Length returns the byte length of the primary span.
func (d *Diagnostic) Length() uint32 { return d.Primary.Len() }
