package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevSuggestion is for hints an editor may surface but builds ignore.
	SevSuggestion Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevSuggestion:
		return "SUGGESTION"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
