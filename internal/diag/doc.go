// Package diag defines the diagnostic model shared by the binder, the
// checker and the driver.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Suggestion, Warning or Error.
//   - Code – numeric identifier (codes.go) following the TypeScript catalogue;
//     Code.ID renders it as "TS2322".
//   - Message – human oriented text.
//   - Primary – the source.Span the finding is about; file, start and length
//     are derived from it.
//   - Notes – related locations, and span-less elaboration lines produced by
//     the relation checker ("Types of property 'x' are incompatible.").
//
// # Emitting diagnostics
//
// Phases report through a diag.Reporter so they do not depend on storage.
// ReportBuilder (ReportError / ReportWarning / ReportSuggestion) chains
// WithNote / WithChain before Emit. BagReporter collects into a Bag, which
// supports per-file filtering, sorting by position and deduplication.
//
// Only user-facing findings are diagnostics. Internal invariant failures are
// not represented here; the checker surfaces them as Go errors.
package diag
