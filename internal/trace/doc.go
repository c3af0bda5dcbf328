// Package trace provides structured tracing for the checker pipeline.
//
// # Usage
//
//	stc check --trace=- --trace-level=phase --trace-mode=stream
//
// # Tracers
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write (stderr or file), text or NDJSON
//   - RingTracer: circular buffer dumped after internal failures
//   - MultiTracer: fan-out
//
// # Scopes and levels
//
// LevelPhase emits driver and pass boundaries; LevelDetail adds per-file and
// per-symbol resolution; LevelDebug adds relation/inference/narrowing events
// (cycle assumptions, depth limits, loop bound fallbacks).
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "check", trace.CurrentSpan(ctx))
//	defer span.End("")
package trace
