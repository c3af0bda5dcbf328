package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stc/internal/project"
	"stc/internal/trace"
)

// setupTracing builds the tracer from the [trace] manifest section with
// flags taking precedence, and attaches it to the command context.
// The returned cleanup flushes the tracer; failed runs also dump the ring.
func setupTracing(cmd *cobra.Command, cfg project.TraceConfig) (func(failed bool), error) {
	flags := cmd.Root().PersistentFlags()
	override := func(name string, dst *string) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
		return nil
	}
	if err := override("trace", &cfg.Output); err != nil {
		return nil, err
	}
	if err := override("trace-level", &cfg.Level); err != nil {
		return nil, err
	}
	if err := override("trace-mode", &cfg.Mode); err != nil {
		return nil, err
	}
	// --trace без уровня включает фазы
	if cfg.Output != "" && (cfg.Level == "" || cfg.Level == "off") && !flags.Changed("trace-level") {
		cfg.Level = "phase"
	}

	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(bool) {}, nil
	}
	mode, err := trace.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(trace.Config{Level: level, Mode: mode, OutputPath: cfg.Output})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	cleanup := func(failed bool) {
		if failed {
			dumpRing(cmd, tracer)
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// dumpRing prints the buffered events of a ring tracer to stderr.
func dumpRing(cmd *cobra.Command, t trace.Tracer) {
	var rings []*trace.RingTracer
	switch v := t.(type) {
	case *trace.RingTracer:
		rings = append(rings, v)
	case *trace.MultiTracer:
		rings = append(rings, v.Rings()...)
	}
	for _, r := range rings {
		fmt.Fprintln(cmd.ErrOrStderr(), "== trace ==")
		if err := r.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
		}
	}
}
