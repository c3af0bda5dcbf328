package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stc/internal/prof"
)

// setupProfiling starts the profilers requested by the persistent flags.
// The session is nil when none is requested.
func setupProfiling(cmd *cobra.Command) (*prof.Session, error) {
	flags := cmd.Root().PersistentFlags()
	var cfg prof.Config
	for name, dst := range map[string]*string{
		"cpu-profile":   &cfg.CPU,
		"mem-profile":   &cfg.Heap,
		"runtime-trace": &cfg.Exec,
	} {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	if !cfg.Enabled() {
		return nil, nil
	}
	return prof.Start(cfg)
}
