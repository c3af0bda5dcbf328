package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stc/internal/prof"
	"stc/internal/version"
)

// errCheckFailed is returned when diagnostics were printed and at least one
// of them is an error. main exits with 1 without printing it again.
var errCheckFailed = errors.New("check reported errors")

// cli is one invocation: the command tree plus the profilers it started.
type cli struct {
	root     *cobra.Command
	profiles *prof.Session
}

// newCLI builds the command tree. Tests build a fresh tree per run so
// flag values never leak between invocations.
func newCLI() *cli {
	c := &cli{}
	root := &cobra.Command{
		Use:           "stc",
		Short:         "Structural type checker for AST documents",
		Long:          `stc checks programs delivered as YAML AST documents against a structural type system`,
		Version:       version.Current().Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyColorMode(cmd); err != nil {
				return err
			}
			session, err := setupProfiling(cmd)
			c.profiles = session
			return err
		},
	}

	// Глобальные флаги
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("timings", false, "show timing information")
	root.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	root.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	root.PersistentFlags().String("trace-mode", "", "trace storage (stream|ring|both)")
	root.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	root.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a Go runtime execution trace to file")

	root.AddCommand(newCheckCmd(), newTypesCmd(), newInitCmd(), newVersionCmd())
	c.root = root
	return c
}

// Execute runs the command and stops any profiler it started.
func (c *cli) Execute() error {
	err := c.root.Execute()
	if stopErr := c.profiles.Stop(); stopErr != nil {
		fmt.Fprintf(c.root.ErrOrStderr(), "failed to write profiles: %v\n", stopErr)
	}
	return err
}

// main runs the CLI. Errors other than a failed check are printed to stderr;
// every error exits with status 1.
func main() {
	if err := newCLI().Execute(); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "stc: %v\n", err)
		}
		os.Exit(1)
	}
}

// applyColorMode sets the process-wide colour switch from --color.
func applyColorMode(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "", "auto":
		color.NoColor = !isTerminal(cmd.OutOrStdout())
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal проверяет, является ли вывод терминалом
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
