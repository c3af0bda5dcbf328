package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stc/internal/project"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a new stc project",
		Long: `Initialize a project by writing a default stc.toml. If [dir] is omitted,
initializes the current directory. A missing directory is created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

// runInit creates the target directory when needed, derives the project
// name from its basename and refuses to overwrite an existing stc.toml.
func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "stc-project"
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if err := project.WriteManifest(manifestPath, project.DefaultManifest(name)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("project already initialized: %s exists", manifestPath)
		}
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err := filepath.Rel(wd, target); err == nil {
			rel = r
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized stc project %q in %s\n", name, rel)
	fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", project.ManifestName)
	return nil
}
