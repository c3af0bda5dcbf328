package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stc/internal/ast"
	"stc/internal/diag"
	"stc/internal/diagfmt"
	"stc/internal/driver"
)

func newTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types <file.ast.yaml>",
		Short: "Print the declared type of every top-level declaration",
		Long: `Types checks the project the document belongs to and prints "name: type"
for each top-level declaration of that document. Diagnostics go to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: runTypes,
	}
	cmd.Flags().Bool("strict-null-checks", true, "treat null and undefined as distinct types")
	return cmd
}

func runTypes(cmd *cobra.Command, args []string) (err error) {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if !driver.IsDocument(path) {
		return fmt.Errorf("%s: expected one of %s", args[0], strings.Join(driver.DocumentExts, ", "))
	}
	target, err := resolveTarget(filepath.Dir(path))
	if err != nil {
		return err
	}
	if target.manifest == nil {
		// без манифеста проверяется только сам документ
		target.root = filepath.Dir(path)
	}
	opts, err := driverOptions(cmd, target.manifest)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, target.traceConfig())
	if err != nil {
		return err
	}
	defer func() { cleanup(err != nil && !errors.Is(err, errCheckFailed)) }()

	var res *driver.Result
	if target.manifest == nil {
		res, err = driver.CheckFiles(cmd.Context(), target.root, []string{path}, opts)
	} else {
		res, err = driver.CheckDir(cmd.Context(), target.root, opts)
	}
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	var file *driver.FileResult
	for i := range res.Files {
		if abs, absErr := filepath.Abs(res.Files[i].Path); absErr == nil && abs == path {
			file = &res.Files[i]
			break
		}
	}
	if file == nil {
		return fmt.Errorf("%s is outside the project root %s", args[0], target.root)
	}

	if len(file.Diagnostics) > 0 {
		bag := diag.NewBag(0)
		for _, d := range file.Diagnostics {
			bag.Add(d)
		}
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, res.Sources(), diagfmt.PrettyOpts{PathMode: diagfmt.PathModeAuto})
	}
	if res.Checker == nil || file.File == ast.NoNodeID {
		return errCheckFailed
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', 0)
	for _, nt := range res.Checker.DeclarationTypes(file.File) {
		fmt.Fprintf(tw, "%s:\t%s\n", nt.Name, nt.Text)
	}
	return tw.Flush()
}
