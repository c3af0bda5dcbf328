package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stc/internal/diag"
	"stc/internal/diagfmt"
	"stc/internal/driver"
	"stc/internal/observ"
	"stc/internal/project"
	"stc/internal/version"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Type-check every AST document of a project",
		Long: `Check loads stc.toml (searching upward from dir), decodes every *.ast.yaml
document under the project root and checks them as one program. Without a
manifest, dir itself is the root.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	cmd.Flags().Int("max-diagnostics", 0, "maximum number of diagnostics per file (0 = manifest value)")
	cmd.Flags().Bool("strict-null-checks", true, "treat null and undefined as distinct types")
	cmd.Flags().Bool("no-cache", false, "do not read or write the public-shape cache")
	cmd.Flags().Int("jobs", 0, "max parallel document decoders (0=auto)")
	cmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	cmd.Flags().String("ui", "auto", "show progress UI while checking (auto|on|off)")
	return cmd
}

// checkTarget is the resolved project of a check or types run.
type checkTarget struct {
	manifest *project.Manifest // nil without stc.toml
	root     string            // directory scanned for documents
	cacheDir string            // directory the shape cache is keyed by
}

func resolveTarget(dir string) (checkTarget, error) {
	m, found, err := project.LoadProjectManifest(dir)
	if err != nil {
		return checkTarget{}, err
	}
	if !found {
		st, err := os.Stat(dir)
		if err != nil {
			return checkTarget{}, fmt.Errorf("failed to stat path: %w", err)
		}
		if !st.IsDir() {
			return checkTarget{}, fmt.Errorf("%q is not a directory", dir)
		}
		return checkTarget{root: dir, cacheDir: dir}, nil
	}
	root, err := m.SourceRoot()
	if err != nil {
		return checkTarget{}, fmt.Errorf("%s: %w", m.Path, err)
	}
	return checkTarget{manifest: m, root: root, cacheDir: m.Dir}, nil
}

func (t checkTarget) traceConfig() project.TraceConfig {
	if t.manifest == nil {
		return project.TraceConfig{}
	}
	return t.manifest.Trace
}

// runCheck executes the "check" command: it resolves the project, runs the
// driver, prints diagnostics in the chosen format and returns errCheckFailed
// when any error diagnostic was reported.
func runCheck(cmd *cobra.Command, args []string) (err error) {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "pretty", "json", "sarif":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	target, err := resolveTarget(dir)
	if err != nil {
		return err
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

	stderr := cmd.ErrOrStderr()
	if !noCache {
		opts.Cache = openCache(stderr, target.cacheDir)
	}

	var res *driver.Result
	if format == "pretty" && shouldUseTUI(mode, cmd.OutOrStdout()) {
		res, err = runCheckWithUI(cmd.Context(), cmd.OutOrStdout(), target.root, opts)
	} else {
		res, err = driver.CheckDir(cmd.Context(), target.root, opts)
	}
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	if err := opts.Cache.Save(); err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}

	bag := diag.NewBag(0)
	for _, d := range res.Diagnostics() {
		bag.Add(d)
	}
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		diagfmt.Pretty(out, bag, res.Sources(), diagfmt.PrettyOpts{
			Color:     !color.NoColor,
			Context:   1,
			PathMode:  pathMode,
			ShowNotes: withNotes,
		})
		diagfmt.Summary(out, bag, !color.NoColor)
		printShapeChanges(out, res)
	case "json":
		err = diagfmt.JSON(out, bag, res.Sources(), diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
		})
	case "sarif":
		err = diagfmt.Sarif(out, bag, res.Sources(), diagfmt.SarifRunMeta{
			ToolName:       "stc",
			ToolVersion:    version.Current().Version,
			InvocationArgs: os.Args,
			PathMode:       pathMode,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to format diagnostics: %w", err)
	}

	if opts.Timer != nil {
		fmt.Fprint(stderr, opts.Timer.Summary())
	}
	if res.HasErrors() {
		return errCheckFailed
	}
	return nil
}

// driverOptions maps the manifest onto driver options and applies flag
// overrides on top.
func driverOptions(cmd *cobra.Command, m *project.Manifest) (driver.Options, error) {
	opts := driver.OptionsFromManifest(m)
	flags := cmd.Flags()
	if flags.Lookup("max-diagnostics") != nil && flags.Changed("max-diagnostics") {
		n, err := flags.GetInt("max-diagnostics")
		if err != nil {
			return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
		if n < 0 {
			return opts, fmt.Errorf("--max-diagnostics must be >= 0")
		}
		opts.Checker.MaxDiagnostics = n
	}
	if flags.Lookup("strict-null-checks") != nil && flags.Changed("strict-null-checks") {
		v, err := flags.GetBool("strict-null-checks")
		if err != nil {
			return opts, fmt.Errorf("failed to get strict-null-checks flag: %w", err)
		}
		opts.Checker.StrictNullChecks = v
	}
	if flags.Lookup("jobs") != nil {
		jobs, err := flags.GetInt("jobs")
		if err != nil {
			return opts, fmt.Errorf("failed to get jobs flag: %w", err)
		}
		opts.Jobs = jobs
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if timings {
		opts.Timer = observ.NewTimer()
	}
	return opts, nil
}

// openCache opens the shape cache of a project. Failures only disable
// shape tracking.
func openCache(stderr io.Writer, projectDir string) *driver.ShapeCache {
	path, err := driver.DefaultCachePath(projectDir)
	if err != nil {
		fmt.Fprintf(stderr, "warning: shape cache disabled: %v\n", err)
		return nil
	}
	cache, err := driver.OpenShapeCache(path)
	if err != nil {
		fmt.Fprintf(stderr, "warning: shape cache disabled: %v\n", err)
		return nil
	}
	return cache
}

func printShapeChanges(out io.Writer, res *driver.Result) {
	for i := range res.Files {
		fr := &res.Files[i]
		switch {
		case fr.ShapeChanged:
			fmt.Fprintf(out, "public shape changed: %s\n", fr.ModulePath)
		case fr.Affected:
			fmt.Fprintf(out, "affected by shape change: %s\n", fr.ModulePath)
		}
	}
}
