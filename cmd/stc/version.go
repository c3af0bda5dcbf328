package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"stc/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var (
		format string
		full   bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show stc build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Current()
			switch strings.ToLower(format) {
			case "pretty":
				renderVersionPretty(cmd.OutOrStdout(), info, full)
				return nil
			case "json":
				return renderVersionJSON(cmd.OutOrStdout(), info, full)
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	cmd.Flags().BoolVar(&full, "full", false, "include commit hash and build date")
	return cmd
}

func renderVersionPretty(out io.Writer, info version.Info, full bool) {
	fmt.Fprintf(out, "stc %s\n", version.Colored(info.Version))
	if full {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(info.GitCommit))
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(info.BuildDate))
	}
}

func renderVersionJSON(out io.Writer, info version.Info, full bool) error {
	payload := versionPayload{Tool: "stc", Version: info.Version}
	if full {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
