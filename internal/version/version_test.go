package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestCurrentTrimsAndDefaults(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version = "  "
	GitCommit = " abc123 \n"
	info := Current()
	if info.Version != "dev" {
		t.Errorf("Version = %q, want dev", info.Version)
	}
	if info.GitCommit != "abc123" {
		t.Errorf("GitCommit = %q, want abc123", info.GitCommit)
	}
}

func TestColoredWithoutColor(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "dev"} {
		if got := Colored(v); got != v {
			t.Errorf("Colored(%q) = %q", v, got)
		}
	}
}

func TestColoredWithColor(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })

	if got := Colored("1.2.3"); got == "1.2.3" {
		t.Errorf("expected escape sequences in %q", got)
	}
}
