package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stc/internal/diagfmt"
)

const libDoc = `path: lib/math.ts
module: true
statements:
  - kind: FunctionDeclaration
    flags: [export]
    name: add
    params:
      - {kind: Parameter, name: a, type: {kind: NumberKeyword}}
      - {kind: Parameter, name: b, type: {kind: NumberKeyword}}
    type: {kind: NumberKeyword}
    body:
      kind: Block
      items:
        - {kind: Return, expr: a}
  - kind: VariableStatement
    flags: [const, export]
    items:
      - {kind: VariableDeclaration, name: pi, init: {kind: NumericLiteral, text: "%s"}}
`

const mainDoc = `path: app/main.ts
module: true
text: |
  import { add } from "../lib/math"
  const r: string = add(1, 2)
statements:
  - kind: ImportDeclaration
    from: ../lib/math
    span: [0, 33]
    items:
      - {kind: ImportSpecifier, name: add}
  - kind: VariableStatement
    flags: [const]
    span: [34, 61]
    items:
      - kind: VariableDeclaration
        name: {kind: Identifier, text: r, span: [40, 41]}
        type: {kind: StringKeyword}
        init:
          kind: Call
          expr: add
          args:
            - {kind: NumericLiteral, text: "1"}
            - {kind: NumericLiteral, text: "2"}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// writeProject lays out app/main importing lib/math; pi is the literal
// text of the exported constant.
func writeProject(t *testing.T, dir, pi string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "lib", "math.ast.yaml"), fmt.Sprintf(libDoc, pi))
	writeFile(t, filepath.Join(dir, "app", "main.ast.yaml"), mainDoc)
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	c := newCLI()
	var out, errOut bytes.Buffer
	c.root.SetOut(&out)
	c.root.SetErr(&errOut)
	c.root.SetArgs(args)
	err = c.Execute()
	return out.String(), errOut.String(), err
}

func TestCheckPretty(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "3")
	out, _, err := execute(t, "--color", "off", "check", "--no-cache", dir)
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("err = %v, want errCheckFailed", err)
	}
	if !strings.Contains(out, "app/main.ts:2:7: ERROR TS2322:") {
		t.Fatalf("missing 2322 header:\n%s", out)
	}
	if !strings.Contains(out, "const r: string = add(1, 2)") || !strings.Contains(out, "1 error, 0 warnings") {
		t.Fatalf("missing snippet or summary:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour escapes with --color off:\n%q", out)
	}
}

func TestCheckJSONAndSarif(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "3")

	out, _, err := execute(t, "check", "--no-cache", "--format", "json", dir)
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("json err = %v", err)
	}
	var doc diagfmt.DiagnosticsOutput
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if doc.Count != 1 || doc.Diagnostics[0].Code != "TS2322" || doc.Diagnostics[0].Location.StartLine != 2 {
		t.Fatalf("json = %+v", doc)
	}

	out, _, _ = execute(t, "check", "--no-cache", "--format", "sarif", dir)
	var sarif struct {
		Version string `json:"version"`
		Runs    []struct {
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &sarif); err != nil {
		t.Fatalf("invalid SARIF: %v\n%s", err, out)
	}
	if sarif.Version != "2.1.0" || len(sarif.Runs) != 1 || len(sarif.Runs[0].Results) != 1 ||
		sarif.Runs[0].Results[0].RuleID != "TS2322" {
		t.Fatalf("sarif = %+v", sarif)
	}
}

func TestCheckCleanProjectWithTimings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "math.ast.yaml"), fmt.Sprintf(libDoc, "3"))
	out, errOut, err := execute(t, "--color", "off", "--timings", "check", "--no-cache", dir)
	if err != nil {
		t.Fatalf("clean project failed: %v\n%s", err, out)
	}
	if out != "" {
		t.Fatalf("clean project printed %q", out)
	}
	if !strings.Contains(errOut, "timings:") || !strings.Contains(errOut, "check") {
		t.Fatalf("timings missing from stderr:\n%s", errOut)
	}
}

func TestCheckRejectsUnknownFormat(t *testing.T) {
	_, _, err := execute(t, "check", "--format", "xml", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := execute(t, "--color", "sometimes", "version"); err == nil {
		t.Fatalf("invalid --color accepted")
	}
}

func TestInitThenCheckTracksShapes(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := filepath.Join(t.TempDir(), "demo")

	out, _, err := execute(t, "init", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, `"demo"`) {
		t.Fatalf("init output %q", out)
	}
	if _, _, err := execute(t, "init", dir); err == nil || !strings.Contains(err.Error(), "already initialized") {
		t.Fatalf("second init err = %v", err)
	}

	writeProject(t, dir, "3")
	out, _, _ = execute(t, "--color", "off", "check", dir)
	if strings.Contains(out, "shape") {
		t.Fatalf("first run reported shape changes:\n%s", out)
	}

	writeProject(t, dir, "4")
	out, _, _ = execute(t, "--color", "off", "check", dir)
	if !strings.Contains(out, "public shape changed: lib/math") || !strings.Contains(out, "affected by shape change: app/main") {
		t.Fatalf("shape change not reported:\n%s", out)
	}

	out, _, _ = execute(t, "--color", "off", "check", dir)
	if strings.Contains(out, "shape") {
		t.Fatalf("unchanged run reported shape changes:\n%s", out)
	}
}

func TestTypesCommand(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "3")
	out, _, err := execute(t, "types", filepath.Join(dir, "lib", "math.ast.yaml"))
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	for _, want := range []string{"add:", "(a: number, b: number) => number", "pi:", "3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("types output lacks %q:\n%s", want, out)
		}
	}
	if _, _, err := execute(t, "types", filepath.Join(dir, "notes.txt")); err == nil {
		t.Fatalf("non-document accepted")
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := execute(t, "version", "--format", "json", "--full")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.Tool != "stc" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestHeapProfileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.pprof")
	if _, _, err := execute(t, "--mem-profile", path, "version"); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("heap profile not written: %v", err)
	}
}
