package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"stc/internal/diag"
	"stc/internal/source"
)

func TestSarifOutput(t *testing.T) {
	bag, fs, id := sampleBag("src/m.ts")
	bag.Add(diag.NewError(diag.BindDuplicateIdentifier, source.Span{File: id, Start: 4, End: 5}, "Duplicate identifier 'a'.").
		WithNote(source.Span{File: id, Start: 4, End: 5}, "declared here").
		WithNote(source.Span{}, "second line"))
	bag.Add(diag.New(diag.SevWarning, diag.ProjImportCycle, source.Span{File: id}, "cycle"))

	var buf bytes.Buffer
	meta := SarifRunMeta{ToolVersion: "1.2.3", InvocationArgs: []string{"stc", "check"}}
	if err := Sarif(&buf, bag, fs, meta); err != nil {
		t.Fatalf("Sarif: %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v\n%s", err, buf.String())
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("version %q runs %d", log.Version, len(log.Runs))
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "stc" || run.Tool.Driver.Version != "1.2.3" {
		t.Fatalf("driver = %+v", run.Tool.Driver)
	}
	var ids []string
	for _, r := range run.Tool.Driver.Rules {
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "TS2300" || ids[1] != "TS2322" || ids[2] != "TS6202" {
		t.Fatalf("rules = %v", ids)
	}
	if len(run.Invocations) != 1 || run.Invocations[0].ExecutionSuccessful {
		t.Fatalf("invocations = %+v", run.Invocations)
	}

	if len(run.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(run.Results))
	}
	first := run.Results[0]
	if first.RuleID != "TS2322" || first.RuleIndex != 1 || first.Level != "error" {
		t.Fatalf("first result = %+v", first)
	}
	region := first.Locations[0].PhysicalLocation.Region
	if first.Locations[0].PhysicalLocation.ArtifactLocation.URI != "src/m.ts" ||
		region.StartLine != 2 || region.StartColumn != 7 || region.ByteOffset != 17 || region.ByteLength != 1 {
		t.Fatalf("first location = %+v", first.Locations[0])
	}

	dup := run.Results[1]
	if dup.Message.Text != "Duplicate identifier 'a'.\nsecond line" {
		t.Fatalf("message = %q", dup.Message.Text)
	}
	if len(dup.RelatedLocations) != 1 || dup.RelatedLocations[0].Message.Text != "declared here" {
		t.Fatalf("related = %+v", dup.RelatedLocations)
	}
	if run.Results[2].Level != "warning" || run.Results[2].RuleIndex != 2 {
		t.Fatalf("warning result = %+v", run.Results[2])
	}
}

func TestSarifEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Sarif(&buf, diag.NewBag(0), source.NewFileSet(), SarifRunMeta{ToolName: "x"}); err != nil {
		t.Fatal(err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatal(err)
	}
	if log.Runs[0].Results == nil || len(log.Runs[0].Results) != 0 {
		t.Fatalf("results = %#v, want empty array", log.Runs[0].Results)
	}
	if log.Runs[0].Invocations != nil {
		t.Fatalf("invocations without args")
	}
}
