package diagfmt

import (
	"encoding/json"
	"io"
	"sort"

	"stc/internal/diag"
	"stc/internal/source"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID           string          `json:"ruleId"`
	RuleIndex        int             `json:"ruleIndex"`
	Level            string          `json:"level"`
	Message          sarifMessage    `json:"message"`
	Locations        []sarifLocation `json:"locations"`
	RelatedLocations []sarifLocation `json:"relatedLocations,omitempty"`
}

type sarifLocation struct {
	ID               *int                  `json:"id,omitempty"`
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine"`
	EndColumn   uint32 `json:"endColumn"`
	ByteOffset  uint32 `json:"byteOffset"`
	ByteLength  uint32 `json:"byteLength"`
}

func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

func sarifLocate(span source.Span, fs *source.FileSet, meta SarifRunMeta) sarifLocation {
	start, end := fs.Resolve(span)
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifact{URI: formatPath(fs.Get(span.File), meta.PathMode, meta.BaseDir)},
			Region: sarifRegion{
				StartLine:   start.Line,
				StartColumn: start.Col,
				EndLine:     end.Line,
				EndColumn:   end.Col,
				ByteOffset:  span.Start,
				ByteLength:  span.Len(),
			},
		},
	}
}

// Sarif форматирует диагностики в SARIF формат (v2.1.0).
// Один run, правила по кодам в порядке возрастания, заметки с позицией
// уходят в relatedLocations, без позиции дописываются к сообщению.
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	var items []*diag.Diagnostic
	if bag != nil {
		items = bag.Items()
	}

	codes := make([]diag.Code, 0, len(items))
	seen := make(map[diag.Code]bool, len(items))
	for _, d := range items {
		if !seen[d.Code] {
			seen[d.Code] = true
			codes = append(codes, d.Code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	ruleIndex := make(map[diag.Code]int, len(codes))
	rules := make([]sarifRule, len(codes))
	for i, c := range codes {
		ruleIndex[c] = i
		rules[i] = sarifRule{ID: c.ID(), ShortDescription: sarifMessage{Text: c.Title()}}
	}

	failed := false
	results := make([]sarifResult, 0, len(items))
	for _, d := range items {
		if d.Severity == diag.SevError {
			failed = true
		}
		text := d.Message
		var related []sarifLocation
		for _, n := range d.Notes {
			if n.Span.File == source.NoFileID {
				text += "\n" + n.Msg
				continue
			}
			loc := sarifLocate(n.Span, fs, meta)
			id := len(related)
			loc.ID = &id
			loc.Message = &sarifMessage{Text: n.Msg}
			related = append(related, loc)
		}
		results = append(results, sarifResult{
			RuleID:           d.Code.ID(),
			RuleIndex:        ruleIndex[d.Code],
			Level:            sarifLevel(d.Severity),
			Message:          sarifMessage{Text: text},
			Locations:        []sarifLocation{sarifLocate(d.Primary, fs, meta)},
			RelatedLocations: related,
		})
	}

	name := meta.ToolName
	if name == "" {
		name = "stc"
	}
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: name, Version: meta.ToolVersion, Rules: rules}},
		Results: results,
	}
	if meta.InvocationArgs != nil {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: !failed}}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Version: sarifVersion, Schema: sarifSchema, Runs: []sarifRun{run}})
}
