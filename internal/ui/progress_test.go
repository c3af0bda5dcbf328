package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"stc/internal/driver"
)

func TestProgressModelTracksEvents(t *testing.T) {
	files := []string{"/p/lib/math.ast.yaml", "/p/app/main.ast.yaml"}
	m := NewProgressModel("checking /p", "/p", files, nil).(*progressModel)

	if got := m.View(); !strings.Contains(got, "lib/math.ast.yaml") || strings.Contains(got, "/p/lib") {
		t.Fatalf("paths not shortened:\n%s", got)
	}

	m.Update(eventMsg(driver.Event{File: files[0], Stage: driver.StageDecode, Status: driver.StatusWorking}))
	if m.items[0].status != "decoding" {
		t.Fatalf("status = %q, want decoding", m.items[0].status)
	}
	m.Update(eventMsg(driver.Event{File: files[0], Stage: driver.StageCheck, Status: driver.StatusDone}))
	m.Update(eventMsg(driver.Event{File: files[1], Stage: driver.StageDecode, Status: driver.StatusError, Err: errors.New("bad")}))
	if got := m.percent(); got != 1.0 {
		t.Fatalf("percent = %v, want 1", got)
	}
	m.Update(eventMsg(driver.Event{Stage: driver.StageBind, Status: driver.StatusWorking}))
	if m.stageLabel != "binding" {
		t.Fatalf("stage label = %q", m.stageLabel)
	}
	// неизвестный файл игнорируется
	m.Update(eventMsg(driver.Event{File: "/elsewhere.ast.yaml", Stage: driver.StageCheck, Status: driver.StatusDone}))

	_, cmd := m.Update(doneMsg{})
	if !m.done || cmd == nil {
		t.Fatalf("done message did not quit")
	}
	view := m.View()
	if !strings.Contains(view, "done:") || !strings.Contains(view, "error") {
		t.Fatalf("final view:\n%s", view)
	}
}

func TestTruncateAndDisplayName(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("short truncate = %q", got)
	}
	if got := truncate("abcdefghij", 2); got != "ab" {
		t.Fatalf("narrow truncate = %q", got)
	}
	if got := truncate("検査対象ファイル", 8); runewidth.StringWidth(got) > 8 || !strings.HasSuffix(got, "...") {
		t.Fatalf("wide truncate = %q", got)
	}
	if got := displayName("/p", "/q/x.ast.yaml"); got != "/q/x.ast.yaml" {
		t.Fatalf("outside base = %q", got)
	}
}
