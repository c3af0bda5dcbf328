package driver

import (
	"context"
	"sync"
	"testing"
)

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) OnEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func TestProgressEvents(t *testing.T) {
	sink := &recordSink{}
	opts := OptionsFromManifest(nil)
	opts.Progress = sink
	res, err := CheckDir(context.Background(), "testdata/project", opts)
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}

	last := make(map[string]Event)
	var bindDone bool
	for _, e := range sink.events {
		if e.File == "" {
			bindDone = bindDone || (e.Stage == StageBind && e.Status == StatusDone)
			continue
		}
		if prev, ok := last[e.File]; ok && prev.Stage == StageCheck && e.Stage == StageDecode {
			t.Fatalf("%s: decode event after check", e.File)
		}
		last[e.File] = e
	}
	if !bindDone {
		t.Fatalf("no program-level bind event")
	}
	if len(last) != len(res.Files) {
		t.Fatalf("events for %d files, want %d", len(last), len(res.Files))
	}
	for path, e := range last {
		if e.Stage != StageCheck || e.Status != StatusDone {
			t.Fatalf("%s ended with %s/%s", path, e.Stage, e.Status)
		}
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{File: "a", Status: StatusQueued})
	if got := <-ch; got.File != "a" {
		t.Fatalf("got %+v", got)
	}
	ChannelSink{}.OnEvent(Event{})
}
