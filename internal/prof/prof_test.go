package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CPU:  filepath.Join(dir, "cpu.pprof"),
		Heap: filepath.Join(dir, "heap.pprof"),
		Exec: filepath.Join(dir, "exec.trace"),
	}
	if !cfg.Enabled() || (Config{}).Enabled() {
		t.Fatalf("Enabled mismatch")
	}
	s, err := Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	for _, p := range []string{cfg.CPU, cfg.Heap, cfg.Exec} {
		st, err := os.Stat(p)
		if err != nil || st.Size() == 0 {
			t.Fatalf("%s: %v (size %v)", filepath.Base(p), err, st)
		}
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	if _, err := Start(Config{CPU: filepath.Join(t.TempDir(), "missing", "cpu.pprof")}); err == nil {
		t.Fatalf("expected error")
	}
	var s *Session
	if err := s.Stop(); err != nil {
		t.Fatalf("nil Stop: %v", err)
	}
}
