package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Config names the profile outputs of one run; empty paths are skipped.
type Config struct {
	CPU  string // pprof CPU profile
	Heap string // heap profile written on Stop
	Exec string // runtime execution trace
}

// Enabled reports whether any profile is requested.
func (c Config) Enabled() bool {
	return c.CPU != "" || c.Heap != "" || c.Exec != ""
}

// Session owns the files of active profilers.
type Session struct {
	cpu     *os.File
	exec    *os.File
	heap    string
	stopped bool
}

// Start enables the profilers named by cfg. On error nothing stays running.
func Start(cfg Config) (*Session, error) {
	s := &Session{heap: cfg.Heap}
	if cfg.CPU != "" {
		f, err := os.Create(cfg.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("start cpu profile: %w", err)
		}
		s.cpu = f
	}
	if cfg.Exec != "" {
		f, err := os.Create(cfg.Exec)
		if err != nil {
			s.stopCPU()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, fmt.Errorf("start runtime trace: %w", err)
		}
		s.exec = f
	}
	return s, nil
}

// Stop finishes every profiler and writes the heap profile. Safe to call
// more than once and on a nil session.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true
	var errs []error
	if s.exec != nil {
		trace.Stop()
		errs = append(errs, s.exec.Close())
	}
	errs = append(errs, s.stopCPU())
	if s.heap != "" {
		errs = append(errs, writeHeap(s.heap))
	}
	return errors.Join(errs...)
}

func (s *Session) stopCPU() error {
	if s.cpu == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := s.cpu.Close()
	s.cpu = nil
	return err
}

func writeHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
