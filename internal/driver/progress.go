package driver

import "time"

// Stage describes a driver phase reported to a ProgressSink.
type Stage string

const (
	StageDecode Stage = "decode"
	StageBind   Stage = "bind"
	StageCheck  Stage = "check"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a document (or for the whole program when
// File is empty). File is the document path as passed to CheckFiles.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Decode events arrive from worker
// goroutines, so implementations must be safe for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
