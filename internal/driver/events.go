package driver

import "time"

// Stage is the step of the pipeline a file is in.
type Stage string

const (
	// StageContext builds the AST context of a diagnostic.
	StageContext Stage = "context"
	// StageGenerate generates and selects proposals.
	StageGenerate Stage = "generate"
	// StageApply applies the selected proposal under the regression guard.
	StageApply Stage = "apply"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the file is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the file is being processed.
	StatusWorking Status = "working"
	// StatusDone indicates every diagnostic of the file was handled.
	StatusDone Status = "done"
	// StatusError indicates at least one diagnostic of the file failed.
	StatusError Status = "error"
)

// Event reports progress for a file.
type Event struct {
	File      string
	Stage     Stage
	Status    Status
	Iteration int
	// Diagnostic is the ID of the diagnostic being worked on, if any.
	Diagnostic string
	Detail     string
	Elapsed    time.Duration
}

// Sink consumes progress events. OnEvent is called from worker goroutines
// and must be safe for concurrent use.
type Sink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

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
