package export

import "github.com/user/karaexport/pkg/ffmpeg"

// Progress is a snapshot of a running export: the encoder's view plus the
// writer's counters.
type Progress struct {
	ffmpeg.Progress
	FramesWritten uint64 `json:"framesWritten"`
	BytesWritten  int64  `json:"bytesWritten"`
	FramesSkipped int    `json:"framesSkipped"`
}

// Observer receives export lifecycle notifications. Methods are called from
// the export's goroutines and must not block for long.
type Observer interface {
	OnStarted(exportID string, command []string)
	OnProgress(exportID string, p Progress)
	OnCompleted(exportID string, r Result)
	OnFailed(exportID string, err error, suggestions []string)
}

// EventKind identifies an Event.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is the channel form of the Observer callbacks.
type Event struct {
	Kind        EventKind
	ExportID    string
	Command     []string
	Progress    Progress
	Result      Result
	Err         error
	Suggestions []string
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Started   func(exportID string, command []string)
	Progress  func(exportID string, p Progress)
	Completed func(exportID string, r Result)
	Failed    func(exportID string, err error, suggestions []string)
}

func (o ObserverFuncs) OnStarted(id string, cmd []string) {
	if o.Started != nil {
		o.Started(id, cmd)
	}
}

func (o ObserverFuncs) OnProgress(id string, p Progress) {
	if o.Progress != nil {
		o.Progress(id, p)
	}
}

func (o ObserverFuncs) OnCompleted(id string, r Result) {
	if o.Completed != nil {
		o.Completed(id, r)
	}
}

func (o ObserverFuncs) OnFailed(id string, err error, suggestions []string) {
	if o.Failed != nil {
		o.Failed(id, err, suggestions)
	}
}

var _ Observer = ObserverFuncs{}

// events fans notifications out to observers and the event channel.
type events struct {
	observers []Observer
	ch        chan Event
}

// send delivers ev without blocking. When the channel is full the oldest
// queued event is discarded.
func (e *events) send(ev Event) {
	if e.ch == nil {
		return
	}
	for {
		select {
		case e.ch <- ev:
			return
		default:
		}
		select {
		case <-e.ch:
		default:
		}
	}
}

func (e *events) started(id string, cmd []string) {
	for _, o := range e.observers {
		o.OnStarted(id, cmd)
	}
	e.send(Event{Kind: EventStarted, ExportID: id, Command: cmd})
}

func (e *events) progress(id string, p Progress) {
	for _, o := range e.observers {
		o.OnProgress(id, p)
	}
	if e.ch == nil {
		return
	}
	// Progress is dropped rather than displacing older events.
	select {
	case e.ch <- Event{Kind: EventProgress, ExportID: id, Progress: p}:
	default:
	}
}

func (e *events) completed(id string, r Result) {
	for _, o := range e.observers {
		o.OnCompleted(id, r)
	}
	e.send(Event{Kind: EventCompleted, ExportID: id, Result: r})
}

func (e *events) failed(id string, r Result, err error, hints []string) {
	for _, o := range e.observers {
		o.OnFailed(id, err, hints)
	}
	e.send(Event{Kind: EventFailed, ExportID: id, Result: r, Err: err, Suggestions: hints})
}
