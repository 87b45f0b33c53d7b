package types

// EventKind distinguishes the three report channels of a run
type EventKind int

const (
	EventProgress EventKind = iota
	EventLog
	EventSkip
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventLog:
		return "log"
	case EventSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Skip reasons emitted by the orientation filters
const (
	SkipReasonVertical   = "vertical"
	SkipReasonHorizontal = "horizontal"
)

// StoppedMessage is logged when a run ends because it was cancelled
const StoppedMessage = "stopped"

// Event is one entry of a run's event stream.
// Fraction is set for progress events, Message for log events,
// File and Reason for skip events.
type Event struct {
	Kind     EventKind `json:"kind"`
	Fraction float64   `json:"fraction,omitempty"`
	Message  string    `json:"message,omitempty"`
	File     string    `json:"file,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

func ProgressEvent(fraction float64) Event {
	return Event{Kind: EventProgress, Fraction: fraction}
}

func LogEvent(message string) Event {
	return Event{Kind: EventLog, Message: message}
}

func SkipEvent(file, reason string) Event {
	return Event{Kind: EventSkip, File: file, Reason: reason}
}

// RunState is the lifecycle state of an engine
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunStats is the tally of a resize run
type RunStats struct {
	RunID     string   `json:"run_id"`
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	State     RunState `json:"state"`
}
