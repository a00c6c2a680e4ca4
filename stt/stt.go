package stt

// Options describes a single recognition request
type Options struct {
	// SessionID tags every event the service reports for this request
	SessionID  string
	Language   string
	Continuous bool
}

// EventKind enumerates notifications from a recognition service
type EventKind int

const (
	EventStart EventKind = iota
	EventResult
	EventEnd
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventResult:
		return "result"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a notification from a recognition service
type Event struct {
	Kind      EventKind
	SessionID string
	Text      string
	Err       error
}

// Handler receives service events. It may be called from any goroutine.
type Handler func(Event)

// Service defines the interface for speech-to-text backends.
// Start, stop and abort are requests; outcomes arrive as events.
type Service interface {
	// Subscribe registers the single event handler of the service
	Subscribe(h Handler)

	// StartRecognition begins capturing and recognizing speech
	StartRecognition(opts Options) error

	// StopRecognition asks the service to flush a final result and end
	StopRecognition() error

	// AbortRecognition ends recognition immediately, dropping pending results
	AbortRecognition() error

	// Languages lists the language codes the service can recognize
	Languages() []string
}
