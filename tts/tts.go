package tts

import "github.com/d1nch8g/voiceengine/catalog"

// Utterance is a single piece of text to speak
type Utterance struct {
	// ID tags every event the service reports for this utterance
	ID       string
	Text     string
	Voice    string
	Language string
}

// EventKind enumerates notifications from a synthesis service
type EventKind int

const (
	EventStart EventKind = iota
	EventDone
	EventError
	EventVoicesReady
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	case EventVoicesReady:
		return "voices-ready"
	default:
		return "unknown"
	}
}

// Event is a notification from a synthesis service
type Event struct {
	Kind        EventKind
	UtteranceID string
	Err         error
	// Voices is set for EventVoicesReady
	Voices []catalog.Voice
}

// Handler receives service events. It may be called from any goroutine.
type Handler func(Event)

// Service defines the interface for text-to-speech backends
type Service interface {
	// Subscribe registers the single event handler of the service
	Subscribe(h Handler)

	// Speak starts speaking an utterance
	Speak(u Utterance) error

	// CancelSpeech stops the utterance being spoken
	CancelSpeech() error

	// RefreshVoices starts voice discovery; the result arrives as EventVoicesReady
	RefreshVoices() error
}
