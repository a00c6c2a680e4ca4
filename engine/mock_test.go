package engine

import (
	"github.com/d1nch8g/voiceengine/catalog"
	"github.com/d1nch8g/voiceengine/stt"
	"github.com/d1nch8g/voiceengine/tts"
)

// --- Inline mocks (function callback pattern) ---

type mockRecognizer struct {
	handler stt.Handler
	starts  []stt.Options
	stops   int
	aborts  int
	closed  bool

	startFn func(opts stt.Options) error
	closeFn func() error
}

func (m *mockRecognizer) Subscribe(h stt.Handler) { m.handler = h }

func (m *mockRecognizer) StartRecognition(opts stt.Options) error {
	m.starts = append(m.starts, opts)
	if m.startFn != nil {
		return m.startFn(opts)
	}
	return nil
}

func (m *mockRecognizer) StopRecognition() error {
	m.stops++
	return nil
}

func (m *mockRecognizer) AbortRecognition() error {
	m.aborts++
	return nil
}

func (m *mockRecognizer) Languages() []string { return []string{"en-US", "fr-FR"} }

func (m *mockRecognizer) Close() error {
	m.closed = true
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}

func (m *mockRecognizer) send(kind stt.EventKind, text string, err error) {
	id := ""
	if len(m.starts) > 0 {
		id = m.starts[len(m.starts)-1].SessionID
	}
	m.handler(stt.Event{Kind: kind, SessionID: id, Text: text, Err: err})
}

type mockSynthesizer struct {
	handler    tts.Handler
	utterances []tts.Utterance
	cancels    int
	refreshes  int

	refreshFn func() error
}

func (m *mockSynthesizer) Subscribe(h tts.Handler) { m.handler = h }

func (m *mockSynthesizer) Speak(u tts.Utterance) error {
	m.utterances = append(m.utterances, u)
	return nil
}

func (m *mockSynthesizer) CancelSpeech() error {
	m.cancels++
	return nil
}

func (m *mockSynthesizer) RefreshVoices() error {
	m.refreshes++
	if m.refreshFn != nil {
		return m.refreshFn()
	}
	return nil
}

func (m *mockSynthesizer) send(kind tts.EventKind, err error) {
	id := ""
	if len(m.utterances) > 0 {
		id = m.utterances[len(m.utterances)-1].ID
	}
	m.handler(tts.Event{Kind: kind, UtteranceID: id, Err: err})
}

func (m *mockSynthesizer) voicesReady(voices ...catalog.Voice) {
	m.handler(tts.Event{Kind: tts.EventVoicesReady, Voices: voices})
}

// eventLog subscribes to every event type and records deliveries in order
type eventLog struct {
	events []Event
}

func watch(e *Engine) *eventLog {
	log := &eventLog{}
	for _, t := range []EventType{
		EventStart, EventEnd, EventError, EventResult,
		EventVoiceChanged, EventSpeakStart, EventSpeakEnd,
	} {
		e.Subscribe(t, func(ev Event) { log.events = append(log.events, ev) })
	}
	return log
}

func (l *eventLog) types() []EventType {
	out := make([]EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

func (l *eventLog) count(t EventType) int {
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (l *eventLog) reset() { l.events = nil }
