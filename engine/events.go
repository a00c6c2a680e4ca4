package engine

import (
	"sync"

	"go.uber.org/zap"
)

// EventType names a notification published to host listeners
type EventType string

const (
	EventStart        EventType = "start"
	EventEnd          EventType = "end"
	EventError        EventType = "error"
	EventResult       EventType = "result"
	EventVoiceChanged EventType = "voice-changed"
	EventSpeakStart   EventType = "speak-start"
	EventSpeakEnd     EventType = "speak-end"
)

// Source tells which subsystem produced an event
type Source string

const (
	SourceRecognition Source = "recognition"
	SourceSynthesis   Source = "synthesis"
	SourceSelection   Source = "selection"
)

// Event is delivered to host listeners
type Event struct {
	Type   EventType
	Source Source
	// Text is the transcript for EventResult
	Text string
	// Err is the failure reason for EventError
	Err error
	// Language and Voice are the selection at the time of EventVoiceChanged
	Language string
	Voice    string
}

// Handler is a host listener
type Handler func(Event)

// Registration removes a listener
type Registration interface {
	Remove()
}

type listener struct {
	id      uint64
	handler Handler
}

// emitter delivers events synchronously in subscription order
type emitter struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[EventType][]listener
	logger    *zap.Logger
}

func newEmitter(logger *zap.Logger) *emitter {
	return &emitter{
		listeners: make(map[EventType][]listener),
		logger:    logger,
	}
}

type registration struct {
	once   sync.Once
	remove func()
}

func (r *registration) Remove() {
	r.once.Do(r.remove)
}

func (e *emitter) subscribe(eventType EventType, h Handler) Registration {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[eventType] = append(e.listeners[eventType], listener{id: id, handler: h})

	return &registration{remove: func() {
		e.unsubscribe(eventType, id)
	}}
}

func (e *emitter) unsubscribe(eventType EventType, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.listeners[eventType]
	kept := make([]listener, 0, len(current))
	for _, l := range current {
		if l.id != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, eventType)
		return
	}
	e.listeners[eventType] = kept
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	handlers := make([]Handler, len(e.listeners[ev.Type]))
	for i, l := range e.listeners[ev.Type] {
		handlers[i] = l.handler
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		e.call(h, ev)
	}
}

func (e *emitter) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event listener panicked",
				zap.String("event", string(ev.Type)),
				zap.Any("recover", r),
			)
		}
	}()
	h(ev)
}
