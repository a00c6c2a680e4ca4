package stt

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// State is the recognition lifecycle state
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// ErrRecognitionFailed is reported when a service signals an error without a reason
var ErrRecognitionFailed = errors.New("recognition failed")

// Session drives a recognition Service and keeps at most one recognition in flight.
// Events from the service are filtered by session ID and republished to emit;
// emit is never called while the session lock is held.
type Session struct {
	service Service
	emit    Handler
	logger  *zap.Logger

	mu         sync.Mutex
	state      State
	id         string
	stopping   bool
	transcript string
	recorded   []string
}

// NewSession creates a session and subscribes it to the service
func NewSession(service Service, emit Handler, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emit == nil {
		emit = func(Event) {}
	}
	s := &Session{
		service: service,
		emit:    emit,
		logger:  logger.With(zap.String("component", "stt_session")),
	}
	service.Subscribe(s.handle)
	return s
}

// Start cancels any recognition in flight and starts a new one
func (s *Session) Start(language string, continuous bool) {
	s.Cancel()

	s.mu.Lock()
	id := xid.New().String()
	s.id = id
	s.state = Listening
	s.stopping = false
	s.recorded = nil
	s.mu.Unlock()

	s.logger.Debug("starting recognition",
		zap.String("session", id),
		zap.String("language", language),
		zap.Bool("continuous", continuous),
	)

	err := s.service.StartRecognition(Options{
		SessionID:  id,
		Language:   language,
		Continuous: continuous,
	})
	if err != nil {
		s.fail(id, fmt.Errorf("start recognition: %w", err))
	}
}

// Stop asks the service to finish gracefully. The session stays Listening
// until the service reports the end, so the final result is still delivered.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != Listening || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	id := s.id
	s.mu.Unlock()

	if err := s.service.StopRecognition(); err != nil {
		s.fail(id, fmt.Errorf("stop recognition: %w", err))
	}
}

// Cancel aborts the recognition in flight and reports its end immediately.
// It reports whether a recognition was cancelled.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	if s.state != Listening {
		s.mu.Unlock()
		return false
	}
	id := s.id
	s.state = Idle
	s.id = ""
	s.stopping = false
	s.mu.Unlock()

	if err := s.service.AbortRecognition(); err != nil {
		s.logger.Warn("abort recognition failed", zap.String("session", id), zap.Error(err))
	}
	s.emit(Event{Kind: EventEnd, SessionID: id})
	return true
}

// State returns the current recognition state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the text of the last result
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Recorded returns every result of the current or last session joined by spaces
func (s *Session) Recorded() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.recorded, " ")
}

func (s *Session) handle(ev Event) {
	s.mu.Lock()
	if s.state != Listening || ev.SessionID != s.id {
		s.mu.Unlock()
		s.logger.Debug("dropping stale recognition event",
			zap.Stringer("kind", ev.Kind),
			zap.String("session", ev.SessionID),
		)
		return
	}

	switch ev.Kind {
	case EventResult:
		s.transcript = ev.Text
		s.recorded = append(s.recorded, ev.Text)
	case EventEnd, EventError:
		s.state = Idle
		s.id = ""
		s.stopping = false
	}
	s.mu.Unlock()

	if ev.Kind == EventError {
		if ev.Err == nil {
			ev.Err = ErrRecognitionFailed
		}
		s.logger.Warn("recognition error", zap.String("session", ev.SessionID), zap.Error(ev.Err))
	}
	s.emit(ev)
}

func (s *Session) fail(id string, err error) {
	s.handle(Event{Kind: EventError, SessionID: id, Err: err})
}
