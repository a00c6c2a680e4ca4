package tts

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// State is the synthesis lifecycle state
type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// ErrSynthesisFailed is reported when a service signals an error without a reason
var ErrSynthesisFailed = errors.New("synthesis failed")

// Session drives a synthesis Service. It holds the pending utterance text so
// that speaking empty text replays it. emit is never called under the session lock.
type Session struct {
	service Service
	emit    Handler
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	id      string
	pending string
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
		logger:  logger.With(zap.String("component", "tts_session")),
	}
	service.Subscribe(s.handle)
	return s
}

// Speak replaces the pending utterance with text and speaks it, cancelling
// whatever is being spoken. Blank text replays the pending utterance; with no
// pending utterance it does nothing. Reports whether speech was requested.
func (s *Session) Speak(text, voice, language string) bool {
	s.mu.Lock()
	if strings.TrimSpace(text) == "" {
		text = s.pending
	}
	if text == "" {
		s.mu.Unlock()
		return false
	}
	s.pending = text
	s.mu.Unlock()

	s.Cancel()

	s.mu.Lock()
	id := xid.New().String()
	s.id = id
	s.state = Speaking
	s.mu.Unlock()

	s.logger.Debug("speaking",
		zap.String("utterance", id),
		zap.String("voice", voice),
		zap.String("language", language),
	)

	err := s.service.Speak(Utterance{
		ID:       id,
		Text:     text,
		Voice:    voice,
		Language: language,
	})
	if err != nil {
		s.handle(Event{Kind: EventError, UtteranceID: id, Err: fmt.Errorf("speak: %w", err)})
	}
	return true
}

// Cancel stops the utterance being spoken. No completion event follows.
// It reports whether an utterance was cancelled.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	if s.state != Speaking {
		s.mu.Unlock()
		return false
	}
	id := s.id
	s.state = Idle
	s.id = ""
	s.mu.Unlock()

	if err := s.service.CancelSpeech(); err != nil {
		s.logger.Warn("cancel speech failed", zap.String("utterance", id), zap.Error(err))
	}
	return true
}

// RefreshVoices asks the service to rediscover its voices
func (s *Session) RefreshVoices() {
	if err := s.service.RefreshVoices(); err != nil {
		s.logger.Warn("voice discovery failed", zap.Error(err))
	}
}

// State returns the current synthesis state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the text of the last utterance
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) handle(ev Event) {
	if ev.Kind == EventVoicesReady {
		s.emit(ev)
		return
	}

	s.mu.Lock()
	if s.state != Speaking || ev.UtteranceID != s.id {
		s.mu.Unlock()
		s.logger.Debug("dropping stale synthesis event",
			zap.Stringer("kind", ev.Kind),
			zap.String("utterance", ev.UtteranceID),
		)
		return
	}
	if ev.Kind == EventDone || ev.Kind == EventError {
		s.state = Idle
		s.id = ""
	}
	s.mu.Unlock()

	if ev.Kind == EventError {
		if ev.Err == nil {
			ev.Err = ErrSynthesisFailed
		}
		s.logger.Warn("synthesis error", zap.String("utterance", ev.UtteranceID), zap.Error(ev.Err))
	}
	s.emit(ev)
}
