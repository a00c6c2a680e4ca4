package engine

import (
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/d1nch8g/voiceengine/catalog"
	"github.com/d1nch8g/voiceengine/selection"
	"github.com/d1nch8g/voiceengine/stt"
	"github.com/d1nch8g/voiceengine/tts"
)

// EngineConfig holds the configuration for the voice engine
type EngineConfig struct {
	// Lang is the initial language for recognition and synthesis
	Lang string
	// Continuous keeps recognition listening across pauses
	Continuous bool
	// LocalService prefers on-device voices when ordering the catalog
	LocalService bool
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Lang:         "en-US",
		Continuous:   true,
		LocalService: true,
	}
}

// Engine mediates host commands and asynchronous speech service events.
// It owns the voice catalog and the language/voice selection; both are only
// written by the engine's setters and service handlers.
type Engine struct {
	config      EngineConfig
	recognizer  stt.Service
	synthesizer tts.Service
	recognition *stt.Session
	synthesis   *tts.Session
	events      *emitter
	logger      *zap.Logger

	selectionMutex sync.RWMutex
	catalog        catalog.Catalog
	selection      *selection.State
}

// NewEngine creates a voice engine, subscribes it to both services and
// starts voice discovery. The catalog stays empty until the synthesis
// service reports its voices.
func NewEngine(config EngineConfig, recognizer stt.Service, synthesizer tts.Service, logger *zap.Logger) *Engine {
	if config.Lang == "" {
		config.Lang = "en-US"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		config:      config,
		recognizer:  recognizer,
		synthesizer: synthesizer,
		events:      newEmitter(logger),
		logger:      logger,
		catalog:     catalog.Build(nil),
		selection:   selection.New(config.Lang),
	}
	e.recognition = stt.NewSession(recognizer, e.onRecognition, logger)
	e.synthesis = tts.NewSession(synthesizer, e.onSynthesis, logger)
	e.synthesis.RefreshVoices()

	return e
}

// Start cancels speech in progress and any stale recognition, then starts
// recognizing in the selected language
func (e *Engine) Start() {
	e.synthesis.Cancel()
	e.recognition.Start(e.Language(), e.config.Continuous)
}

// Stop asks recognition to finish after delivering its final result
func (e *Engine) Stop() {
	e.recognition.Stop()
}

// Cancel aborts both recognition and synthesis
func (e *Engine) Cancel() {
	e.recognition.Cancel()
	e.synthesis.Cancel()
}

// Speak says text with the selected voice. Blank text repeats the last
// utterance, or does nothing if there was none.
func (e *Engine) Speak(text string) {
	e.selectionMutex.RLock()
	lang, voice := e.selection.Language(), e.selection.Voice()
	e.selectionMutex.RUnlock()

	e.synthesis.Speak(text, voice, lang)
}

// SetLanguage selects a language. Underscores are converted to hyphens and
// the voice is reselected when it does not belong to the new language.
func (e *Engine) SetLanguage(code string) {
	e.selectionMutex.Lock()
	prevLang, prevVoice := e.selection.Language(), e.selection.Voice()
	e.selection.SetLanguage(code, e.catalog)
	lang, voice := e.selection.Language(), e.selection.Voice()
	e.selectionMutex.Unlock()

	if lang == prevLang && voice == prevVoice {
		return
	}
	e.logger.Info("language changed", zap.String("language", lang), zap.String("voice", voice))
	e.events.emit(Event{Type: EventVoiceChanged, Source: SourceSelection, Language: lang, Voice: voice})
}

// SetVoice selects a voice of the current language. Names that are not in
// the catalog for that language are ignored.
func (e *Engine) SetVoice(name string) {
	e.selectionMutex.Lock()
	lang := e.selection.Language()
	if name == e.selection.Voice() {
		e.selectionMutex.Unlock()
		return
	}
	if !e.catalog.Contains(lang, name) {
		e.selectionMutex.Unlock()
		e.logger.Warn("ignoring voice not offered for language",
			zap.String("voice", name),
			zap.String("language", lang),
		)
		return
	}
	e.selection.SetVoice(name)
	e.selectionMutex.Unlock()

	e.logger.Info("voice changed", zap.String("language", lang), zap.String("voice", name))
	e.events.emit(Event{Type: EventVoiceChanged, Source: SourceSelection, Language: lang, Voice: name})
}

// Language returns the selected language
func (e *Engine) Language() string {
	e.selectionMutex.RLock()
	defer e.selectionMutex.RUnlock()
	return e.selection.Language()
}

// Voice returns the selected voice, or "" when no voice is available
func (e *Engine) Voice() string {
	e.selectionMutex.RLock()
	defer e.selectionMutex.RUnlock()
	return e.selection.Voice()
}

// Voices returns the current catalog
func (e *Engine) Voices() catalog.Catalog {
	e.selectionMutex.RLock()
	defer e.selectionMutex.RUnlock()
	return e.catalog
}

// RecognitionLanguages lists the languages the recognition service supports
func (e *Engine) RecognitionLanguages() []string {
	return e.recognizer.Languages()
}

// Transcript returns the last recognized text
func (e *Engine) Transcript() string {
	return e.recognition.Transcript()
}

// Recorded returns everything recognized since the last Start
func (e *Engine) Recorded() string {
	return e.recognition.Recorded()
}

// Utterance returns the last text given to Speak
func (e *Engine) Utterance() string {
	return e.synthesis.Pending()
}

func (e *Engine) RecognitionState() stt.State {
	return e.recognition.State()
}

func (e *Engine) SynthesisState() tts.State {
	return e.synthesis.State()
}

// Subscribe registers a listener for one event type. Listeners run
// synchronously on the goroutine that produced the event and may call back
// into the engine.
func (e *Engine) Subscribe(eventType EventType, h Handler) Registration {
	return e.events.subscribe(eventType, h)
}

// Close cancels all activity and closes services that hold resources
func (e *Engine) Close() error {
	e.Cancel()

	var err error
	if c, ok := e.recognizer.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	if c, ok := e.synthesizer.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (e *Engine) onRecognition(ev stt.Event) {
	out := Event{Source: SourceRecognition}
	switch ev.Kind {
	case stt.EventStart:
		out.Type = EventStart
	case stt.EventResult:
		out.Type = EventResult
		out.Text = ev.Text
	case stt.EventEnd:
		out.Type = EventEnd
	case stt.EventError:
		out.Type = EventError
		out.Err = ev.Err
	default:
		return
	}
	e.events.emit(out)
}

func (e *Engine) onSynthesis(ev tts.Event) {
	out := Event{Source: SourceSynthesis}
	switch ev.Kind {
	case tts.EventVoicesReady:
		e.refreshCatalog(ev.Voices)
		return
	case tts.EventStart:
		out.Type = EventSpeakStart
	case tts.EventDone:
		out.Type = EventSpeakEnd
	case tts.EventError:
		out.Type = EventError
		out.Err = ev.Err
	default:
		return
	}
	e.events.emit(out)
}

// refreshCatalog replaces the catalog and reconciles the selection with it.
// voice-changed is always emitted since it doubles as the catalog-ready signal.
func (e *Engine) refreshCatalog(voices []catalog.Voice) {
	c := catalog.Build(voices, catalog.WithPreferLocal(e.config.LocalService))

	e.selectionMutex.Lock()
	e.catalog = c
	corrected := e.selection.Reconcile(c)
	lang, voice := e.selection.Language(), e.selection.Voice()
	e.selectionMutex.Unlock()

	e.logger.Info("voice catalog updated",
		zap.Int("languages", c.Len()),
		zap.String("language", lang),
		zap.String("voice", voice),
		zap.Bool("reselected", corrected),
	)
	e.events.emit(Event{Type: EventVoiceChanged, Source: SourceSynthesis, Language: lang, Voice: voice})
}
