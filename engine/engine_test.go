package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/d1nch8g/voiceengine/catalog"
	"github.com/d1nch8g/voiceengine/stt"
	"github.com/d1nch8g/voiceengine/tts"
)

func newTestEngine(config EngineConfig) (*Engine, *mockRecognizer, *mockSynthesizer, *eventLog) {
	rec := &mockRecognizer{}
	syn := &mockSynthesizer{}
	e := NewEngine(config, rec, syn, nil)
	return e, rec, syn, watch(e)
}

func threeVoices() []catalog.Voice {
	return []catalog.Voice{
		{Language: "en-US", Name: "Alex"},
		{Language: "en-US", Name: "Sam"},
		{Language: "fr-FR", Name: "Claire"},
	}
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		config   EngineConfig
		wantLang string
	}{
		{name: "empty language defaults to en-US", config: EngineConfig{}, wantLang: "en-US"},
		{name: "language normalized", config: EngineConfig{Lang: "pt_BR"}, wantLang: "pt-BR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec, syn, _ := newTestEngine(tt.config)

			assert.Equal(t, tt.wantLang, e.Language())
			assert.Equal(t, "", e.Voice())
			assert.Equal(t, 0, e.Voices().Len())
			assert.Equal(t, stt.Idle, e.RecognitionState())
			assert.Equal(t, tts.Idle, e.SynthesisState())
			assert.NotNil(t, rec.handler)
			assert.NotNil(t, syn.handler)
			assert.Equal(t, 1, syn.refreshes)
		})
	}
}

func TestEngine_VoicesReadyDuringConstruction(t *testing.T) {
	syn := &mockSynthesizer{}
	syn.refreshFn = func() error {
		syn.voicesReady(threeVoices()...)
		return nil
	}

	e := NewEngine(DefaultEngineConfig(), &mockRecognizer{}, syn, nil)

	assert.Equal(t, "Alex", e.Voice())
	assert.Equal(t, 2, e.Voices().Len())
}

func TestEngine_EndToEndCatalog(t *testing.T) {
	e, _, syn, log := newTestEngine(DefaultEngineConfig())

	syn.voicesReady(threeVoices()...)

	assert.Equal(t, map[string][]string{
		"en-US": {"Alex", "Sam"},
		"fr-FR": {"Claire"},
	}, e.Voices().Map())
	assert.Equal(t, "Alex", e.Voice())
	require.Equal(t, []EventType{EventVoiceChanged}, log.types())
	assert.Equal(t, SourceSynthesis, log.events[0].Source)
	assert.Equal(t, "en-US", log.events[0].Language)
	assert.Equal(t, "Alex", log.events[0].Voice)

	e.SetLanguage("fr-FR")

	assert.Equal(t, "fr-FR", e.Language())
	assert.Equal(t, "Claire", e.Voice())
	assert.Equal(t, 2, log.count(EventVoiceChanged))
}

func TestEngine_VoiceChangedOnEveryCatalogRefresh(t *testing.T) {
	e, _, syn, log := newTestEngine(DefaultEngineConfig())

	syn.voicesReady(threeVoices()...)
	syn.voicesReady(threeVoices()...)

	assert.Equal(t, 2, log.count(EventVoiceChanged))
	assert.Equal(t, "Alex", e.Voice())
}

func TestEngine_CatalogCorrection(t *testing.T) {
	e, _, syn, _ := newTestEngine(DefaultEngineConfig())
	syn.voicesReady(
		catalog.Voice{Language: "en-US", Name: "A"},
		catalog.Voice{Language: "en-US", Name: "B"},
		catalog.Voice{Language: "fr-FR", Name: "C"},
	)
	e.SetVoice("B")
	require.Equal(t, "B", e.Voice())

	syn.voicesReady(
		catalog.Voice{Language: "en-US", Name: "A"},
		catalog.Voice{Language: "fr-FR", Name: "C"},
	)

	assert.Equal(t, "en-US", e.Language())
	assert.Equal(t, "A", e.Voice())
}

func TestEngine_SetLanguageNormalizes(t *testing.T) {
	e, _, _, _ := newTestEngine(EngineConfig{Lang: "fr-FR"})

	e.SetLanguage("en_US")

	assert.Equal(t, "en-US", e.Language())
}

func TestEngine_SetLanguageEvents(t *testing.T) {
	e, _, syn, log := newTestEngine(DefaultEngineConfig())
	syn.voicesReady(threeVoices()...)
	log.reset()

	e.SetLanguage("en-US")
	assert.Empty(t, log.events, "same language must not notify")

	e.SetLanguage("")
	assert.Empty(t, log.events, "empty language is ignored")
	assert.Equal(t, "en-US", e.Language())

	e.SetLanguage("de-DE")
	require.Len(t, log.events, 1)
	assert.Equal(t, SourceSelection, log.events[0].Source)
	assert.Equal(t, "de-DE", e.Language())
	assert.Equal(t, "", e.Voice())
}

func TestEngine_SetVoice(t *testing.T) {
	e, _, syn, log := newTestEngine(DefaultEngineConfig())
	syn.voicesReady(threeVoices()...)
	log.reset()

	e.SetVoice("Sam")
	assert.Equal(t, "Sam", e.Voice())
	require.Len(t, log.events, 1)
	assert.Equal(t, "Sam", log.events[0].Voice)

	e.SetVoice("Sam")
	assert.Len(t, log.events, 1, "same voice must not notify")

	e.SetVoice("Claire")
	assert.Equal(t, "Sam", e.Voice(), "voice of another language is ignored")
	assert.Len(t, log.events, 1)
}

func TestEngine_StartPreemptsSpeech(t *testing.T) {
	e, rec, syn, _ := newTestEngine(DefaultEngineConfig())

	e.Speak("hello")
	require.Equal(t, tts.Speaking, e.SynthesisState())

	e.Start()

	assert.Equal(t, tts.Idle, e.SynthesisState())
	assert.Equal(t, stt.Listening, e.RecognitionState())
	assert.Equal(t, 1, syn.cancels)
	require.Len(t, rec.starts, 1)
	assert.Equal(t, "en-US", rec.starts[0].Language)
	assert.True(t, rec.starts[0].Continuous)
}

func TestEngine_SpeakDoesNotPreemptRecognition(t *testing.T) {
	e, _, _, _ := newTestEngine(DefaultEngineConfig())

	e.Start()
	e.Speak("hello")

	assert.Equal(t, stt.Listening, e.RecognitionState())
	assert.Equal(t, tts.Speaking, e.SynthesisState())
}

func TestEngine_RestartEmitsOneEndThenStart(t *testing.T) {
	e, rec, _, log := newTestEngine(DefaultEngineConfig())
	rec.startFn = func(opts stt.Options) error {
		rec.handler(stt.Event{Kind: stt.EventStart, SessionID: opts.SessionID})
		return nil
	}

	e.Start()
	log.reset()
	e.Start()

	assert.Equal(t, []EventType{EventEnd, EventStart}, log.types())
	assert.Equal(t, stt.Listening, e.RecognitionState())
	assert.Len(t, rec.starts, 2)
	assert.Equal(t, 1, rec.aborts)
}

func TestEngine_ErrorRecovery(t *testing.T) {
	e, rec, _, log := newTestEngine(DefaultEngineConfig())
	reason := errors.New("audio-capture")

	e.Start()
	rec.send(stt.EventError, "", reason)
	rec.send(stt.EventEnd, "", nil)

	assert.Equal(t, stt.Idle, e.RecognitionState())
	assert.Equal(t, 1, log.count(EventError))
	assert.Equal(t, 0, log.count(EventEnd))
	require.Len(t, log.events, 1)
	assert.Equal(t, SourceRecognition, log.events[0].Source)
	assert.ErrorIs(t, log.events[0].Err, reason)

	e.Start()
	assert.Equal(t, stt.Listening, e.RecognitionState())
}

func TestEngine_RecognitionResults(t *testing.T) {
	e, rec, _, log := newTestEngine(EngineConfig{Lang: "en-US", Continuous: false})

	e.Start()
	require.False(t, rec.starts[0].Continuous)
	rec.send(stt.EventStart, "", nil)
	rec.send(stt.EventResult, "turn on", nil)
	rec.send(stt.EventResult, "the lights", nil)
	e.Stop()
	rec.send(stt.EventEnd, "", nil)

	assert.Equal(t, []EventType{EventStart, EventResult, EventResult, EventEnd}, log.types())
	assert.Equal(t, "the lights", log.events[2].Text)
	assert.Equal(t, "the lights", e.Transcript())
	assert.Equal(t, "turn on the lights", e.Recorded())
	assert.Equal(t, 1, rec.stops)
	assert.Equal(t, stt.Idle, e.RecognitionState())
}

func TestEngine_Cancel(t *testing.T) {
	e, rec, syn, log := newTestEngine(DefaultEngineConfig())

	e.Start()
	e.Speak("hello")
	e.Cancel()

	assert.Equal(t, stt.Idle, e.RecognitionState())
	assert.Equal(t, tts.Idle, e.SynthesisState())
	assert.Equal(t, 1, rec.aborts)
	assert.Equal(t, 1, syn.cancels)
	assert.Equal(t, []EventType{EventEnd}, log.types())
}

func TestEngine_SpeakUsesSelection(t *testing.T) {
	e, _, syn, log := newTestEngine(DefaultEngineConfig())
	syn.voicesReady(threeVoices()...)
	e.SetLanguage("fr_FR")
	log.reset()

	e.Speak("bonjour")
	syn.send(tts.EventStart, nil)
	syn.send(tts.EventDone, nil)

	require.Len(t, syn.utterances, 1)
	assert.Equal(t, "bonjour", syn.utterances[0].Text)
	assert.Equal(t, "Claire", syn.utterances[0].Voice)
	assert.Equal(t, "fr-FR", syn.utterances[0].Language)
	assert.Equal(t, []EventType{EventSpeakStart, EventSpeakEnd}, log.types())
	assert.Equal(t, "bonjour", e.Utterance())
}

func TestEngine_SpeakBlank(t *testing.T) {
	e, _, syn, _ := newTestEngine(DefaultEngineConfig())

	e.Speak("")
	assert.Empty(t, syn.utterances)
	assert.Equal(t, tts.Idle, e.SynthesisState())

	e.Speak("again")
	syn.send(tts.EventDone, nil)
	e.Speak("")

	require.Len(t, syn.utterances, 2)
	assert.Equal(t, "again", syn.utterances[1].Text)
}

func TestEngine_SynthesisError(t *testing.T) {
	e, _, syn, log := newTestEngine(DefaultEngineConfig())

	e.Speak("hello")
	syn.send(tts.EventError, errors.New("quota"))

	assert.Equal(t, tts.Idle, e.SynthesisState())
	require.Equal(t, []EventType{EventError}, log.types())
	assert.Equal(t, SourceSynthesis, log.events[0].Source)
}

func TestEngine_ListenerMayCallBack(t *testing.T) {
	e, rec, _, _ := newTestEngine(DefaultEngineConfig())
	var restarted bool
	e.Subscribe(EventError, func(Event) {
		if !restarted {
			restarted = true
			e.Start()
		}
	})

	e.Start()
	rec.send(stt.EventError, "", errors.New("no-speech"))

	assert.True(t, restarted)
	assert.Equal(t, stt.Listening, e.RecognitionState())
	assert.Len(t, rec.starts, 2)
}

func TestEngine_RecognitionLanguages(t *testing.T) {
	e, _, _, _ := newTestEngine(DefaultEngineConfig())
	assert.Equal(t, []string{"en-US", "fr-FR"}, e.RecognitionLanguages())
}

func TestEngine_Close(t *testing.T) {
	e, rec, _, _ := newTestEngine(DefaultEngineConfig())
	boom := errors.New("close failed")
	rec.closeFn = func() error { return boom }

	e.Start()
	err := e.Close()

	assert.ErrorIs(t, err, boom)
	assert.True(t, rec.closed)
	assert.Equal(t, stt.Idle, e.RecognitionState())
}

func TestProperty_SelectionInvariant(t *testing.T) {
	langs := []string{"en-US", "en_US", "fr-FR", "de-DE"}
	names := []string{"Alex", "Sam", "Claire", "Hans"}

	rapid.Check(t, func(t *rapid.T) {
		e, _, syn, _ := newTestEngine(DefaultEngineConfig())
		drawVoices := func(label string) []catalog.Voice {
			return rapid.SliceOfN(rapid.Custom(func(t *rapid.T) catalog.Voice {
				return catalog.Voice{
					Language: rapid.SampledFrom(langs).Draw(t, "lang"),
					Name:     rapid.SampledFrom(names).Draw(t, "name"),
				}
			}), 0, 6).Draw(t, label)
		}

		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				syn.voicesReady(drawVoices("voices")...)
			case 1:
				e.SetLanguage(rapid.SampledFrom(langs).Draw(t, "code"))
			case 2:
				e.SetVoice(rapid.SampledFrom(names).Draw(t, "voice"))
			}

			voice := e.Voice()
			if voice != "" && !e.Voices().Contains(e.Language(), voice) {
				t.Fatalf("voice %q not in catalog[%q]", voice, e.Language())
			}
		}
	})
}
