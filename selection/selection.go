package selection

import (
	"github.com/d1nch8g/voiceengine/catalog"
)

// State holds the selected language and voice.
// Whenever both are set and the voice came from SetLanguage or Reconcile,
// the voice is a member of catalog[language].
type State struct {
	language string
	voice    string
}

// New creates a selection with an initial language and no voice
func New(language string) *State {
	return &State{language: catalog.NormalizeLanguage(language)}
}

// Language returns the selected language code
func (s *State) Language() string {
	return s.language
}

// Voice returns the selected voice, or "" when none is selected
func (s *State) Voice() string {
	return s.voice
}

// SetLanguage selects a language and reselects the voice when the current one
// does not belong to it. Empty codes are ignored. Reports whether the voice changed.
func (s *State) SetLanguage(code string, c catalog.Catalog) bool {
	code = catalog.NormalizeLanguage(code)
	if code == "" {
		return false
	}
	s.language = code
	return s.fixVoice(c)
}

// SetVoice selects a voice without checking it against any catalog
func (s *State) SetVoice(name string) {
	s.voice = name
}

// Reconcile revalidates the voice against a new catalog. The language is never
// switched. Reports whether the voice changed.
func (s *State) Reconcile(c catalog.Catalog) bool {
	return s.fixVoice(c)
}

func (s *State) fixVoice(c catalog.Catalog) bool {
	if s.voice != "" && c.Contains(s.language, s.voice) {
		return false
	}
	next := c.First(s.language)
	changed := next != s.voice
	s.voice = next
	return changed
}
