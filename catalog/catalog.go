package catalog

import (
	"sort"
	"strings"
)

// Voice is a single entry reported by a synthesis backend during discovery
type Voice struct {
	Language string
	Name     string
	// Local marks a voice rendered on the device rather than by a remote service
	Local bool
}

// Catalog maps a language code to the voices available for it.
// A Catalog is never modified after Build returns it.
type Catalog struct {
	voices map[string][]string
}

type buildOptions struct {
	preferLocal bool
}

// Option customizes how Build orders voices inside a language group
type Option func(*buildOptions)

// WithPreferLocal puts voices whose locality matches local first
func WithPreferLocal(local bool) Option {
	return func(o *buildOptions) {
		o.preferLocal = local
	}
}

// NormalizeLanguage converts underscore separators to hyphens, so en_US becomes en-US
func NormalizeLanguage(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
}

// Build groups raw discovery entries by language.
// Entries without a language or name are skipped and duplicates within a
// language are collapsed, so the first voice of every group is deterministic.
func Build(entries []Voice, opts ...Option) Catalog {
	options := buildOptions{preferLocal: true}
	for _, opt := range opts {
		opt(&options)
	}

	grouped := make(map[string][]Voice)
	seen := make(map[string]map[string]struct{})
	for _, entry := range entries {
		lang := NormalizeLanguage(entry.Language)
		name := strings.TrimSpace(entry.Name)
		if lang == "" || name == "" {
			continue
		}
		if seen[lang] == nil {
			seen[lang] = make(map[string]struct{})
		}
		if _, dup := seen[lang][name]; dup {
			continue
		}
		seen[lang][name] = struct{}{}
		entry.Language, entry.Name = lang, name
		grouped[lang] = append(grouped[lang], entry)
	}

	voices := make(map[string][]string, len(grouped))
	for lang, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return less(group[i], group[j], options.preferLocal)
		})
		names := make([]string, len(group))
		for i, v := range group {
			names[i] = v.Name
		}
		voices[lang] = names
	}

	return Catalog{voices: voices}
}

// less orders by locality preference, then plain names before names with a
// parenthesised qualifier (those tend to sound synthetic), then alphabetically.
func less(a, b Voice, preferLocal bool) bool {
	if (a.Local == preferLocal) != (b.Local == preferLocal) {
		return a.Local == preferLocal
	}
	if plainName(a.Name) != plainName(b.Name) {
		return plainName(a.Name)
	}
	return a.Name < b.Name
}

func plainName(name string) bool {
	return !strings.Contains(name, "(")
}

// Voices returns a copy of the voices for lang, or nil if there are none
func (c Catalog) Voices(lang string) []string {
	names := c.voices[NormalizeLanguage(lang)]
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Contains reports whether name is a voice of lang
func (c Catalog) Contains(lang, name string) bool {
	for _, v := range c.voices[NormalizeLanguage(lang)] {
		if v == name {
			return true
		}
	}
	return false
}

// First returns the preferred voice of lang, or "" when lang has no voices
func (c Catalog) First(lang string) string {
	names := c.voices[NormalizeLanguage(lang)]
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Languages returns the sorted list of languages with at least one voice
func (c Catalog) Languages() []string {
	langs := make([]string, 0, len(c.voices))
	for lang := range c.voices {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Len returns the number of languages
func (c Catalog) Len() int {
	return len(c.voices)
}

// Map returns a copy of the whole catalog
func (c Catalog) Map() map[string][]string {
	out := make(map[string][]string, len(c.voices))
	for lang, names := range c.voices {
		cp := make([]string, len(names))
		copy(cp, names)
		out[lang] = cp
	}
	return out
}
