// Package engines wires speech backends to host mechanisms: voice
// helpers, the backend registry, instrumentation and host discovery.
package engines

import (
	"os"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/language"

	"github.com/dgnsrekt/narrate/tts"
)

// FilterLocalVoices drops voices that need the network or are not
// installed. The result is a new slice.
func FilterLocalVoices(voices []tts.Voice) []tts.Voice {
	local := make([]tts.Voice, 0, len(voices))
	for _, v := range voices {
		if v.RequiresNetwork || !v.Installed {
			continue
		}
		local = append(local, v)
	}
	return local
}

// DefaultVoice picks the voice to use when none has been chosen. A voice
// whose ID equals preferred wins; otherwise the best language match for
// lang, and finally the first voice. It reports false for an empty list.
func DefaultVoice(voices []tts.Voice, preferred, lang string) (tts.Voice, bool) {
	if len(voices) == 0 {
		return tts.Voice{}, false
	}

	if preferred != "" {
		for _, v := range voices {
			if strings.EqualFold(v.ID, preferred) {
				return v, true
			}
		}
	}

	if lang == "" {
		lang = SystemLanguage()
	}
	want, err := language.Parse(lang)
	if err != nil {
		return voices[0], true
	}

	tags := make([]language.Tag, len(voices))
	for i, v := range voices {
		tag, err := language.Parse(v.Language)
		if err != nil {
			tag = language.Und
		}
		tags[i] = tag
	}

	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No || idx < 0 || idx >= len(voices) {
		return voices[0], true
	}
	return voices[idx], true
}

// SystemLanguage returns the user's language from the POSIX locale
// variables, e.g. "en-US" for LANG=en_US.UTF-8. It is empty when unset.
func SystemLanguage() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(key)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}
		return strings.ReplaceAll(value, "_", "-")
	}
	return ""
}

// voiceSource adapts a voice list for fuzzy matching.
type voiceSource []tts.Voice

func (s voiceSource) String(i int) string { return s[i].ID + " " + s[i].Name }
func (s voiceSource) Len() int            { return len(s) }

// FindVoice looks a voice up by exact ID, then by fuzzy match on ID and
// name.
func FindVoice(voices []tts.Voice, query string) (tts.Voice, bool) {
	for _, v := range voices {
		if strings.EqualFold(v.ID, query) {
			return v, true
		}
	}

	matches := SearchVoices(voices, query)
	if len(matches) == 0 {
		return tts.Voice{}, false
	}
	return matches[0], true
}

// SearchVoices returns the voices fuzzily matching query on ID and name,
// best match first. An empty query matches every voice.
func SearchVoices(voices []tts.Voice, query string) []tts.Voice {
	if query == "" {
		return append([]tts.Voice(nil), voices...)
	}

	matches := fuzzy.FindFrom(query, voiceSource(voices))
	found := make([]tts.Voice, len(matches))
	for i, m := range matches {
		found[i] = voices[m.Index]
	}
	return found
}
