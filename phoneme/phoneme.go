// Package phoneme translates pronunciations expressed in the International
// Phonetic Alphabet into the SAPI5 phonetic notation expected by pron tags.
package phoneme

import (
	"strings"

	"github.com/pkg/errors"
)

// LanguageID is the SAPI language attribute of the only phonetic inventory
// this package knows about (en-US).
const LanguageID = "409"

// primaryStress marks the following symbol as carrying primary stress. SAPI
// expresses it as a "1" suffix on that symbol's translation.
const primaryStress = 'ˈ'

var ipaToSAPI = map[rune]string{
	'θ': "th",
	's': "s",
}

// ErrNoTranslation is returned when a symbol has no table entry. Callers are
// expected to fall back to literal text rather than fail the utterance.
var ErrNoTranslation = errors.New("phoneme: no translation for symbol")

// Convert translates an IPA pronunciation into SAPI phonetic notation.
// Unlike most engines SAPI raises on unknown symbols instead of skipping
// them, so an incomplete translation is reported as an error here and never
// reaches the engine.
func Convert(ipa string) (o string, err error) {
	var out []string
	var after string
	for _, r := range ipa {
		// Stress applies to the symbol that follows it
		if r == primaryStress {
			after = "1"
			continue
		}

		// Translate
		s, ok := ipaToSAPI[r]
		if !ok {
			err = errors.Wrapf(ErrNoTranslation, "phoneme: converting %q failed", r)
			return
		}
		out = append(out, s)

		// Append pending stress
		if after != "" {
			out = append(out, after)
			after = ""
		}
	}

	// Trailing stress marker with no symbol after it
	if after != "" {
		out = append(out, after)
	}
	o = strings.Join(out, " ")
	return
}
