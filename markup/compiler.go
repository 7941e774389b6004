package markup

import (
	"math"
	"strconv"
	"time"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astisapi"
)

// PercentToPitch converts a pitch percentage (0-100) into the absmiddle
// pitch units of the engine (-25..25)
func PercentToPitch(percent int) int {
	return percent/2 - 25
}

// PercentToRate converts a rate percentage (0-100) into the absspeed rate
// units of the engine (roughly -10..10). The division floors: 44% is -2
// units, not -1.
func PercentToRate(percent int) int {
	q := (percent - 50) / 5
	if (percent-50)%5 < 0 {
		q--
	}
	return q
}

// Parameters are the baseline settings a sequence is compiled against.
// ConvertPhoneme translates an IPA pronunciation into the engine's phonetic
// notation; leave it nil when the current voice has no supported inventory.
type Parameters struct {
	ConvertPhoneme func(ipa string) (string, error)
	Pitch          int
	Rate           int
	Volume         int
}

// Compile renders a speech sequence as one markup string. Compilation is
// best effort: unknown directives are reported and skipped, never fatal.
func Compile(seq []astisapi.Directive, p Parameters) string {
	// Create builder
	b := NewBuilder()

	// Pitch must always be specified in the markup
	b.SetTag("pitch", map[string]string{"absmiddle": strconv.Itoa(PercentToPitch(p.Pitch))})

	// Loop through directives
	for _, d := range seq {
		switch d := d.(type) {
		case astisapi.TextDirective:
			b.WriteText(d.Text)
		case astisapi.IndexDirective:
			b.WriteBookmark(d.Index)
		case astisapi.CharacterModeDirective:
			if d.Enabled {
				b.SetTag("spell", nil)
			} else {
				b.DelTag("spell")
			}
		case astisapi.BreakDirective:
			b.WriteSilence(int(d.Duration / time.Millisecond))
		case astisapi.PitchDirective:
			b.SetTag("pitch", map[string]string{"absmiddle": strconv.Itoa(PercentToPitch(int(float64(p.Pitch) * d.Multiplier)))})
		case astisapi.VolumeDirective:
			if d.Multiplier == 1 {
				b.DelTag("volume")
			} else {
				b.SetTag("volume", map[string]string{"level": strconv.Itoa(int(math.Round(float64(p.Volume) * d.Multiplier)))})
			}
		case astisapi.RateDirective:
			if d.Multiplier == 1 {
				b.DelTag("rate")
			} else {
				b.SetTag("rate", map[string]string{"absspeed": strconv.Itoa(PercentToRate(int(float64(p.Rate) * d.Multiplier)))})
			}
		case astisapi.PhonemeDirective:
			compilePhoneme(b, d, p)
		case astisapi.CommandDirective:
			astilog.Debugf("markup: unsupported speech command: %s", d.Name)
		default:
			astilog.Errorf("markup: unknown directive %#v", d)
		}
	}

	// Close any tags that are still open
	b.Close()
	return b.String()
}

func compilePhoneme(b *Builder, d astisapi.PhonemeDirective, p Parameters) {
	// No phonetic inventory for the current voice
	if p.ConvertPhoneme == nil {
		if d.Text != "" {
			b.WriteText(d.Text)
		}
		return
	}

	// Convert
	sym, err := p.ConvertPhoneme(d.IPA)
	if err != nil {
		astilog.Debugf("markup: converting IPA string %s failed: %s", d.IPA, err)
		if d.Text != "" {
			b.WriteText(d.Text)
		}
		return
	}

	// Write
	b.WritePronunciation(sym, d.Text)
}
