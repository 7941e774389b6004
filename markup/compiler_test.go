package markup

import (
	"testing"
	"time"

	"github.com/asticode/go-astisapi"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPercentToPitch(t *testing.T) {
	assert.Equal(t, -25, PercentToPitch(0))
	assert.Equal(t, 0, PercentToPitch(50))
	assert.Equal(t, 25, PercentToPitch(100))
}

func TestPercentToRate(t *testing.T) {
	assert.Equal(t, -10, PercentToRate(0))
	assert.Equal(t, 0, PercentToRate(50))
	assert.Equal(t, 10, PercentToRate(100))

	// Division floors for percents that don't land on an engine unit
	assert.Equal(t, -2, PercentToRate(44))
	assert.Equal(t, -1, PercentToRate(49))
	assert.Equal(t, 1, PercentToRate(56))
}

func defaultParameters() Parameters {
	return Parameters{Pitch: 50, Rate: 50, Volume: 80}
}

func TestCompileText(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.TextDirective{Text: "hello"},
		astisapi.TextDirective{Text: " <world>"},
	}, defaultParameters())
	assert.Equal(t, `<pitch absmiddle="0">hello &lt;world></pitch>`, o)
}

func TestCompileIndexAndBreak(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.IndexDirective{Index: 3},
		astisapi.TextDirective{Text: "a"},
		astisapi.BreakDirective{Duration: 250 * time.Millisecond},
	}, defaultParameters())
	assert.Equal(t, `<Bookmark Mark="3" /><pitch absmiddle="0">a<silence msec="250" /></pitch>`, o)
}

func TestCompileCharacterModeNetNoop(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.CharacterModeDirective{Enabled: true},
		astisapi.CharacterModeDirective{Enabled: false},
		astisapi.TextDirective{Text: "a"},
	}, defaultParameters())
	assert.NotContains(t, o, "spell")
	assert.Equal(t, `<pitch absmiddle="0">a</pitch>`, o)
}

func TestCompileCharacterMode(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.CharacterModeDirective{Enabled: true},
		astisapi.TextDirective{Text: "a"},
		astisapi.CharacterModeDirective{Enabled: false},
		astisapi.TextDirective{Text: "b"},
	}, defaultParameters())
	assert.Equal(t, `<pitch absmiddle="0"><spell>a</spell></pitch><pitch absmiddle="0">b</pitch>`, o)
}

func TestCompileVolumeReset(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.VolumeDirective{Multiplier: 2},
		astisapi.VolumeDirective{Multiplier: 1},
		astisapi.TextDirective{Text: "a"},
	}, defaultParameters())
	assert.NotContains(t, o, "volume")
}

func TestCompileVolume(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.VolumeDirective{Multiplier: 0.5},
		astisapi.TextDirective{Text: "a"},
	}, defaultParameters())
	assert.Equal(t, `<pitch absmiddle="0"><volume level="40">a</volume></pitch>`, o)
}

func TestCompileRate(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.RateDirective{Multiplier: 2},
		astisapi.TextDirective{Text: "a"},
		astisapi.RateDirective{Multiplier: 1},
		astisapi.TextDirective{Text: "b"},
	}, defaultParameters())
	assert.Equal(t, `<pitch absmiddle="0"><rate absspeed="10">a</rate></pitch><pitch absmiddle="0">b</pitch>`, o)
}

func TestCompilePitchMultiplier(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.PitchDirective{Multiplier: 2},
		astisapi.TextDirective{Text: "a"},
	}, defaultParameters())
	assert.Equal(t, `<pitch absmiddle="25">a</pitch>`, o)
}

func TestCompilePhoneme(t *testing.T) {
	p := defaultParameters()
	p.ConvertPhoneme = func(ipa string) (string, error) {
		if ipa == "θ" {
			return "th", nil
		}
		return "", errors.New("no translation")
	}

	// Converted
	o := Compile([]astisapi.Directive{astisapi.PhonemeDirective{IPA: "θ", Text: "th"}}, p)
	assert.Equal(t, `<pron sym="th">th</pron>`, o)

	// Fallback to literal text
	o = Compile([]astisapi.Directive{astisapi.PhonemeDirective{IPA: "ʊ", Text: "cat"}}, p)
	assert.Equal(t, `<pitch absmiddle="0">cat</pitch>`, o)

	// No fallback text
	o = Compile([]astisapi.Directive{astisapi.PhonemeDirective{IPA: "ʊ"}}, p)
	assert.Equal(t, "", o)

	// No phonetic inventory
	p.ConvertPhoneme = nil
	o = Compile([]astisapi.Directive{astisapi.PhonemeDirective{IPA: "θ", Text: "cat"}}, p)
	assert.Equal(t, `<pitch absmiddle="0">cat</pitch>`, o)
}

func TestCompileBalancedWithoutText(t *testing.T) {
	o := Compile([]astisapi.Directive{
		astisapi.CharacterModeDirective{Enabled: true},
		astisapi.VolumeDirective{Multiplier: 2},
		astisapi.RateDirective{Multiplier: 0.5},
	}, defaultParameters())
	assertBalanced(t, o)
}
