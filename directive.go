package astisapi

import "time"

// Directive is one item of the speech sequence a host hands to the driver.
// The set of implementations is closed: drivers switch over it exhaustively
// and treat anything else as a defect.
type Directive interface {
	directive()
}

// TextDirective asks for a literal piece of text to be spoken
type TextDirective struct {
	Text string
}

// IndexDirective asks for a bookmark to be planted so the engine can report
// progress back as an index-reached notification
type IndexDirective struct {
	Index int
}

// CharacterModeDirective toggles spelled-out (character by character) speech
type CharacterModeDirective struct {
	Enabled bool
}

// BreakDirective asks for a pause of the provided duration
type BreakDirective struct {
	Duration time.Duration
}

// PitchDirective scales the baseline pitch by the provided multiplier
type PitchDirective struct {
	Multiplier float64
}

// VolumeDirective scales the baseline volume by the provided multiplier.
// A multiplier of 1 removes any previous volume override.
type VolumeDirective struct {
	Multiplier float64
}

// RateDirective scales the baseline rate by the provided multiplier.
// A multiplier of 1 removes any previous rate override.
type RateDirective struct {
	Multiplier float64
}

// PhonemeDirective asks for a pronunciation expressed in IPA. Text is the
// literal fallback spoken when the engine can't honor the pronunciation.
type PhonemeDirective struct {
	IPA  string
	Text string
}

// CommandDirective is an acknowledged command category the driver doesn't
// act on, e.g. a language change. Drivers ignore it silently.
type CommandDirective struct {
	Name string
}

func (d TextDirective) directive()          {}
func (d IndexDirective) directive()         {}
func (d CharacterModeDirective) directive() {}
func (d BreakDirective) directive()         {}
func (d PitchDirective) directive()         {}
func (d VolumeDirective) directive()        {}
func (d RateDirective) directive()          {}
func (d PhonemeDirective) directive()       {}
func (d CommandDirective) directive()       {}

// Voice represents an installed synthetic voice
type Voice struct {
	ID       string `json:"id"`
	Language string `json:"language,omitempty"`
	Name     string `json:"name"`
}

// Driver represents an object capable of synthesizing a speech sequence
type Driver interface {
	Cancel() error
	Pause(paused bool) error
	Speak(seq []Directive) error
	Voices() ([]Voice, error)
}

// Settings represents an object exposing the driver settings the host can
// get and set. Rate, pitch and volume are percentages between 0 and 100.
type Settings interface {
	Pitch() int
	Rate() (int, error)
	SetPitch(pitch int) error
	SetRate(rate int) error
	SetVoice(id string) error
	SetVolume(volume int) error
	VoiceID() (string, error)
	Volume() (int, error)
}
