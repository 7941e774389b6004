// Package sapi5 drives the Microsoft Speech API 5 COM subsystem: it compiles
// host speech sequences into markup, issues asynchronous speak requests and
// relays engine events back as notifications.
package sapi5

// SpeechVoiceSpeakFlags
// https://docs.microsoft.com/en-us/previous-versions/windows/desktop/ms720892(v=vs.85)
const (
	SpeakFlagAsync            = 1
	SpeakFlagPurgeBeforeSpeak = 2
	SpeakFlagIsXML            = 8
)

// SPAudioState
// https://docs.microsoft.com/en-us/previous-versions/windows/desktop/ms720596(v=vs.85)
type AudioState int

const (
	AudioStateClosed AudioState = iota
	AudioStateStop
	AudioStatePause
	AudioStateRun
)

// SpeechVoiceEvents
// https://msdn.microsoft.com/en-us/previous-versions/windows/desktop/ms720886(v=vs.85)
const (
	EventEndInputStream = 4
	EventBookmark       = 16
)

// Token represents one enumerable voice token and its metadata
type Token interface {
	Attribute(name string) (string, error)
	Description() (string, error)
	ID() (string, error)
}

// Engine wraps one voice object of the synthesis subsystem. Speak calls
// return immediately, playback and events happen on an engine-owned thread.
type Engine interface {
	Close() error
	LastBookmark() (string, error)
	Rate() (int, error)
	SetAudioOutputIndex(i int) error
	SetAudioState(s AudioState) error
	SetRate(rate int) error
	SetVoice(t Token) error
	SetVolume(volume int) error
	Speak(text string, flags int) error
	SpeakToFile(path, text string, flags int) error
	SupportsAudioState() bool
	Voice() (Token, error)
	VoiceTokens() ([]Token, error)
	Volume() (int, error)
}

// NewEngineFunc creates a new engine whose events are delivered to the
// provided sink. The driver re-creates its engine when the active voice
// changes since the engine doesn't reliably reset audio parameters
// otherwise.
type NewEngineFunc func(s *Sink) (Engine, error)
