package sapi5

import (
	"strconv"
	"strings"
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astisapi"
	"github.com/asticode/go-astisapi/markup"
	"github.com/asticode/go-astisapi/phoneme"
	"github.com/pkg/errors"
)

// Options represents driver options
type Options struct {
	// OutputDevice is the name of the audio output to speak through. Empty
	// keeps the engine default.
	OutputDevice string `toml:"output_device"`
	// ResolveOutput maps an output device name to the engine's audio output
	// index. Leave nil to keep the engine default output.
	ResolveOutput func(name string) (int, error) `toml:"-"`
	// Voice is the ID of the voice to select at creation. Empty keeps the
	// engine default voice.
	Voice string `toml:"voice"`
}

// Driver adapts a host speech contract to the SAPI5 subsystem
type Driver struct {
	d     *astisapi.Dispatcher
	e     Engine
	m     sync.Mutex // Locks e, s and pitch
	n     NewEngineFunc
	o     Options
	pitch int
	s     *Sink
}

// New creates a new driver
func New(o Options, n NewEngineFunc) (d *Driver, err error) {
	// Create driver
	d = &Driver{
		d:     astisapi.NewDispatcher(),
		n:     n,
		o:     o,
		pitch: 50,
	}

	// Create engine
	if err = d.initEngine(nil); err != nil {
		err = errors.Wrap(err, "sapi5: initializing engine failed")
		return
	}

	// Select initial voice
	if o.Voice != "" {
		if err = d.SetVoice(o.Voice); err != nil {
			err = errors.Wrapf(err, "sapi5: setting voice %s failed", o.Voice)
			return
		}
	}
	return
}

// On registers a notification handler
func (d *Driver) On(c astisapi.DispatchConditions, h astisapi.NotificationHandler) {
	d.d.On(c, h)
}

// initEngine creates a new engine and swaps it in. A nil voice keeps the
// engine default voice.
func (d *Driver) initEngine(voice Token) (err error) {
	// Create sink
	s := newSink(d.d.Dispatch)

	// Create engine
	var e Engine
	if e, err = d.n(s); err != nil {
		err = errors.Wrap(err, "sapi5: creating engine failed")
		return
	}

	// The engine doesn't reset all audio parameters when the voice changes,
	// only when the audio output does. Set the voice before re-resolving the
	// output, otherwise speech quality degrades with some voices.
	if voice != nil {
		if err = e.SetVoice(voice); err != nil {
			e.Close()
			err = errors.Wrap(err, "sapi5: setting voice failed")
			return
		}
	}

	// Resolve the audio output
	if d.o.ResolveOutput != nil && d.o.OutputDevice != "" {
		var i int
		if i, err = d.o.ResolveOutput(d.o.OutputDevice); err != nil {
			// No output means the engine default, not a dead driver
			astilog.Warn(errors.Wrapf(err, "sapi5: resolving output device %s failed", d.o.OutputDevice))
			err = nil
		} else if err = e.SetAudioOutputIndex(i); err != nil {
			e.Close()
			err = errors.Wrapf(err, "sapi5: setting audio output %d failed", i)
			return
		}
	}

	// Swap the previous engine out. Its sink is killed first so that late
	// engine callbacks no-op.
	d.m.Lock()
	pe, ps := d.e, d.s
	d.e, d.s = e, s
	d.m.Unlock()
	if ps != nil {
		ps.kill()
	}
	if pe != nil {
		if err = pe.Close(); err != nil {
			err = errors.Wrap(err, "sapi5: closing previous engine failed")
			return
		}
	}
	return
}

// Close implements the io.Closer interface
func (d *Driver) Close() (err error) {
	// Kill the sink before tearing the engine down so that callbacks still
	// in flight don't act on a dead driver
	d.m.Lock()
	e, s := d.e, d.s
	d.e, d.s = nil, nil
	d.m.Unlock()
	if s != nil {
		s.kill()
	}

	// Close engine
	if e != nil {
		if err = e.Close(); err != nil {
			err = errors.Wrap(err, "sapi5: closing engine failed")
			return
		}
	}
	return
}

func (d *Driver) engine() Engine {
	d.m.Lock()
	defer d.m.Unlock()
	return d.e
}

// Speak compiles the sequence into markup and issues one asynchronous speak
// request
func (d *Driver) Speak(seq []astisapi.Directive) (err error) {
	// Get engine
	e := d.engine()

	// Get baselines
	var rate int
	if rate, err = d.Rate(); err != nil {
		err = errors.Wrap(err, "sapi5: getting rate failed")
		return
	}
	var volume int
	if volume, err = d.Volume(); err != nil {
		err = errors.Wrap(err, "sapi5: getting volume failed")
		return
	}

	// Compile
	text := markup.Compile(seq, markup.Parameters{
		ConvertPhoneme: d.convertPhoneme(e),
		Pitch:          d.Pitch(),
		Rate:           rate,
		Volume:         volume,
	})

	// Speak
	if err = e.Speak(text, SpeakFlagAsync|SpeakFlagIsXML); err != nil {
		err = errors.Wrap(err, "sapi5: speaking failed")
		return
	}
	return
}

// SpeakToFile renders the sequence synchronously into a wave file instead
// of the audio output
func (d *Driver) SpeakToFile(path string, seq []astisapi.Directive) (err error) {
	// Get engine
	e := d.engine()

	// Get baselines
	var rate int
	if rate, err = d.Rate(); err != nil {
		err = errors.Wrap(err, "sapi5: getting rate failed")
		return
	}
	var volume int
	if volume, err = d.Volume(); err != nil {
		err = errors.Wrap(err, "sapi5: getting volume failed")
		return
	}

	// Compile
	text := markup.Compile(seq, markup.Parameters{
		ConvertPhoneme: d.convertPhoneme(e),
		Pitch:          d.Pitch(),
		Rate:           rate,
		Volume:         volume,
	})

	// Speak
	if err = e.SpeakToFile(path, text, SpeakFlagIsXML); err != nil {
		err = errors.Wrapf(err, "sapi5: speaking to file %s failed", path)
		return
	}
	return
}

// convertPhoneme returns the phoneme converter for the current voice, or nil
// when the voice's language has no supported phonetic inventory
func (d *Driver) convertPhoneme(e Engine) func(ipa string) (string, error) {
	t, err := e.Voice()
	if err != nil {
		astilog.Debug(errors.Wrap(err, "sapi5: getting voice failed"))
		return nil
	}
	l, err := t.Attribute("language")
	if err != nil || strings.Split(l, ";")[0] != phoneme.LanguageID {
		return nil
	}
	return phoneme.Convert
}

// Cancel stops speaking immediately. The engine's own purge path can lag at
// end of speech, so the underlying audio stream is forced to a stop first
// when available, then a purge request tops it up.
func (d *Driver) Cancel() (err error) {
	// Get engine
	e := d.engine()

	// Stop the audio stream
	if e.SupportsAudioState() {
		if err = e.SetAudioState(AudioStateStop); err != nil {
			astilog.Error(errors.Wrap(err, "sapi5: stopping audio stream failed"))
			err = nil
		}
	}

	// Purge
	if err = e.Speak("", SpeakFlagAsync|SpeakFlagPurgeBeforeSpeak); err != nil {
		err = errors.Wrap(err, "sapi5: purging failed")
		return
	}
	return
}

// CanPause returns whether the driver can pause. Without a controllable
// audio stream no pause capability is exposed, since the engine's own pause
// path is unusably slow.
func (d *Driver) CanPause() bool {
	return d.engine().SupportsAudioState()
}

// Pause pauses or resumes the underlying audio stream
func (d *Driver) Pause(paused bool) (err error) {
	// Get engine
	e := d.engine()

	// No controllable audio stream
	if !e.SupportsAudioState() {
		return
	}

	// Toggle
	s := AudioStateRun
	if paused {
		s = AudioStatePause
	}
	if err = e.SetAudioState(s); err != nil {
		err = errors.Wrap(err, "sapi5: setting audio state failed")
		return
	}
	return
}

// Voices lists the installed voices. Tokens whose metadata can't be fetched
// are skipped.
func (d *Driver) Voices() (vs []astisapi.Voice, err error) {
	// Get tokens
	var ts []Token
	if ts, err = d.engine().VoiceTokens(); err != nil {
		err = errors.Wrap(err, "sapi5: getting voice tokens failed")
		return
	}

	// Loop through tokens
	for _, t := range ts {
		var v astisapi.Voice
		if v, err = voiceFromToken(t); err != nil {
			astilog.Warn(errors.Wrap(err, "sapi5: getting voice info failed, skipping"))
			err = nil
			continue
		}
		vs = append(vs, v)
	}
	return
}

func voiceFromToken(t Token) (v astisapi.Voice, err error) {
	if v.ID, err = t.ID(); err != nil {
		err = errors.Wrap(err, "sapi5: getting token id failed")
		return
	}
	if v.Name, err = t.Description(); err != nil {
		err = errors.Wrap(err, "sapi5: getting token description failed")
		return
	}
	if l, err := t.Attribute("language"); err == nil {
		v.Language = languageFromAttribute(l)
	}
	return
}

// Common LCIDs of installed SAPI voices
var windowsLocales = map[int64]string{
	0x404: "zh_TW",
	0x407: "de_DE",
	0x409: "en_US",
	0x40a: "es_ES",
	0x40c: "fr_FR",
	0x410: "it_IT",
	0x411: "ja_JP",
	0x412: "ko_KR",
	0x413: "nl_NL",
	0x415: "pl_PL",
	0x416: "pt_BR",
	0x419: "ru_RU",
	0x804: "zh_CN",
	0x809: "en_GB",
}

// languageFromAttribute decodes a voice language attribute, e.g. "409;9",
// whose first segment is a hex LCID
func languageFromAttribute(attr string) string {
	v, err := strconv.ParseInt(strings.Split(attr, ";")[0], 16, 64)
	if err != nil {
		return ""
	}
	return windowsLocales[v]
}

// Pitch returns the pitch percentage. Pitch is driven through markup around
// speak requests, not an engine setting, hence no error.
func (d *Driver) Pitch() int {
	d.m.Lock()
	defer d.m.Unlock()
	return d.pitch
}

// SetPitch sets the pitch percentage
func (d *Driver) SetPitch(pitch int) (err error) {
	d.m.Lock()
	defer d.m.Unlock()
	d.pitch = pitch
	return
}

// Rate returns the rate percentage
func (d *Driver) Rate() (rate int, err error) {
	var r int
	if r, err = d.engine().Rate(); err != nil {
		err = errors.Wrap(err, "sapi5: getting engine rate failed")
		return
	}
	rate = r*5 + 50
	return
}

// SetRate sets the rate percentage
func (d *Driver) SetRate(rate int) (err error) {
	if err = d.engine().SetRate(markup.PercentToRate(rate)); err != nil {
		err = errors.Wrap(err, "sapi5: setting engine rate failed")
		return
	}
	return
}

// Volume returns the volume percentage
func (d *Driver) Volume() (volume int, err error) {
	if volume, err = d.engine().Volume(); err != nil {
		err = errors.Wrap(err, "sapi5: getting engine volume failed")
		return
	}
	return
}

// SetVolume sets the volume percentage
func (d *Driver) SetVolume(volume int) (err error) {
	if err = d.engine().SetVolume(volume); err != nil {
		err = errors.Wrap(err, "sapi5: setting engine volume failed")
		return
	}
	return
}

// VoiceID returns the ID of the active voice
func (d *Driver) VoiceID() (id string, err error) {
	var t Token
	if t, err = d.engine().Voice(); err != nil {
		err = errors.Wrap(err, "sapi5: getting voice failed")
		return
	}
	if id, err = t.ID(); err != nil {
		err = errors.Wrap(err, "sapi5: getting voice id failed")
		return
	}
	return
}

// SetVoice selects the voice with the provided ID. The engine is re-created
// since changing the voice on a live engine doesn't reset all audio
// parameters. An unknown ID leaves the current voice untouched.
func (d *Driver) SetVoice(id string) (err error) {
	// Get tokens
	var ts []Token
	if ts, err = d.engine().VoiceTokens(); err != nil {
		err = errors.Wrap(err, "sapi5: getting voice tokens failed")
		return
	}

	// Loop through tokens
	for _, t := range ts {
		var tid string
		if tid, err = t.ID(); err != nil {
			astilog.Warn(errors.Wrap(err, "sapi5: getting token id failed"))
			err = nil
			continue
		}
		if tid != id {
			continue
		}

		// Re-create the engine with the new voice
		if err = d.initEngine(t); err != nil {
			err = errors.Wrap(err, "sapi5: initializing engine failed")
			return
		}
		return
	}

	// Voice not found
	astilog.Warnf("sapi5: no voice with id %s", id)
	return
}

// LastIndex returns the last bookmark the engine reached. ok is false when
// no bookmark was reached yet.
func (d *Driver) LastIndex() (index int, ok bool, err error) {
	// Get bookmark
	var b string
	if b, err = d.engine().LastBookmark(); err != nil {
		err = errors.Wrap(err, "sapi5: getting last bookmark failed")
		return
	}

	// No bookmark reached yet
	if b == "" {
		return
	}

	// Parse
	if index, err = strconv.Atoi(b); err != nil {
		err = errors.Wrapf(err, "sapi5: parsing bookmark %s failed", b)
		return
	}
	ok = true
	return
}
