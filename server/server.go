// Package server exposes the speech driver to an out-of-process host over
// HTTP, with a websocket pushing driver notifications back.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astisapi"
	astihttp "github.com/asticode/go-astitools/http"
	astiptr "github.com/asticode/go-astitools/ptr"
	astiworker "github.com/asticode/go-astitools/worker"
	"github.com/asticode/go-astiws"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

// Driver is the part of the speech driver the server exposes
type Driver interface {
	astisapi.Driver
	astisapi.Settings
	CanPause() bool
	On(c astisapi.DispatchConditions, h astisapi.NotificationHandler)
}

type Options struct {
	Addr string `toml:"addr"`
}

type Server struct {
	d  Driver
	o  Options
	w  *astiworker.Worker
	ws *astiws.Manager
}

// New creates a new server. Driver notifications are forwarded to every
// connected websocket client.
func New(o Options, d Driver, w *astiworker.Worker) (s *Server) {
	// Create server
	s = &Server{
		d:  d,
		o:  o,
		w:  w,
		ws: astiws.NewManager(astiws.ManagerConfiguration{}),
	}

	// Forward notifications
	s.d.On(astisapi.DispatchConditions{}, s.sendNotification)
	return
}

// Close closes the server properly
func (s *Server) Close() error {
	// Close websocket clients
	if s.ws != nil {
		if err := s.ws.Close(); err != nil {
			astilog.Error(errors.Wrap(err, "server: closing websocket clients failed"))
		}
	}
	return nil
}

// Serve spawns the server
func (s *Server) Serve() {
	s.w.Serve(s.o.Addr, s.handler())
}

func (s *Server) handler() http.Handler {
	// Create router
	r := httprouter.New()

	// Add routes
	r.GET("/api/ok", s.ok)
	r.GET("/api/voices", s.voices)
	r.GET("/api/settings", s.settings)
	r.PATCH("/api/settings", s.updateSettings)
	r.POST("/api/speak", s.speak)
	r.POST("/api/cancel", s.cancel)
	r.POST("/api/pause", s.pause)

	// Websockets
	r.GET("/websocket", s.handleWebsocket)

	// Chain middlewares
	return astihttp.ChainMiddlewaresWithPrefix(r, []string{"/api/"}, astihttp.MiddlewareContentType("application/json"))
}

func (s *Server) ok(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {}

func (s *Server) voices(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Get voices
	vs, err := s.d.Voices()
	if err != nil {
		astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: getting voices failed"))
		return
	}

	// Write
	astisapi.WriteHTTPData(rw, vs)
}

// APIDirective is the wire form of one speech sequence item
type APIDirective struct {
	Type       string  `json:"type"`
	DurationMs int     `json:"duration_ms,omitempty"`
	Enabled    bool    `json:"enabled,omitempty"`
	IPA        string  `json:"ipa,omitempty"`
	Index      int     `json:"index,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Name       string  `json:"name,omitempty"`
	Text       string  `json:"text,omitempty"`
}

// APIDirective types
const (
	TypeBreak         = "break"
	TypeCharacterMode = "character_mode"
	TypeCommand       = "command"
	TypeIndex         = "index"
	TypePhoneme       = "phoneme"
	TypePitch         = "pitch"
	TypeRate          = "rate"
	TypeText          = "text"
	TypeVolume        = "volume"
)

func parseDirectives(ds []APIDirective) (seq []astisapi.Directive, err error) {
	for _, d := range ds {
		switch d.Type {
		case TypeBreak:
			seq = append(seq, astisapi.BreakDirective{Duration: time.Duration(d.DurationMs) * time.Millisecond})
		case TypeCharacterMode:
			seq = append(seq, astisapi.CharacterModeDirective{Enabled: d.Enabled})
		case TypeCommand:
			seq = append(seq, astisapi.CommandDirective{Name: d.Name})
		case TypeIndex:
			seq = append(seq, astisapi.IndexDirective{Index: d.Index})
		case TypePhoneme:
			seq = append(seq, astisapi.PhonemeDirective{IPA: d.IPA, Text: d.Text})
		case TypePitch:
			seq = append(seq, astisapi.PitchDirective{Multiplier: d.Multiplier})
		case TypeRate:
			seq = append(seq, astisapi.RateDirective{Multiplier: d.Multiplier})
		case TypeText:
			seq = append(seq, astisapi.TextDirective{Text: d.Text})
		case TypeVolume:
			seq = append(seq, astisapi.VolumeDirective{Multiplier: d.Multiplier})
		default:
			err = errors.Errorf("server: invalid directive type %s", d.Type)
			return
		}
	}
	return
}

func (s *Server) speak(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Log
	astilog.Debug("server: handling speak request")

	// Unmarshal
	var ds []APIDirective
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		astisapi.WriteHTTPError(rw, http.StatusBadRequest, errors.Wrap(err, "server: unmarshaling failed"))
		return
	}

	// Parse directives
	seq, err := parseDirectives(ds)
	if err != nil {
		astisapi.WriteHTTPError(rw, http.StatusBadRequest, errors.Wrap(err, "server: parsing directives failed"))
		return
	}

	// Speak
	if err = s.d.Speak(seq); err != nil {
		astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: speaking failed"))
		return
	}
}

func (s *Server) cancel(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := s.d.Cancel(); err != nil {
		astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: cancelling failed"))
		return
	}
}

// APIPause is the body of a pause request
type APIPause struct {
	Paused bool `json:"paused"`
}

func (s *Server) pause(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Unmarshal
	var b APIPause
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		astisapi.WriteHTTPError(rw, http.StatusBadRequest, errors.Wrap(err, "server: unmarshaling failed"))
		return
	}

	// No pause capability
	if !s.d.CanPause() {
		astisapi.WriteHTTPError(rw, http.StatusConflict, errors.New("server: driver can't pause"))
		return
	}

	// Pause
	if err := s.d.Pause(b.Paused); err != nil {
		astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: pausing failed"))
		return
	}
}

// APISettings is the wire form of the driver settings. In a PATCH request
// only the provided fields are applied.
type APISettings struct {
	Pitch  *int    `json:"pitch,omitempty"`
	Rate   *int    `json:"rate,omitempty"`
	Voice  *string `json:"voice,omitempty"`
	Volume *int    `json:"volume,omitempty"`
}

func (s *Server) settings(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Get rate
	rate, err := s.d.Rate()
	if err != nil {
		astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: getting rate failed"))
		return
	}

	// Get volume
	volume, err := s.d.Volume()
	if err != nil {
		astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: getting volume failed"))
		return
	}

	// Get voice
	voice, err := s.d.VoiceID()
	if err != nil {
		astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: getting voice failed"))
		return
	}

	// Write
	astisapi.WriteHTTPData(rw, APISettings{
		Pitch:  astiptr.Int(s.d.Pitch()),
		Rate:   astiptr.Int(rate),
		Voice:  astiptr.Str(voice),
		Volume: astiptr.Int(volume),
	})
}

func (s *Server) updateSettings(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Log
	astilog.Debug("server: handling update settings request")

	// Unmarshal
	var b APISettings
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		astisapi.WriteHTTPError(rw, http.StatusBadRequest, errors.Wrap(err, "server: unmarshaling failed"))
		return
	}

	// Apply pitch
	if b.Pitch != nil {
		if err := s.d.SetPitch(*b.Pitch); err != nil {
			astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: setting pitch failed"))
			return
		}
	}

	// Apply rate
	if b.Rate != nil {
		if err := s.d.SetRate(*b.Rate); err != nil {
			astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: setting rate failed"))
			return
		}
	}

	// Apply volume
	if b.Volume != nil {
		if err := s.d.SetVolume(*b.Volume); err != nil {
			astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: setting volume failed"))
			return
		}
	}

	// Apply voice
	if b.Voice != nil {
		if err := s.d.SetVoice(*b.Voice); err != nil {
			astisapi.WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: setting voice failed"))
			return
		}
	}
}
