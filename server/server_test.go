package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asticode/go-astisapi"
	astiptr "github.com/asticode/go-astitools/ptr"
	"github.com/stretchr/testify/assert"
)

type mockedDriver struct {
	calls    []string
	canPause bool
	d        *astisapi.Dispatcher
	paused   bool
	pitch    int
	rate     int
	seqs     [][]astisapi.Directive
	voice    string
	volume   int
}

func newMockedDriver() *mockedDriver {
	return &mockedDriver{
		canPause: true,
		d:        astisapi.NewDispatcher(),
		pitch:    50,
		rate:     50,
		voice:    "v1",
		volume:   80,
	}
}

func (d *mockedDriver) Cancel() error {
	d.calls = append(d.calls, "cancel")
	return nil
}

func (d *mockedDriver) CanPause() bool { return d.canPause }

func (d *mockedDriver) Pause(paused bool) error {
	d.paused = paused
	return nil
}

func (d *mockedDriver) Speak(seq []astisapi.Directive) error {
	d.seqs = append(d.seqs, seq)
	return nil
}

func (d *mockedDriver) Voices() ([]astisapi.Voice, error) {
	return []astisapi.Voice{{ID: "v1", Language: "en_US", Name: "Voice 1"}}, nil
}

func (d *mockedDriver) On(c astisapi.DispatchConditions, h astisapi.NotificationHandler) {
	d.d.On(c, h)
}

func (d *mockedDriver) Pitch() int                  { return d.pitch }
func (d *mockedDriver) Rate() (int, error)          { return d.rate, nil }
func (d *mockedDriver) VoiceID() (string, error)    { return d.voice, nil }
func (d *mockedDriver) Volume() (int, error)        { return d.volume, nil }
func (d *mockedDriver) SetPitch(pitch int) error    { d.pitch = pitch; return nil }
func (d *mockedDriver) SetRate(rate int) error      { d.rate = rate; return nil }
func (d *mockedDriver) SetVoice(id string) error    { d.voice = id; return nil }
func (d *mockedDriver) SetVolume(volume int) error  { d.volume = volume; return nil }

func newTestServer() (*mockedDriver, *httptest.Server) {
	d := newMockedDriver()
	s := New(Options{}, d, nil)
	return d, httptest.NewServer(s.handler())
}

func TestServerOk(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/api/ok")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServerVoices(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/api/voices")
	assert.NoError(t, err)
	defer resp.Body.Close()
	var vs []astisapi.Voice
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&vs))
	assert.Equal(t, []astisapi.Voice{{ID: "v1", Language: "en_US", Name: "Voice 1"}}, vs)
}

func TestServerSpeak(t *testing.T) {
	d, ts := newTestServer()
	defer ts.Close()

	// Valid sequence
	b, err := json.Marshal([]APIDirective{
		{Type: TypeText, Text: "hello"},
		{Type: TypeIndex, Index: 3},
		{Type: TypeBreak, DurationMs: 50},
	})
	assert.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/speak", "application/json", bytes.NewReader(b))
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	if assert.Len(t, d.seqs, 1) {
		assert.Equal(t, []astisapi.Directive{
			astisapi.TextDirective{Text: "hello"},
			astisapi.IndexDirective{Index: 3},
			astisapi.BreakDirective{Duration: 50 * time.Millisecond},
		}, d.seqs[0])
	}

	// Invalid directive type
	resp, err = http.Post(ts.URL+"/api/speak", "application/json", bytes.NewReader([]byte(`[{"type":"nope"}]`)))
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, d.seqs, 1)
}

func TestServerCancel(t *testing.T) {
	d, ts := newTestServer()
	defer ts.Close()
	resp, err := http.Post(ts.URL+"/api/cancel", "application/json", nil)
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"cancel"}, d.calls)
}

func TestServerPause(t *testing.T) {
	d, ts := newTestServer()
	defer ts.Close()

	// Pause
	resp, err := http.Post(ts.URL+"/api/pause", "application/json", bytes.NewReader([]byte(`{"paused":true}`)))
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, d.paused)

	// No pause capability
	d.canPause = false
	resp, err = http.Post(ts.URL+"/api/pause", "application/json", bytes.NewReader([]byte(`{"paused":true}`)))
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServerSettings(t *testing.T) {
	d, ts := newTestServer()
	defer ts.Close()

	// Get
	resp, err := http.Get(ts.URL + "/api/settings")
	assert.NoError(t, err)
	var g APISettings
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	resp.Body.Close()
	assert.Equal(t, APISettings{
		Pitch:  astiptr.Int(50),
		Rate:   astiptr.Int(50),
		Voice:  astiptr.Str("v1"),
		Volume: astiptr.Int(80),
	}, g)

	// Patch only what's provided
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/settings", bytes.NewReader([]byte(`{"rate":80}`)))
	assert.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 80, d.rate)
	assert.Equal(t, 50, d.pitch)
	assert.Equal(t, "v1", d.voice)
	assert.Equal(t, 80, d.volume)
}
