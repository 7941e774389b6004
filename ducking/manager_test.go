package ducking

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type mockedSession struct {
	enableErr error
	enabled   bool
}

func (s *mockedSession) Enable() error {
	s.enabled = true
	return s.enableErr
}

type mockedDucker struct {
	enableErr error
	sessions  []*mockedSession
	supported bool
}

func (d *mockedDucker) IsSupported() bool { return d.supported }

func (d *mockedDucker) NewSession() Session {
	s := &mockedSession{enableErr: d.enableErr}
	d.sessions = append(d.sessions, s)
	return s
}

type mockedHook struct {
	unhooked bool
}

func (h *mockedHook) Unhook() error {
	h.unhooked = true
	return nil
}

type mockedHooker struct {
	errOn string
	hooks []*mockedHook
	names []string
}

func (k *mockedHooker) Hook(targetModule, importModule, funcName string, replacement interface{}) (Hook, error) {
	if funcName == k.errOn {
		return nil, errors.New("hook error")
	}
	k.names = append(k.names, funcName)
	h := &mockedHook{}
	k.hooks = append(k.hooks, h)
	return h, nil
}

func TestManagerEnsureHooks(t *testing.T) {
	// Create manager
	d := &mockedDucker{supported: true}
	k := &mockedHooker{}
	m := NewManager(Options{
		Ducker:       d,
		Hooker:       k,
		TargetModule: "sapi.dll",
	})

	// First call installs both hooks
	err := m.EnsureHooks()
	assert.NoError(t, err)
	assert.Equal(t, []string{"waveOutOpen", "waveOutClose"}, k.names)

	// Second call is a no-op
	err = m.EnsureHooks()
	assert.NoError(t, err)
	assert.Len(t, k.hooks, 2)

	// Close unhooks
	err = m.Close()
	assert.NoError(t, err)
	for _, h := range k.hooks {
		assert.True(t, h.unhooked)
	}
}

func TestManagerEnsureHooksUnsupported(t *testing.T) {
	k := &mockedHooker{}
	m := NewManager(Options{
		Ducker:       &mockedDucker{},
		Hooker:       k,
		TargetModule: "sapi.dll",
	})
	err := m.EnsureHooks()
	assert.NoError(t, err)
	assert.Empty(t, k.hooks)
}

func TestManagerEnsureHooksRollback(t *testing.T) {
	// Second hook fails
	d := &mockedDucker{supported: true}
	k := &mockedHooker{errOn: "waveOutClose"}
	m := NewManager(Options{
		Ducker:       d,
		Hooker:       k,
		TargetModule: "sapi.dll",
	})
	err := m.EnsureHooks()
	assert.Error(t, err)

	// The first hook was reversed so the pair is all-or-nothing
	assert.Len(t, k.hooks, 1)
	assert.True(t, k.hooks[0].unhooked)

	// No second attempt, the first outcome is returned again
	err = m.EnsureHooks()
	assert.Error(t, err)
	assert.Len(t, k.hooks, 1)
}

func TestManagerRegistry(t *testing.T) {
	// Create manager
	d := &mockedDucker{supported: true}
	m := NewManager(Options{
		Ducker:       d,
		Hooker:       &mockedHooker{},
		TargetModule: "sapi.dll",
	})

	// Open two handles
	m.WaveOutOpened(0, 1)
	m.WaveOutOpened(0, 2)
	assert.Equal(t, 2, m.SessionCount())
	assert.Len(t, d.sessions, 2)
	assert.True(t, d.sessions[0].enabled)

	// Close in reverse order
	m.WaveOutClosed(0, 2)
	m.WaveOutClosed(0, 1)
	assert.Equal(t, 0, m.SessionCount())

	// Closing twice is a no-op
	m.WaveOutClosed(0, 1)
	assert.Equal(t, 0, m.SessionCount())
}

func TestManagerRegistryFailures(t *testing.T) {
	// A failed open is not recorded
	d := &mockedDucker{supported: true}
	m := NewManager(Options{Ducker: d, Hooker: &mockedHooker{}, TargetModule: "sapi.dll"})
	m.WaveOutOpened(32, 1)
	assert.Equal(t, 0, m.SessionCount())

	// A failed enable doesn't block the session from being recorded
	d = &mockedDucker{enableErr: errors.New("enable error"), supported: true}
	m = NewManager(Options{Ducker: d, Hooker: &mockedHooker{}, TargetModule: "sapi.dll"})
	m.WaveOutOpened(0, 1)
	assert.Equal(t, 1, m.SessionCount())
}
