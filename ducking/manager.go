package ducking

import (
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Wave-out entry points interposed in the target module's import table
const (
	importModule     = "WINMM.dll"
	waveOutCloseName = "waveOutClose"
	waveOutOpenName  = "waveOutOpen"
)

// Options are manager options
type Options struct {
	Ducker Ducker `toml:"-"`
	Hooker Hooker `toml:"-"`
	// TargetModule is the dynamic library whose wave-out imports get
	// interposed. Defaults to the speech subsystem library of the platform.
	TargetModule string `toml:"target_module"`
}

// Manager owns the wave-out interpositions and the handle to ducking-session
// registry. Sessions are created when an intercepted open succeeds and
// discarded when the matching close is observed.
type Manager struct {
	attempted bool
	err       error
	hooks     []Hook
	m         *sync.Mutex // Locks attempted, err, hooks and sessions
	o         Options
	sessions  map[uintptr]Session
}

// NewManager creates a new manager
func NewManager(o Options) *Manager {
	if o.Ducker == nil {
		o.Ducker = NewUnsupportedDucker()
	}
	if o.TargetModule == "" {
		o.TargetModule = defaultTargetModule()
	}
	return &Manager{
		m:        &sync.Mutex{},
		o:        o,
		sessions: make(map[uintptr]Session),
	}
}

// EnsureHooks interposes waveOutOpen and waveOutClose in the target module.
// It's idempotent: only the first call on a manager attempts installation,
// later calls return the first outcome. When ducking is unsupported on the
// platform it's a no-op. Installation is all-or-nothing: if the second hook
// fails the first one is unhooked before returning the error.
func (m *Manager) EnsureHooks() (err error) {
	// Lock
	m.m.Lock()
	defer m.m.Unlock()

	// Only one installation attempt is ever made
	if m.attempted {
		return m.err
	}

	// Ducking is not supported
	if !m.o.Ducker.IsSupported() {
		astilog.Debug("ducking: audio ducking is not supported, not installing hooks")
		return
	}
	m.attempted = true

	// Loop through entry points
	var hs []Hook
	for _, i := range []struct {
		name        string
		replacement interface{}
	}{
		{name: waveOutOpenName, replacement: m.openReplacement()},
		{name: waveOutCloseName, replacement: m.closeReplacement()},
	} {
		// Hook
		var h Hook
		if h, err = m.o.Hooker.Hook(m.o.TargetModule, importModule, i.name, i.replacement); err != nil {
			err = errors.Wrapf(err, "ducking: hooking %s failed", i.name)

			// A half-installed pair would leave ducking inconsistent
			for _, p := range hs {
				if e := p.Unhook(); e != nil {
					astilog.Error(errors.Wrap(e, "ducking: unhooking failed"))
				}
			}
			m.err = err
			return
		}

		// Log
		astilog.Debugf("ducking: hooked %s", i.name)
		hs = append(hs, h)
	}
	m.hooks = hs
	return
}

// Close implements the io.Closer interface. It reverses the interpositions
// so that hooks never outlive the manager.
func (m *Manager) Close() (err error) {
	// Lock
	m.m.Lock()
	defer m.m.Unlock()

	// Loop through hooks
	for _, h := range m.hooks {
		if e := h.Unhook(); e != nil && err == nil {
			err = errors.Wrap(e, "ducking: unhooking failed")
		}
	}
	m.hooks = nil
	return
}

// WaveOutOpened pairs a successful device open with a new ducking session.
// Called by the interposed waveOutOpen after the real entry point returned.
// A failure to duck must never block audio: it's logged and the session is
// recorded anyway.
func (m *Manager) WaveOutOpened(status uint32, handle uintptr) {
	// The open failed, nothing to duck
	if status != 0 || handle == 0 {
		astilog.Warnf("ducking: opening wave out failed (status %d, handle %#x)", status, handle)
		return
	}

	// Create session
	s := m.o.Ducker.NewSession()

	// Enable
	if err := s.Enable(); err != nil {
		astilog.Warn(errors.Wrap(err, "ducking: enabling ducking failed"))
	}

	// Record session
	m.m.Lock()
	m.sessions[handle] = s
	m.m.Unlock()
}

// WaveOutClosed discards the ducking session recorded for the handle, if
// any. Called by the interposed waveOutClose after the real entry point
// returned. Closing an unknown handle is a no-op.
func (m *Manager) WaveOutClosed(status uint32, handle uintptr) {
	// The close failed
	if status != 0 || handle == 0 {
		astilog.Warnf("ducking: closing wave out failed (status %d, handle %#x)", status, handle)
		return
	}

	// Discard session
	m.m.Lock()
	delete(m.sessions, handle)
	m.m.Unlock()
}

// SessionCount returns the number of active ducking sessions
func (m *Manager) SessionCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.sessions)
}
