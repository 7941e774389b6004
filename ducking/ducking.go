// Package ducking keeps audio ducking in lockstep with the wave-out devices
// the speech engine opens and closes, without any cooperation from the
// engine: the manager interposes the waveOutOpen/waveOutClose entry points
// imported by the engine's dynamic library and pairs every successful open
// with a ducking session.
package ducking

// Session represents one active ducking session tied to one wave-out handle
type Session interface {
	Enable() error
}

// Ducker represents the platform audio ducking service
type Ducker interface {
	IsSupported() bool
	NewSession() Session
}

// Hook represents one installed interposition. Unhook restores the original
// function pointer.
type Hook interface {
	Unhook() error
}

// Hooker represents an object capable of interposing one function imported
// by a target module. On Windows the replacement is a function turned into a
// native callback, elsewhere hooking is unavailable.
type Hooker interface {
	Hook(targetModule, importModule, funcName string, replacement interface{}) (Hook, error)
}

// unsupportedDucker is the fallback when no ducking service is provided
type unsupportedDucker struct{}

func (unsupportedDucker) IsSupported() bool   { return false }
func (unsupportedDucker) NewSession() Session { return nil }

// NewUnsupportedDucker creates a ducker reporting ducking as unsupported so
// that hooks are never installed
func NewUnsupportedDucker() Ducker { return unsupportedDucker{} }
