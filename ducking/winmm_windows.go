package ducking

import (
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	winmm            = windows.NewLazySystemDLL("winmm.dll")
	procWaveOutClose = winmm.NewProc("waveOutClose")
	procWaveOutOpen  = winmm.NewProc("waveOutOpen")
)

// defaultTargetModule returns the library SAPI5 uses internally to reach the
// wave-out entry points
func defaultTargetModule() string {
	return filepath.Join(os.Getenv("SYSTEMROOT"), "system32", "speech", "common", "sapi.dll")
}

// openReplacement returns the function interposed over waveOutOpen. It calls
// the real winmm export first, then records the outcome. System errors come
// back as plain status codes and never cross the interposition boundary.
func (m *Manager) openReplacement() interface{} {
	return func(ph, deviceID, wfx, callback, callbackInstance, flags uintptr) uintptr {
		r, _, _ := procWaveOutOpen.Call(ph, deviceID, wfx, callback, callbackInstance, flags)
		var h uintptr
		if r == 0 && ph != 0 {
			h = *(*uintptr)(unsafe.Pointer(ph))
		}
		m.WaveOutOpened(uint32(r), h)
		return r
	}
}

// closeReplacement returns the function interposed over waveOutClose
func (m *Manager) closeReplacement() interface{} {
	return func(h uintptr) uintptr {
		r, _, _ := procWaveOutClose.Call(h)
		m.WaveOutClosed(uint32(r), h)
		return r
	}
}
