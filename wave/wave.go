// Package wave provides the audio plumbing around the driver: resolving an
// output device name to the index the engine selects outputs by, and probing
// WAV files produced by the speak-to-file path.
package wave

import (
	"strings"

	"github.com/asticode/go-astilog"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// Wave represents an initialized audio host
type Wave struct{}

// New creates a new wave and initializes the audio host
func New() (w *Wave, err error) {
	// Initialize portaudio
	astilog.Debug("wave: initializing portaudio")
	if err = portaudio.Initialize(); err != nil {
		err = errors.Wrap(err, "wave: initializing portaudio failed")
		return
	}
	w = &Wave{}
	return
}

// Close implements the io.Closer interface
func (w *Wave) Close() (err error) {
	// Terminate portaudio
	astilog.Debug("wave: terminating portaudio")
	if err = portaudio.Terminate(); err != nil {
		err = errors.Wrap(err, "wave: terminating portaudio failed")
		return
	}
	return
}

// OutputDeviceIndex resolves an output device name to its index among the
// host's playback devices, which is the ordering the engine enumerates
// outputs in. Device names are matched exactly first, then by prefix since
// the system truncates long device names.
func (w *Wave) OutputDeviceIndex(name string) (index int, err error) {
	// Get devices
	var ds []*portaudio.DeviceInfo
	if ds, err = portaudio.Devices(); err != nil {
		err = errors.Wrap(err, "wave: getting devices failed")
		return
	}

	// Loop through playback devices
	prefix := -1
	i := 0
	for _, d := range ds {
		if d.MaxOutputChannels <= 0 {
			continue
		}
		if d.Name == name {
			index = i
			return
		}
		if prefix < 0 && strings.HasPrefix(name, d.Name) {
			prefix = i
		}
		i++
	}

	// Fall back to the prefix match
	if prefix >= 0 {
		index = prefix
		return
	}
	err = errors.Errorf("wave: no output device named %s", name)
	return
}
