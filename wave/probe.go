package wave

import (
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// Info describes a rendered wave file
type Info struct {
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	SampleRate int           `json:"sample_rate"`
	Silent     bool          `json:"silent"`
}

// ProbeFile decodes a wave file, typically one produced by the driver's
// speak-to-file path, and reports its format, duration and whether it holds
// nothing but silence
func ProbeFile(path string) (i Info, err error) {
	// Open file
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = errors.Wrapf(err, "wave: opening %s failed", path)
		return
	}
	defer f.Close()

	// Create decoder
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		err = errors.Errorf("wave: %s is not a valid wave file", path)
		return
	}

	// Get duration
	if i.Duration, err = d.Duration(); err != nil {
		err = errors.Wrap(err, "wave: getting duration failed")
		return
	}
	i.Channels = int(d.NumChans)
	i.SampleRate = int(d.SampleRate)

	// Decode samples
	var b *audio.IntBuffer
	if b, err = d.FullPCMBuffer(); err != nil {
		err = errors.Wrap(err, "wave: decoding samples failed")
		return
	}
	i.Silent = silent(b)
	return
}

func silent(b *audio.IntBuffer) bool {
	for _, s := range b.Data {
		if s != 0 {
			return false
		}
	}
	return true
}
