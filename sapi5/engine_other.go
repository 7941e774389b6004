// +build !windows

package sapi5

import "github.com/pkg/errors"

// Available returns whether the SAPI5 voice class is available. SAPI5 only
// exists on Windows.
func Available() bool { return false }

// NewEngine creates a SAPI5 engine. It always fails off Windows.
func NewEngine(s *Sink) (Engine, error) {
	return nil, errors.New("sapi5: engine is only supported on windows")
}
