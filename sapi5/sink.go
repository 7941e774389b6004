package sapi5

import (
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astisapi"
	"github.com/pkg/errors"
)

// Sink receives engine event callbacks and forwards them as host
// notifications. It holds a non-owning reference to its driver: the driver
// kills the sink when teardown begins, so callbacks still in flight on the
// engine's event thread find the sink dead and no-op instead of touching a
// driver being destroyed.
type Sink struct {
	alive    bool
	dispatch func(n *astisapi.Notification)
	m        sync.Mutex
}

func newSink(dispatch func(n *astisapi.Notification)) *Sink {
	return &Sink{
		alive:    true,
		dispatch: dispatch,
	}
}

// kill detaches the sink from its driver
func (s *Sink) kill() {
	s.m.Lock()
	defer s.m.Unlock()
	s.alive = false
}

func (s *Sink) isAlive() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.alive
}

// Bookmark handles a bookmark-reached engine event
func (s *Sink) Bookmark(index int) {
	// Driver is dead
	if !s.isAlive() {
		astilog.Debug("sapi5: bookmark event received while driver is dead")
		return
	}

	// Create notification
	n, err := astisapi.NewIndexReachedNotification(index)
	if err != nil {
		astilog.Error(errors.Wrap(err, "sapi5: creating index reached notification failed"))
		return
	}

	// Dispatch
	s.dispatch(n)
}

// EndStream handles an end-of-stream engine event
func (s *Sink) EndStream() {
	// Driver is dead
	if !s.isAlive() {
		astilog.Debug("sapi5: end stream event received while driver is dead")
		return
	}

	// Dispatch
	s.dispatch(astisapi.NewDoneSpeakingNotification())
}
