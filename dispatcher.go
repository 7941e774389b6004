package astisapi

import (
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

type NotificationHandler func(n *Notification) error

type dispatcherHandler struct {
	c DispatchConditions
	h NotificationHandler
}

// Dispatcher fans driver notifications out to registered handlers. Handlers
// run in their own goroutine since they may be triggered from the engine's
// event-delivery thread and must never block it.
type Dispatcher struct {
	hs []dispatcherHandler
	m  *sync.Mutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{m: &sync.Mutex{}}
}

type DispatchConditions struct {
	Name *string
}

func (c DispatchConditions) match(n *Notification) bool {
	// Check name
	if c.Name != nil && *c.Name != n.Name {
		return false
	}
	return true
}

func (d *Dispatcher) Dispatch(n *Notification) {
	// Lock
	d.m.Lock()
	defer d.m.Unlock()

	// Loop through handlers
	for _, h := range d.hs {
		// No match
		if !h.c.match(n) {
			continue
		}

		// Handle in a goroutine so that it's non blocking
		go func(h NotificationHandler) {
			if err := h(n); err != nil {
				astilog.Error(errors.Wrap(err, "astisapi: handling notification failed"))
				return
			}
		}(h.h)
	}
}

func (d *Dispatcher) On(c DispatchConditions, h NotificationHandler) {
	d.m.Lock()
	defer d.m.Unlock()
	d.hs = append(d.hs, dispatcherHandler{
		c: c,
		h: h,
	})
}
