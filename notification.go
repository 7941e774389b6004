package astisapi

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Notification names
const (
	NotificationDoneSpeaking = "speech.done"
	NotificationIndexReached = "speech.index.reached"
)

// Notification represents an event raised by the driver towards the host
type Notification struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newNotification(name string) *Notification {
	return &Notification{Name: name}
}

// NewDoneSpeakingNotification creates a new done speaking notification
func NewDoneSpeakingNotification() *Notification {
	return newNotification(NotificationDoneSpeaking)
}

// NewIndexReachedNotification creates a new index reached notification
func NewIndexReachedNotification(index int) (n *Notification, err error) {
	// Create notification
	n = newNotification(NotificationIndexReached)

	// Marshal payload
	if n.Payload, err = json.Marshal(index); err != nil {
		err = errors.Wrap(err, "astisapi: marshaling payload failed")
		return
	}
	return
}

// ParseIndexReachedPayload parses the payload of an index reached notification
func ParseIndexReachedPayload(n *Notification) (index int, err error) {
	// Check name
	if n.Name != NotificationIndexReached {
		err = fmt.Errorf("astisapi: invalid name %s, requested %s", n.Name, NotificationIndexReached)
		return
	}

	// Unmarshal
	if err = json.Unmarshal(n.Payload, &index); err != nil {
		err = errors.Wrap(err, "astisapi: unmarshaling failed")
	}
	return
}
