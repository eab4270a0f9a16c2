// Package natstransport fans out entity-synchronisation frames to
// remote client processes over NATS, one subject per connection. It
// is an alternative to wstransport for deployments where the server
// and its clients are separate backend processes rather than a
// browser-facing edge.
package natstransport

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Hub holds the shared NATS connection a server publishes frames
// through and clients subscribe on.
type Hub struct {
	nc *nats.Conn
}

// Connect dials the given NATS URL.
func Connect(url string) (*Hub, error) {
	nc, err := nats.Connect(url, nats.Name("hexahydrate"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Hub{nc: nc}, nil
}

// Close closes the underlying NATS connection. Subscriptions are not
// drained first.
func (h *Hub) Close() {
	h.nc.Close()
}

// subjectFor returns the per-connection subject a server publishes
// frames for ownerID to, and a client with the same ownerID
// subscribes on.
func subjectFor(baseSubject string, ownerID uint64) string {
	return fmt.Sprintf("%s.%d", baseSubject, ownerID)
}

// Publish sends frame to the subject owned by ownerID. NATS delivery
// is at-most-once and unordered across subjects, which matches the
// core protocol's tolerance for loss and reordering.
func (h *Hub) Publish(baseSubject string, ownerID uint64, frame []byte) error {
	return h.nc.Publish(subjectFor(baseSubject, ownerID), frame)
}

// Subscription delivers frames published for a single connection.
type Subscription struct {
	sub *nats.Subscription
	ch  chan []byte
}

// Subscribe starts receiving frames published for ownerID.
func (h *Hub) Subscribe(baseSubject string, ownerID uint64, bufferSize int) (*Subscription, error) {
	ch := make(chan []byte, bufferSize)
	sub, err := h.nc.Subscribe(subjectFor(baseSubject, ownerID), func(msg *nats.Msg) {
		select {
		case ch <- msg.Data:
		default:
			// Subscriber is not keeping up; drop rather than block the
			// NATS dispatch goroutine.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &Subscription{sub: sub, ch: ch}, nil
}

// Frames returns the channel of frames delivered to this
// subscription.
func (s *Subscription) Frames() <-chan []byte { return s.ch }

// Unsubscribe stops delivery and closes the frames channel.
func (s *Subscription) Unsubscribe() error {
	err := s.sub.Unsubscribe()
	close(s.ch)
	return err
}
