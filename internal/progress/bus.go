package progress

import (
	"sync"

	"github.com/wenqi/jobtailor/internal/domain"
)

// Publisher broadcasts job-state change events. Implementations may fail;
// wrap with Failsafe to get the non-propagating contract the pipeline needs.
type Publisher interface {
	Publish(ev domain.ProgressEvent) error
}

// subscriberBuffer is the per-listener channel capacity. A listener that
// falls this far behind starts losing events rather than stalling the worker.
const subscriberBuffer = 16

type subscriber struct {
	id        int
	userID    string
	requestID string // empty matches every request for the user
	ch        chan domain.ProgressEvent
}

// Bus fans out progress events to attached listeners. Delivery is
// best-effort: sends never block, full listener buffers drop events, and
// listeners may attach or detach at any time.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// NewBus creates an empty progress bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe attaches a listener for one (userID, requestID) stream. An empty
// requestID subscribes to all of the user's jobs. The returned cancel
// function detaches the listener and closes its channel; it is safe to call
// more than once.
func (b *Bus) Subscribe(userID, requestID string) (<-chan domain.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{
		id:        b.nextID,
		userID:    userID,
		requestID: requestID,
		ch:        make(chan domain.ProgressEvent, subscriberBuffer),
	}
	b.subs[sub.id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[sub.id]; ok {
				delete(b.subs, sub.id)
				close(sub.ch)
			}
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching listener without blocking.
// It never returns an error; the signature satisfies Publisher.
func (b *Bus) Publish(ev domain.ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.userID != ev.UserID {
			continue
		}
		if sub.requestID != "" && sub.requestID != ev.RequestID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// listener is behind; drop rather than stall the worker
		}
	}
	return nil
}

// ListenerCount returns the number of attached listeners.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
