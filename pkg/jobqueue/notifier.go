package jobqueue

import (
	"context"
	"sync"
)

// Notifier carries the wake signal that lets workers poll as soon as new
// work becomes eligible. Signals are hints: a missed one only delays work
// until the next poll.
type Notifier interface {
	Notify(ctx context.Context) error
	// Subscribe returns a channel that receives a value per signal. The
	// channel is closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// LocalNotifier delivers wake signals between components of one process.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewLocalNotifier creates a notifier with no subscribers.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[chan struct{}]struct{})}
}

// Notify wakes every subscriber without blocking. Pending signals coalesce.
func (n *LocalNotifier) Notify(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done, then closes its
// channel.
func (n *LocalNotifier) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, ch)
		close(ch)
		n.mu.Unlock()
	}()

	return ch, nil
}
