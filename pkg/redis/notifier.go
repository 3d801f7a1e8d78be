package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// wakeMessage is the body of every published signal. Subscribers only care
// that a message arrived.
const wakeMessage = "wake"

// Notifier carries jobqueue wake signals over Redis Pub/Sub so that an
// enqueue on one host wakes workers on every other host.
type Notifier struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

var _ jobqueue.Notifier = (*Notifier)(nil)

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithNotifierLogger sets the logger used for subscription failures.
func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNotifier creates a notifier publishing on channel.
func NewNotifier(client redis.UniversalClient, channel string, opts ...NotifierOption) (*Notifier, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	n := &Notifier{
		client:  client,
		channel: channel,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify publishes one wake signal.
func (n *Notifier) Notify(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, wakeMessage).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, then forwards each
// message as a coalesced signal until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ps := n.client.Subscribe(ctx, n.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Join(ErrSubscribeFailed, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			if err := ps.Close(); err != nil {
				n.logger.DebugContext(ctx, "close redis subscription",
					slog.String("channel", n.channel), logger.Error(err))
			}
		}()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					n.logger.WarnContext(ctx, "redis subscription closed", slog.String("channel", n.channel))
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}
