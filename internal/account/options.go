package account

import (
	"context"
	"time"
)

const DefaultTimeout = 5 * time.Second

type settings struct {
	timeout time.Duration
	now     func() time.Time
}

type Option func(*settings)

// WithTimeout bounds every store and gateway call.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock injects a custom clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		timeout: DefaultTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}

	for _, o := range opts {
		o(&s)
	}

	return s
}

func (s settings) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
