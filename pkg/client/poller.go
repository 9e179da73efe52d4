package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPollInterval = 30 * time.Second
	defaultMaxBackoff   = 5 * time.Minute
)

// Poller runs fn on a fixed interval until stopped. Consecutive failures
// double the wait up to a cap; the first success resets it.
type Poller struct {
	name       string
	fn         func(ctx context.Context) error
	interval   time.Duration
	maxBackoff time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

func WithMaxBackoff(d time.Duration) PollerOption {
	return func(p *Poller) { p.maxBackoff = d }
}

func NewPoller(name string, fn func(ctx context.Context) error, opts ...PollerOption) *Poller {
	p := &Poller{name: name, fn: fn, interval: DefaultPollInterval, maxBackoff: defaultMaxBackoff}
	for _, o := range opts {
		o(p)
	}
	if p.maxBackoff < p.interval {
		p.maxBackoff = p.interval
	}
	return p
}

// Start runs the first poll immediately. Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop cancels the loop and waits for the in-progress poll to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	fallos := 0
	for {
		if err := p.fn(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			fallos++
			log.Warn().Err(err).Str("poller", p.name).Int("fallos", fallos).Msg("poll failed")
		} else {
			fallos = 0
		}

		t := time.NewTimer(backoff(p.interval, p.maxBackoff, fallos))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// backoff is base * 2^fallos, capped at tope.
func backoff(base, tope time.Duration, fallos int) time.Duration {
	d := base
	for i := 0; i < fallos; i++ {
		d *= 2
		if d >= tope {
			return tope
		}
	}
	return d
}
