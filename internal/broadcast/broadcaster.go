package broadcast

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/google/omniwatch/internal/metrics"
	"github.com/google/omniwatch/internal/procs"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultBackoff  = 5 * time.Second
)

// MetricsSource is satisfied by *metrics.Sampler.
type MetricsSource interface {
	Sample() metrics.SystemMetricsSample
}

// ProcessLister is satisfied by *procs.Snapshotter.
type ProcessLister interface {
	List() ([]procs.Summary, error)
}

// Broadcaster runs the sample, distribute, sleep loop that feeds every
// subscriber of a Hub.
type Broadcaster struct {
	hub     *Hub
	sampler MetricsSource
	lister  ProcessLister

	interval time.Duration
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	autoRefresh atomic.Bool
	failures    atomic.Uint64
	cycles      atomic.Uint64

	// Failures can repeat every cycle; only some of them are logged.
	logFailure rate.Sometimes
}

type Option func(*Broadcaster)

// WithIntervals sets the normal cycle interval and the wait after a failed
// cycle. Non-positive values keep the defaults.
func WithIntervals(interval, backoff time.Duration) Option {
	return func(b *Broadcaster) {
		if interval > 0 {
			b.interval = interval
		}
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}

// WithSleep replaces the context-aware sleep between cycles.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Broadcaster) { b.sleep = sleep }
}

func NewBroadcaster(hub *Hub, sampler MetricsSource, lister ProcessLister, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		hub:        hub,
		sampler:    sampler,
		lister:     lister,
		interval:   DefaultInterval,
		backoff:    DefaultBackoff,
		sleep:      sleepContext,
		logFailure: rate.Sometimes{First: 3, Interval: time.Minute},
	}
	b.autoRefresh.Store(true)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetAutoRefresh turns periodic process lists on or off for everyone.
// Metrics keep flowing either way.
func (b *Broadcaster) SetAutoRefresh(enabled bool) {
	b.autoRefresh.Store(enabled)
}

func (b *Broadcaster) AutoRefresh() bool {
	return b.autoRefresh.Load()
}

// Failures counts cycles that ended in an error or a panic.
func (b *Broadcaster) Failures() uint64 {
	return b.failures.Load()
}

// Cycles counts every cycle started, failed or not.
func (b *Broadcaster) Cycles() uint64 {
	return b.cycles.Load()
}

// Run loops until ctx is cancelled. A failed cycle is followed by the
// backoff interval instead of the normal one; the loop itself never stops
// on failure.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		wait := b.interval
		if err := b.cycle(); err != nil {
			n := b.failures.Add(1)
			b.logFailure.Do(func() {
				log.Printf("Broadcast cycle failed (%d failures so far), backing off %v: %v", n, b.backoff, err)
			})
			wait = b.backoff
		}
		if err := b.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// PublishProcessList takes a fresh snapshot and sends it to every
// subscriber.
func (b *Broadcaster) PublishProcessList() error {
	list, err := b.lister.List()
	if err != nil {
		return err
	}
	b.hub.Broadcast(Message{Event: EventProcessList, Data: list})
	return nil
}

func (b *Broadcaster) cycle() (err error) {
	b.cycles.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", procs.ErrAdapter, r)
		}
	}()

	sample := b.sampler.Sample()
	b.hub.Broadcast(Message{Event: EventSystemMetrics, Data: sample})

	if !b.autoRefresh.Load() {
		return nil
	}
	return b.PublishProcessList()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
