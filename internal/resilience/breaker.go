// Package resilience guards outbound downloads with per-host circuit
// breakers so an unreachable catalog or impact host fails fast.
package resilience

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the state of a circuit breaker.
type State int

const (
	// Closed lets requests through.
	Closed State = iota
	// Open rejects requests until the reset timeout elapses.
	Open
	// HalfOpen lets a probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a call is rejected by an open breaker.
var ErrOpen = eris.New("resilience: circuit open")

// BreakerConfig controls when a breaker opens and how long it stays open.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive tripping failures that
	// opens the breaker. Zero disables the breaker.
	FailureThreshold int
	ResetTimeout     time.Duration

	// ShouldTrip decides which errors count as failures. Defaults to
	// IsTransient, so missing records do not open the breaker.
	ShouldTrip func(err error) bool
}

// Breaker is a consecutive-failure circuit breaker for one host.
type Breaker struct {
	cfg  BreakerConfig
	name string

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker. name only appears in logs.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = IsTransient
	}
	return &Breaker{cfg: cfg, name: name, now: time.Now}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// State returns the current state. An open breaker whose timeout has passed
// reports HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

func (b *Breaker) allow() error {
	if b.cfg.FailureThreshold <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		b.transition(HalfOpen)
		return nil
	}
	return eris.Wrapf(ErrOpen, "host %s", b.name)
}

func (b *Breaker) record(err error) {
	if b.cfg.FailureThreshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.ShouldTrip(err) {
		if b.state == HalfOpen {
			b.transition(Closed)
		}
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case Closed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(Open)
		}
	case HalfOpen:
		b.transition(Open)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	zap.L().Info("resilience: breaker state change",
		zap.String("host", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}

// Downloader is the download surface guarded by Fetcher.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Fetcher routes downloads through one breaker per URL host. Local paths
// share the breaker keyed "local".
type Fetcher struct {
	next Downloader
	cfg  BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewFetcher wraps next.
func NewFetcher(next Downloader, cfg BreakerConfig) *Fetcher {
	return &Fetcher{next: next, cfg: cfg, breakers: make(map[string]*Breaker)}
}

// Download fetches rawURL through its host's breaker.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := f.Breaker(rawURL).Execute(ctx, func(ctx context.Context) error {
		var err error
		body, err = f.next.Download(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Breaker returns the breaker guarding rawURL's host, creating it on first
// use.
func (f *Fetcher) Breaker(rawURL string) *Breaker {
	host := hostOf(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.breakers[host]
	if !ok {
		b = NewBreaker(host, f.cfg)
		f.breakers[host] = b
	}
	return b
}

// States returns a snapshot of every breaker's state by host.
func (f *Fetcher) States() map[string]State {
	f.mu.Lock()
	breakers := make(map[string]*Breaker, len(f.breakers))
	for h, b := range f.breakers {
		breakers[h] = b
	}
	f.mu.Unlock()

	out := make(map[string]State, len(breakers))
	for h, b := range breakers {
		out[h] = b.State()
	}
	return out
}

func hostOf(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		return "local"
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "local"
	}
	return strings.ToLower(u.Host)
}
