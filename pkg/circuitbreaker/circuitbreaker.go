package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type Config struct {
	Name string
	// FailureThreshold is the consecutive-failure count that opens the breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

// Breaker is a consecutive-failure circuit breaker. After the threshold is
// reached calls fail fast with ErrOpen until the cooldown passes; the next
// call then probes, closing on success.
type Breaker struct {
	cfg Config

	mu       sync.Mutex
	st       state
	failures int
	openedAt time.Time
}

func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	return &Breaker{cfg: cfg}
}

// Do runs fn through the breaker.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.st = stateOpen
			b.openedAt = time.Now()
		}
		return err
	}
	b.st = stateClosed
	b.failures = 0
	return nil
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st != stateOpen {
		return nil
	}
	if time.Since(b.openedAt) < b.cfg.Cooldown {
		return ErrOpen
	}
	b.st = stateHalfOpen
	return nil
}
