// Package circuit provides a small circuit breaker used to shield the
// service from a failing outbound dependency (the SMTP relay).
package circuit

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents circuit breaker state
type State int

const (
	StateClosed State = iota // Requests pass through
	StateOpen                // Requests fail fast
)

func (s State) String() string {
	if s == StateOpen {
		return "OPEN"
	}
	return "CLOSED"
}

// ErrOpen is returned while the breaker is rejecting calls
var ErrOpen = errors.New("circuit breaker is open")

// Breaker opens after Threshold consecutive failures and allows a retry
// once Cooldown has elapsed. A single success closes it again.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time

	name      string
	threshold int
	cooldown  time.Duration
	logger    *zap.Logger
}

func NewBreaker(name string, threshold int, cooldown time.Duration, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
	}
}

// Execute runs fn under breaker control
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn()
	b.record(err)
	return err
}

// CurrentState reports the breaker state
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return true
	}

	// Open: let one call through after the cooldown to probe recovery
	if time.Since(b.lastFailure) >= b.cooldown {
		return true
	}
	return false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == StateOpen {
			b.logger.Info("Circuit breaker closed",
				zap.String("breaker", b.name),
			)
		}
		b.state = StateClosed
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.threshold && b.state == StateClosed {
		b.state = StateOpen
		b.logger.Warn("Circuit breaker opened",
			zap.String("breaker", b.name),
			zap.Int("consecutive_failures", b.failures),
			zap.Duration("cooldown", b.cooldown),
		)
	}
}
