package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards the SMTP relay. While the relay is down mail jobs fail fast and go to
// the DLQ instead of each one waiting for a dial timeout. After OpenTimeout a
// single probe is let through; SuccessThreshold good probes close it again.

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling fn while the breaker is open or
// a half-open probe is already running.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the breaker
	SuccessThreshold int           // successful probes needed to close it
	OpenTimeout      time.Duration // time open before the first probe
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, OpenTimeout: time.Minute}
}

type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu        sync.Mutex
	state     CBState
	fallos    int
	exitos    int
	abiertoEn time.Time
	sondeando bool
}

// NewCircuitBreaker starts closed. Zero config fields take the defaults; name
// only labels logs and /health.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{name: name, cfg: cfg}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.vencer()
	return cb.state
}

// CBSnapshot is what /health reports.
type CBSnapshot struct {
	State      string     `json:"state"`
	Failures   int        `json:"failures"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
}

func (cb *CircuitBreaker) Snapshot() CBSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.vencer()
	s := CBSnapshot{State: cb.state.String(), Failures: cb.fallos}
	if cb.state == CBOpen {
		t := cb.abiertoEn.Add(cb.cfg.OpenTimeout).UTC()
		s.RetryAfter = &t
	}
	return s
}

// Execute runs fn unless the breaker refuses it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.permitir()
	if err != nil {
		return err
	}
	err = fn()
	cb.registrar(err, probe)
	return err
}

// vencer moves an expired open breaker to half-open. Caller holds mu.
func (cb *CircuitBreaker) vencer() {
	if cb.state == CBOpen && time.Since(cb.abiertoEn) >= cb.cfg.OpenTimeout {
		cb.cambiar(CBHalfOpen)
		cb.exitos = 0
	}
}

func (cb *CircuitBreaker) permitir() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.vencer()
	switch cb.state {
	case CBOpen:
		return false, ErrCircuitOpen
	case CBHalfOpen:
		if cb.sondeando {
			return false, ErrCircuitOpen
		}
		cb.sondeando = true
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) registrar(err error, probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.sondeando = false
	}

	if err != nil {
		cb.fallos++
		if cb.state == CBHalfOpen || cb.fallos >= cb.cfg.FailureThreshold {
			cb.cambiar(CBOpen)
			cb.abiertoEn = time.Now()
		}
		return
	}

	cb.fallos = 0
	if cb.state == CBHalfOpen {
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.cambiar(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) cambiar(to CBState) {
	if cb.state == to {
		return
	}
	ev := log.Warn()
	if to == CBClosed {
		ev = log.Info()
	}
	ev.Str("breaker", cb.name).Str("from", cb.state.String()).Str("to", to.String()).Msg("circuit breaker state change")
	cb.state = to
}
