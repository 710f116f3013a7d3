package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen indicates the circuit breaker rejected the request
// without calling the provider. The retry middleware treats it as
// permanent, so an open circuit fails fast through the whole chain.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker tracks consecutive failures across requests. After
// maxFailures consecutive failures the circuit opens and requests fail
// immediately; once the cooldown expires a single request is let
// through, and its outcome decides whether the circuit closes again.
type circuitBreaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	lastFailure time.Time
}

// allow reports whether a request may proceed, moving an expired open
// circuit to half-open so one request can test recovery.
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == breakerOpen {
		if time.Since(cb.lastFailure) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = breakerHalfOpen
	}
	return nil
}

// record updates circuit state from a request outcome. Any failure while
// half-open reopens the circuit immediately.
func (cb *circuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.state = breakerClosed
		return
	}

	cb.failures++
	cb.lastFailure = time.Now()
	if cb.state == breakerHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = breakerOpen
	}
}

// circuitBrokenLLM routes requests through a shared circuit breaker.
type circuitBrokenLLM struct {
	next CoreLLM
	cb   *circuitBreaker
}

// CircuitBreakerMiddleware returns middleware that stops calling a
// persistently failing provider. All cores wrapped by the returned
// middleware share one circuit, so a provider outage observed through
// any of them opens the circuit for all.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	cb := &circuitBreaker{maxFailures: maxFailures, cooldown: cooldown}
	return func(next CoreLLM) CoreLLM {
		return &circuitBrokenLLM{next: next, cb: cb}
	}
}

func (c *circuitBrokenLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := c.cb.allow(); err != nil {
		return "", 0, 0, err
	}

	response, tokensIn, tokensOut, err := c.next.DoRequest(ctx, prompt, opts)
	c.cb.record(err)
	return response, tokensIn, tokensOut, err
}

func (c *circuitBrokenLLM) GetModel() string  { return c.next.GetModel() }
func (c *circuitBrokenLLM) SetModel(m string) { c.next.SetModel(m) }
