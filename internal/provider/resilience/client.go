package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request
// without contacting the upstream.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the upstream HTTP client.
type ClientConfig struct {
	// Name identifies this client in the registry and breaker.
	Name string

	// Timeout bounds a whole request including the body read.
	// Default: 15 seconds
	Timeout time.Duration

	// CircuitBreaker enables the breaker when non-nil.
	CircuitBreaker *CircuitBreakerConfig

	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper

	// Registry, when set, gets the client registered under Name.
	Registry *Registry
}

// DefaultClientConfig returns the defaults: 15s timeout, no breaker.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:    name,
		Timeout: 15 * time.Second,
	}
}

// Client performs exactly one HTTP round trip per Do call, optionally behind
// a circuit breaker. It never retries.
type Client struct {
	name           string
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient creates a new upstream HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
	}
	if cfg.CircuitBreaker != nil {
		c.circuitBreaker = NewCircuitBreaker[*http.Response](*cfg.CircuitBreaker) //nolint:bodyclose // type param, not response
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(c)
	}
	return c
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.name
}

// BreakerEnabled reports whether requests go through a circuit breaker.
func (c *Client) BreakerEnabled() bool {
	return c.circuitBreaker != nil
}

// Do executes req once. A 5xx response counts as a breaker failure but is
// still returned to the caller with a nil error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.circuitBreaker == nil {
		return c.httpClient.Do(req)
	}

	resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller is responsible for closing
		r, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 {
			return r, &ServerError{StatusCode: r.StatusCode}
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		var se *ServerError
		if errors.As(err, &se) && resp != nil {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// CircuitBreakerState returns the breaker state, or closed when disabled.
func (c *Client) CircuitBreakerState() gobreaker.State {
	if c.circuitBreaker == nil {
		return gobreaker.StateClosed
	}
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the breaker counts, or zero when disabled.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	if c.circuitBreaker == nil {
		return gobreaker.Counts{}
	}
	return c.circuitBreaker.Counts()
}
