// Package simulator binds the external VAD simulator. A Backend moves raw
// plan and result JSON across the boundary; Client adds the result parsing
// shared by every backend.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrNativeUnavailable is returned by NewNative when the binary was built
	// without the simnative tag.
	ErrNativeUnavailable = errors.New("simulator: native backend not available (build with -tags simnative)")
	ErrClosed            = errors.New("simulator: backend closed")
	ErrMalformedResult   = errors.New("simulator: malformed result")
)

// SimulationError is a failure reported by the simulator itself through the
// "error" key of its result.
type SimulationError struct {
	Message string
}

func (e *SimulationError) Error() string {
	if e.Message == "" {
		return "simulation failed"
	}
	return "simulation failed: " + e.Message
}

// Backend executes one simulation. Execute blocks until the simulator returns.
type Backend interface {
	Execute(ctx context.Context, plan []byte, basePath string) ([]byte, error)
	Close() error
}

// Executor runs a plan and returns its parsed result.
type Executor interface {
	Execute(ctx context.Context, plan []byte, basePath string) (*Result, error)
}

// Client wraps a Backend with result decoding. It is not safe for concurrent use.
type Client struct {
	backend Backend
	log     *slog.Logger
	calls   int
}

var _ Executor = (*Client)(nil)

// NewClient returns a Client that owns backend.
func NewClient(backend Backend, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend: backend,
		log:     logger.With("component", "simulator"),
	}
}

// Execute sends plan to the simulator once and parses the result. A result
// carrying an "error" key is returned as *SimulationError.
func (c *Client) Execute(ctx context.Context, plan []byte, basePath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.calls++
	start := time.Now()
	raw, err := c.backend.Execute(ctx, plan, basePath)
	if err != nil {
		return nil, fmt.Errorf("simulator: execute: %w", err)
	}
	c.log.Debug("simulator call finished",
		"call", c.calls,
		"duration", time.Since(start),
		"plan_bytes", len(plan),
		"result_bytes", len(raw),
	)
	return ParseResult(raw)
}

// Calls reports how many times the backend has been invoked.
func (c *Client) Calls() int { return c.calls }

// Close releases the backend.
func (c *Client) Close() error { return c.backend.Close() }
