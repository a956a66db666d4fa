// Package database exposes the host device's local database through the
// bridge's correlated request path. Calls are wrapped in a circuit
// breaker so a wedged host fails fast instead of queueing callers.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/onshopfront/embedded-go/pkg/observability"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// Requester issues one correlated request over the bridge. The
// application facade satisfies it.
type Requester interface {
	Request(ctx context.Context, cmd wire.Command, expect wire.Event, payload any) (json.RawMessage, error)
}

// Client is the generic table accessor.
type Client struct {
	requester Requester
	breaker   *gobreaker.CircuitBreaker[json.RawMessage]
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewClient constructs a database client over the given requester.
func NewClient(r Requester, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name: "embedded-database",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("database breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Client{
		requester: r,
		breaker:   gobreaker.NewCircuitBreaker[json.RawMessage](settings),
		logger:    logger,
		metrics:   observability.NoopMetrics{},
	}
}

// WithMetrics sets the metrics collector and returns the client.
func (c *Client) WithMetrics(m observability.Metrics) *Client {
	if m != nil {
		c.metrics = m
	}
	return c
}

// CallMethod invokes a method on a table and returns the raw results.
func (c *Client) CallMethod(ctx context.Context, table, method string, args []any) (json.RawMessage, error) {
	start := time.Now()
	tags := []observability.Tag{observability.T("table", table), observability.T("method", method)}
	c.metrics.Counter(observability.MetricDBQueries, 1, tags...)
	defer func() {
		c.metrics.Timing(observability.MetricDBQueryDuration, time.Since(start), tags...)
	}()

	payload := map[string]any{"table": table, "method": method, "args": args}
	return c.breaker.Execute(func() (json.RawMessage, error) {
		data, err := c.requester.Request(ctx, wire.CommandDatabaseRequest, wire.EventResponseDatabase, payload)
		if err != nil {
			return nil, err
		}
		var result struct {
			Results json.RawMessage `json:"results"`
			Error   string          `json:"error"`
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decode database response: %w", err)
		}
		if result.Error != "" {
			return nil, fmt.Errorf("database %s.%s: %s", table, method, result.Error)
		}
		return result.Results, nil
	})
}

// All returns every row of a table.
func (c *Client) All(ctx context.Context, table string) (json.RawMessage, error) {
	return c.CallMethod(ctx, table, "all", nil)
}

// Get returns one row of a table by ID.
func (c *Client) Get(ctx context.Context, table, id string) (json.RawMessage, error) {
	return c.CallMethod(ctx, table, "get", []any{id})
}

// Count returns the number of rows in a table.
func (c *Client) Count(ctx context.Context, table string) (int64, error) {
	data, err := c.CallMethod(ctx, table, "count", nil)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := json.Unmarshal(data, &count); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return count, nil
}
