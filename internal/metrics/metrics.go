// Package metrics emits DogStatsD counters and gauges for the console.
package metrics

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

// Client sends metrics to a DogStatsD agent. A Client created without an
// agent address, and the nil Client, drop everything.
type Client struct {
	statsd *statsd.Client
}

// New connects to the agent at addr. An empty addr disables metrics.
func New(addr, namespace string, tags ...string) *Client {
	if addr == "" {
		log.Info().Msg("📊 Metrics disabled (DD_AGENT_ADDR not set)")
		return &Client{}
	}

	c, err := statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Failed to create DogStatsD client")
		return &Client{}
	}
	c.Namespace = namespace
	c.Tags = tags

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("📊 Datadog metrics initialized")
	return &Client{statsd: c}
}

// Enabled reports whether metrics are sent anywhere.
func (c *Client) Enabled() bool {
	return c != nil && c.statsd != nil
}

// Count adds value to a counter.
func (c *Client) Count(name string, value int64, tags ...string) {
	if !c.Enabled() {
		return
	}
	if err := c.statsd.Count(name, value, tags, 1); err != nil {
		log.Debug().Err(err).Str("metric", name).Msg("Failed to emit count metric")
	}
}

// Gauge records the current value of a gauge.
func (c *Client) Gauge(name string, value float64, tags ...string) {
	if !c.Enabled() {
		return
	}
	if err := c.statsd.Gauge(name, value, tags, 1); err != nil {
		log.Debug().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}

// Close flushes buffered metrics and closes the connection.
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.statsd.Close()
}
