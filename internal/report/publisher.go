// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/metrics"
)

// DefaultTopic is the topic fault reports are published on.
const DefaultTopic = "safeloop.faults"

// BreakerConfig configures the publish circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns breaker settings suited to an in-process
// or local broker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "report-publisher",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// NewCircuitBreaker creates the breaker guarding report publishes.
func NewCircuitBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetReportBreakerState(int(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Report publisher circuit breaker state changed")
		},
	}

	return gobreaker.NewCircuitBreaker[interface{}](settings)
}

// Publisher sends fault reports to a Watermill topic behind a circuit
// breaker.
type Publisher struct {
	publisher      message.Publisher
	topic          string
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher wraps pub. An empty topic means DefaultTopic; a nil breaker
// publishes unguarded.
func NewPublisher(pub message.Publisher, topic string, cb *gobreaker.CircuitBreaker[interface{}]) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		publisher:      pub,
		topic:          topic,
		circuitBreaker: cb,
	}
}

// Topic returns the topic reports are published on.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish serializes r and publishes it.
func (p *Publisher) Publish(ctx context.Context, r *Report) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}

	msg := message.NewMessage(r.ID, data)
	msg.Metadata.Set("thread", r.Thread.Name)
	msg.Metadata.Set("thread_id", r.Thread.ID)
	msg.Metadata.Set("type", r.Type)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}
	msg.SetContext(ctx)

	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(p.topic, msg)
		})
	} else {
		err = p.publisher.Publish(p.topic, msg)
	}

	switch {
	case err == nil:
		metrics.RecordReportPublished("success")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordReportPublished("breaker_open")
	default:
		metrics.RecordReportPublished("error")
	}
	if err != nil {
		return fmt.Errorf("publish report %s: %w", r.ID, err)
	}
	return nil
}

// Close marks the publisher closed. The underlying Watermill publisher is
// owned by the caller.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Decode reads a report from a message produced by Publish.
func Decode(msg *message.Message) (*Report, error) {
	var r Report
	if err := json.Unmarshal(msg.Payload, &r); err != nil {
		return nil, fmt.Errorf("deserialize report: %w", err)
	}
	return &r, nil
}
