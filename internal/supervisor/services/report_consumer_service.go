// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package services

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/safeloop/internal/logging"
	"github.com/tomtom215/safeloop/internal/report"
)

// ReportSink receives decoded fault reports.
//
// Satisfied by *report.Latest.
type ReportSink interface {
	Set(r *report.Report)
}

// ReportConsumerService subscribes to the fault report topic and hands each
// decoded report to a sink.
//
// Messages that fail to decode are logged and acked; redelivering them
// would fail the same way.
type ReportConsumerService struct {
	subscriber message.Subscriber
	topic      string
	sink       ReportSink
	name       string
}

// NewReportConsumerService creates a consumer for topic.
func NewReportConsumerService(sub message.Subscriber, topic string, sink ReportSink) *ReportConsumerService {
	if topic == "" {
		topic = report.DefaultTopic
	}
	return &ReportConsumerService{
		subscriber: sub,
		topic:      topic,
		sink:       sink,
		name:       "report-consumer",
	}
}

// Serve implements suture.Service. The subscription is closed when ctx is
// canceled.
func (s *ReportConsumerService) Serve(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", s.topic)
			}
			s.handle(msg)
		}
	}
}

func (s *ReportConsumerService) handle(msg *message.Message) {
	defer msg.Ack()

	r, err := report.Decode(msg)
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable fault report")
		return
	}
	s.sink.Set(r)
	logging.Debug().Str("report_id", r.ID).Str("thread", r.Thread.String()).Msg("Fault report consumed")
}

// String implements fmt.Stringer for suture log messages.
func (s *ReportConsumerService) String() string {
	return s.name
}
