package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/telhawk-systems/scalperguard/common/messaging"
	"github.com/telhawk-systems/scalperguard/common/middleware"
	"github.com/telhawk-systems/scalperguard/scoring/internal/metrics"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

const backendNATS = "nats"

// NATSPublisher sends each decision to scoring.decisions.<label> and a run
// summary to scoring.runs.completed.
type NATSPublisher struct {
	client messaging.Publisher
}

func NewNATSPublisher(client messaging.Publisher) *NATSPublisher {
	return &NATSPublisher{client: client}
}

func (p *NATSPublisher) PublishDecisions(ctx context.Context, report *models.ScoreReport) error {
	if report == nil || report.Empty() {
		return nil
	}

	opts := []messaging.PublishOption{messaging.WithHeader("Content-Type", "application/json")}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		opts = append(opts, messaging.WithHeader(middleware.RequestIDHeader, reqID))
	}
	headers := messaging.ApplyPublishOptions(opts...).Headers

	for _, ev := range DecisionEvents(ctx, report) {
		subject := messaging.DecisionSubject(string(ev.Decision))
		if err := p.send(ctx, subject, ev, headers); err != nil {
			return err
		}
	}
	return p.send(ctx, messaging.SubjectScoringRuns, Summarize(ctx, report), headers)
}

func (p *NATSPublisher) send(ctx context.Context, subject string, v any, headers map[string]string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	err = p.client.PublishMsg(ctx, &messaging.Message{
		Subject:   subject,
		Data:      data,
		Metadata:  headers,
		Timestamp: time.Now(),
	})
	if err != nil {
		metrics.PublishedTotal.WithLabelValues(backendNATS, "error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.PublishedTotal.WithLabelValues(backendNATS, "ok").Inc()
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.client.Close()
}
