package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/scalperguard/common/messaging"
	"github.com/telhawk-systems/scalperguard/common/middleware"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

type recordingPublisher struct {
	msgs   []*messaging.Message
	failOn string
	closed bool
}

func (r *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return r.PublishMsg(ctx, &messaging.Message{Subject: subject, Data: data})
}

func (r *recordingPublisher) PublishMsg(_ context.Context, msg *messaging.Message) error {
	if r.failOn != "" && msg.Subject == r.failOn {
		return errors.New("no responders")
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestNATSPublisher_PublishDecisions(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewNATSPublisher(rec)
	ctx := middleware.WithRequestID(context.Background(), "req-42")

	require.NoError(t, p.PublishDecisions(ctx, sampleReport()))
	require.Len(t, rec.msgs, 3)

	assert.Equal(t, "scoring.decisions.hard_block", rec.msgs[0].Subject)
	assert.Equal(t, "scoring.decisions.soft_block", rec.msgs[1].Subject)
	assert.Equal(t, messaging.SubjectScoringRuns, rec.msgs[2].Subject)

	var ev DecisionEvent
	require.NoError(t, json.Unmarshal(rec.msgs[0].Data, &ev))
	assert.Equal(t, "0xA", ev.Wallet)
	assert.Equal(t, models.DecisionHardBlock, ev.Decision)
	assert.Equal(t, "req-42", ev.RequestID)
	assert.Equal(t, "req-42", rec.msgs[0].Metadata[middleware.RequestIDHeader])
	assert.Equal(t, "application/json", rec.msgs[0].Metadata["Content-Type"])

	var summary RunSummary
	require.NoError(t, json.Unmarshal(rec.msgs[2].Data, &summary))
	assert.Equal(t, 3, summary.Wallets)
	assert.Equal(t, 1, summary.Decisions[models.DecisionAllow])
}

func TestNATSPublisher_EmptyReportSendsNothing(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewNATSPublisher(rec)

	require.NoError(t, p.PublishDecisions(context.Background(), &models.ScoreReport{Note: models.NoTransfersNote}))
	require.NoError(t, p.PublishDecisions(context.Background(), nil))
	assert.Empty(t, rec.msgs)
}

func TestNATSPublisher_AllAllowSendsSummaryOnly(t *testing.T) {
	rec := &recordingPublisher{}
	report := &models.ScoreReport{Wallets: []models.WalletScore{{Wallet: "0xC", Decision: models.DecisionAllow}}}

	require.NoError(t, NewNATSPublisher(rec).PublishDecisions(context.Background(), report))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, messaging.SubjectScoringRuns, rec.msgs[0].Subject)
}

func TestNATSPublisher_Error(t *testing.T) {
	rec := &recordingPublisher{failOn: "scoring.decisions.soft_block"}
	err := NewNATSPublisher(rec).PublishDecisions(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring.decisions.soft_block")
	assert.Len(t, rec.msgs, 1)
}

func TestNATSPublisher_Close(t *testing.T) {
	rec := &recordingPublisher{}
	require.NoError(t, NewNATSPublisher(rec).Close())
	assert.True(t, rec.closed)
}
