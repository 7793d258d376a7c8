package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/scalperguard/common/middleware"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

var scoredAt = time.Unix(1_700_000_000, 0).UTC()

func sampleReport() *models.ScoreReport {
	return &models.ScoreReport{
		Now:        scoredAt,
		EventCount: 12,
		Wallets: []models.WalletScore{
			{Wallet: "0xA", Risk: 91.5, Decision: models.DecisionHardBlock},
			{Wallet: "0xB", Risk: 72, Decision: models.DecisionSoftBlock},
			{Wallet: "0xC", Risk: 10, Decision: models.DecisionAllow},
		},
	}
}

type stubPublisher struct {
	calls    int
	err      error
	closeErr error
	closed   bool
}

func (s *stubPublisher) PublishDecisions(context.Context, *models.ScoreReport) error {
	s.calls++
	return s.err
}

func (s *stubPublisher) Close() error {
	s.closed = true
	return s.closeErr
}

func TestDecisionEvents(t *testing.T) {
	ctx := middleware.WithRequestID(context.Background(), "req-1")
	events := DecisionEvents(ctx, sampleReport())

	assert.Equal(t, []DecisionEvent{
		{Wallet: "0xA", Decision: models.DecisionHardBlock, Risk: 91.5, ScoredAt: scoredAt, RequestID: "req-1"},
		{Wallet: "0xB", Decision: models.DecisionSoftBlock, Risk: 72, ScoredAt: scoredAt, RequestID: "req-1"},
	}, events)

	assert.Empty(t, DecisionEvents(context.Background(), &models.ScoreReport{}))
	assert.Nil(t, DecisionEvents(context.Background(), nil))
}

func TestSummarize(t *testing.T) {
	s := Summarize(context.Background(), sampleReport())
	assert.Equal(t, scoredAt, s.ScoredAt)
	assert.Equal(t, 12, s.Events)
	assert.Equal(t, 3, s.Wallets)
	assert.Equal(t, map[models.Decision]int{
		models.DecisionHardBlock: 1,
		models.DecisionSoftBlock: 1,
		models.DecisionAllow:     1,
	}, s.Decisions)
	assert.Empty(t, s.RequestID)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishDecisions(context.Background(), sampleReport()))
	assert.NoError(t, p.Close())
}

func TestMulti(t *testing.T) {
	ok := &stubPublisher{}
	bad := &stubPublisher{err: errors.New("broker down"), closeErr: errors.New("close failed")}
	m := Multi{bad, ok}

	err := m.PublishDecisions(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, 1, ok.calls, "later publishers still run")
	assert.Equal(t, 1, bad.calls)

	err = m.Close()
	assert.ErrorContains(t, err, "close failed")
	assert.True(t, ok.closed)
	assert.True(t, bad.closed)

	assert.NoError(t, Multi{ok}.PublishDecisions(context.Background(), sampleReport()))
}
