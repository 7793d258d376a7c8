// Package seeder generates synthetic transfer logs: random background traffic
// plus scalper round-trips between wallet pairs.
package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/scalperguard/common/rng"
	"github.com/telhawk-systems/scalperguard/scoring/pkg/scoring"
)

// blockTime approximates mainnet block spacing when numbering blocks.
const blockTime = 12 * time.Second

type Config struct {
	// Background is the number of ordinary transfers.
	Background int
	// Wallets is the size of the ordinary wallet pool.
	Wallets int
	// Scalpers is the number of wallet pairs running round-trips.
	Scalpers int
	// Iterations is transfers per scalper pair; A->B->A counts as two.
	Iterations int
	// Gap separates transfers within a round-trip loop.
	Gap time.Duration
	// Span is how long background traffic runs before the loops start.
	Span time.Duration
	// Start is the timestamp of the earliest possible transfer.
	Start time.Time
	// Seed of 0 picks a random seed.
	Seed int64

	StartBlock int64
}

func DefaultConfig() Config {
	return Config{
		Background: 40,
		Wallets:    20,
		Scalpers:   1,
		Iterations: 6,
		Gap:        20 * time.Second,
		Span:       30 * time.Minute,
		Start:      time.Now().UTC().Add(-35 * time.Minute).Truncate(time.Second),
		StartBlock: 19_000_000,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Background < 0 || c.Scalpers < 0:
		return fmt.Errorf("background and scalpers must not be negative")
	case c.Background > 0 && c.Wallets < 2:
		return fmt.Errorf("background traffic needs at least 2 wallets")
	case c.Scalpers > 0 && c.Iterations < 1:
		return fmt.Errorf("iterations must be positive")
	case c.Gap < 0 || c.Span < 0:
		return fmt.Errorf("gap and span must not be negative")
	}
	return nil
}

// Pair is a scalper wallet pair. A sends first.
type Pair struct {
	A, B    string
	TokenID string
}

type Generator struct {
	cfg    Config
	seed   int64
	faker  *gofakeit.Faker
	timing *rand.Rand
	pairs  []Pair
}

func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode := rng.Deterministic
	if cfg.Seed == 0 {
		mode = rng.Real
	}
	streams := rng.New(mode, cfg.Seed)
	return &Generator{
		cfg:    cfg,
		seed:   streams.Seed(),
		faker:  gofakeit.New(rng.DeriveSeed(streams.Seed(), "identities")),
		timing: streams.R("timing"),
	}, nil
}

// Seed returns the seed in use; pass it back to reproduce a log.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Pairs returns the scalper pairs produced by the last Generate call.
func (g *Generator) Pairs() []Pair {
	return g.pairs
}

// Generate returns transfers in timestamp order with block numbers derived
// from their offset from Start.
func (g *Generator) Generate() []scoring.Transfer {
	var events []scoring.Transfer
	events = append(events, g.background()...)
	events = append(events, g.loops()...)

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	for i := range events {
		offset := events[i].Timestamp.Sub(g.cfg.Start)
		events[i].Block = strconv.FormatInt(g.cfg.StartBlock+int64(offset/blockTime), 10)
	}
	return events
}

// WriteFile generates a log and writes it to path. Unless appending, any
// existing file is replaced.
func (g *Generator) WriteFile(ctx context.Context, path string, appendOnly bool) ([]scoring.Transfer, error) {
	if !appendOnly {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to reset %s: %w", path, err)
		}
	}
	events := g.Generate()
	if err := scoring.AppendTransfers(ctx, path, events...); err != nil {
		return nil, err
	}
	return events, nil
}

func (g *Generator) background() []scoring.Transfer {
	if g.cfg.Background == 0 {
		return nil
	}

	pool := make([]string, g.cfg.Wallets)
	for i := range pool {
		pool[i] = g.address()
	}

	spanSec := int(g.cfg.Span / time.Second)
	out := make([]scoring.Transfer, 0, g.cfg.Background)
	for i := 0; i < g.cfg.Background; i++ {
		from := g.faker.Number(0, len(pool)-1)
		to := g.faker.Number(0, len(pool)-2)
		if to >= from {
			to++
		}
		var offset time.Duration
		if spanSec > 0 {
			offset = time.Duration(g.timing.Intn(spanSec)) * time.Second
		}
		out = append(out, scoring.Transfer{
			Timestamp: g.cfg.Start.Add(offset),
			Tx:        g.txHash(),
			From:      pool[from],
			To:        pool[to],
			TokenID:   strconv.Itoa(g.faker.Number(1, 500)),
		})
	}
	return out
}

func (g *Generator) loops() []scoring.Transfer {
	g.pairs = g.pairs[:0]
	var out []scoring.Transfer
	loopStart := g.cfg.Start.Add(g.cfg.Span)
	for p := 0; p < g.cfg.Scalpers; p++ {
		pair := Pair{A: g.address(), B: g.address(), TokenID: strconv.Itoa(g.faker.Number(501, 1000))}
		g.pairs = append(g.pairs, pair)

		from, to := pair.A, pair.B
		// Stagger pairs so loops never share a timestamp.
		ts := loopStart.Add(time.Duration(p) * time.Second)
		for i := 0; i < g.cfg.Iterations; i++ {
			out = append(out, scoring.Transfer{
				Timestamp: ts,
				Tx:        g.txHash(),
				From:      from,
				To:        to,
				TokenID:   pair.TokenID,
			})
			from, to = to, from
			ts = ts.Add(g.cfg.Gap)
		}
	}
	return out
}

func (g *Generator) address() string {
	return g.faker.Regex("0x[0-9a-f]{40}")
}

func (g *Generator) txHash() string {
	return g.faker.Regex("0x[0-9a-f]{64}")
}
