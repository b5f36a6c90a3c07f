// Package campaign runs the fuzz harness over replayed seeds and random
// inputs in parallel, recording every input that breaks it.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VeltarosLabs/electorium/internal/corpus"
	"github.com/VeltarosLabs/electorium/internal/fuzz"
)

var (
	ErrPanic         = errors.New("harness panicked")
	ErrInvalidConfig = errors.New("invalid campaign config")
)

// Checker is the part of fuzz.Harness a campaign drives.
type Checker interface {
	Check(data []byte) (int16, error)
	Format() string
	RecordSize() int
}

type Recorder interface {
	Record(f corpus.Finding) (corpus.Finding, error)
}

type Config struct {
	Workers    int
	Iterations int
	// MaxRecords bounds the number of ballots in a generated input.
	MaxRecords int
	Seed       uint64
}

type Stats struct {
	Runs            uint64
	Winners         uint64
	NoWinner        uint64
	Unrepresentable uint64
	Findings        uint64
	Elapsed         time.Duration
}

type counters struct {
	runs, winners, noWinner, unrepresentable, findings atomic.Uint64
}

func (c *counters) stats(elapsed time.Duration) Stats {
	return Stats{
		Runs:            c.runs.Load(),
		Winners:         c.winners.Load(),
		NoWinner:        c.noWinner.Load(),
		Unrepresentable: c.unrepresentable.Load(),
		Findings:        c.findings.Load(),
		Elapsed:         elapsed,
	}
}

func (cfg Config) validate() error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, cfg.Workers)
	}
	if cfg.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative, got %d", ErrInvalidConfig, cfg.Iterations)
	}
	if cfg.MaxRecords <= 0 {
		return fmt.Errorf("%w: max records must be positive, got %d", ErrInvalidConfig, cfg.MaxRecords)
	}
	return nil
}

// Run replays seeds, then checks cfg.Iterations random inputs split across
// cfg.Workers workers. Worker w draws from PCG(cfg.Seed, w), so a campaign is
// reproducible for a given seed and worker count. If ctx is canceled Run
// stops early and returns the partial stats with ctx's error.
func Run(ctx context.Context, cfg Config, h Checker, seeds [][]byte, rec Recorder, log *zap.Logger) (Stats, error) {
	if err := cfg.validate(); err != nil {
		return Stats{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	var c counters

	check := func(input []byte) error {
		st, err := safeCheck(h, input)
		c.runs.Add(1)
		switch {
		case err != nil:
			f, rerr := rec.Record(corpus.Finding{
				Format: h.Format(),
				Input:  input,
				Status: st,
				Error:  err.Error(),
			})
			if rerr != nil {
				return fmt.Errorf("record finding: %w", rerr)
			}
			c.findings.Add(1)
			log.Warn("finding",
				zap.String("id", f.ID),
				zap.Binary("input", input),
				zap.Error(err))
		case st == fuzz.StatusNoWinner:
			c.noWinner.Add(1)
		case st == fuzz.StatusUnrepresentable:
			c.unrepresentable.Add(1)
		default:
			c.winners.Add(1)
		}
		return nil
	}

	for _, s := range seeds {
		if err := ctx.Err(); err != nil {
			return c.stats(time.Since(start)), err
		}
		if err := check(s); err != nil {
			return c.stats(time.Since(start)), err
		}
	}
	log.Debug("seeds replayed", zap.Int("seeds", len(seeds)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for w := range cfg.Workers {
		n := cfg.Iterations / cfg.Workers
		if w < cfg.Iterations%cfg.Workers {
			n++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(w)))
			for range n {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := check(randomInput(rng, h.RecordSize(), cfg.MaxRecords)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	st := c.stats(time.Since(start))
	log.Info("campaign finished",
		zap.Uint64("runs", st.Runs),
		zap.Uint64("winners", st.Winners),
		zap.Uint64("noWinner", st.NoWinner),
		zap.Uint64("findings", st.Findings),
		zap.Duration("elapsed", st.Elapsed))
	if err == nil {
		err = ctx.Err()
	}
	return st, err
}

// randomInput returns up to maxRecords whole records and, sometimes, a
// trailing partial one.
func randomInput(rng *rand.Rand, recordSize, maxRecords int) []byte {
	n := rng.IntN(maxRecords+1) * recordSize
	if rng.IntN(8) == 0 {
		n += rng.IntN(recordSize)
	}
	in := make([]byte, n)
	for i := range in {
		in[i] = byte(rng.Uint32())
	}
	return in
}

func safeCheck(h Checker, input []byte) (st int16, err error) {
	defer func() {
		if r := recover(); r != nil {
			st = fuzz.StatusNoWinner
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return h.Check(input)
}
