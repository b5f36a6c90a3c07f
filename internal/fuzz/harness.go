// Package fuzz drives the election engine with arbitrary bytes.
//
// A run decodes the input into ballots, finds the winner, withdraws the
// winner's own delegation and checks that the winner then holds the top
// score: a candidate who won thanks to delegated votes must still be on top
// when it keeps its own votes.
package fuzz

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"github.com/VeltarosLabs/electorium/internal/election"
	"github.com/VeltarosLabs/electorium/internal/introspect"
	"github.com/VeltarosLabs/electorium/internal/logging"
	"github.com/VeltarosLabs/electorium/internal/names"
	"github.com/VeltarosLabs/electorium/pkg/types"
)

const (
	// StatusNoWinner: the input produced no willing candidate.
	StatusNoWinner int16 = -1
	// StatusUnrepresentable: there is a winner but its ID does not fit.
	StatusUnrepresentable int16 = -2
)

var (
	ErrClosed        = errors.New("fuzz harness is closed")
	ErrWinnerNotBest = errors.New("projected winner does not have the best score")
)

type Config struct {
	// Verbose logs ballots, scores and every engine decision.
	Verbose bool
	// Format is one of Formats(); empty means FormatNamed.
	Format string
	// Names is the table for FormatNamed; nil means the embedded one.
	Names *names.Table
	// Logger receives verbose output. Defaults to a console logger on stdout.
	Logger *zap.Logger
}

// Harness is safe for concurrent use; every run builds its own election.
type Harness struct {
	verbose bool
	dec     Decoder
	log     *zap.Logger
	closed  atomic.Bool
	// verify checks the winner against the ranking after its revoke.
	verify func(c *election.Counter, win *types.Vote) error
}

func New(cfg Config) (*Harness, error) {
	dec, err := NewDecoder(cfg.Format, cfg.Names)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		if cfg.Verbose {
			log = logging.Verbose(os.Stdout)
		} else {
			log = zap.NewNop()
		}
	}
	return &Harness{verbose: cfg.Verbose, dec: dec, log: log, verify: winnerIsBest}, nil
}

func (h *Harness) Format() string { return h.dec.Format() }

// RecordSize is the number of input bytes per ballot.
func (h *Harness) RecordSize() int { return h.dec.RecordSize() }

// Close releases the harness. Runs after Close fail with ErrClosed.
func (h *Harness) Close() error {
	if h.closed.Swap(true) {
		return ErrClosed
	}
	_ = h.log.Sync()
	return nil
}

// Run is Check for fuzz engines: a violated invariant panics so that the
// engine records a crash.
func (h *Harness) Run(data []byte) int16 {
	st, err := h.Check(data)
	if err != nil {
		panic(err)
	}
	return st
}

// Check runs one election over data. It returns the input ID of the winner,
// StatusNoWinner, or StatusUnrepresentable.
func (h *Harness) Check(data []byte) (int16, error) {
	if h.closed.Load() {
		return StatusNoWinner, ErrClosed
	}
	ballots := h.dec.Decode(data)
	votes := make([]types.Vote, len(ballots))
	for i := range ballots {
		votes[i] = ballots[i].Vote
	}

	var is *introspect.Introspector
	if h.verbose {
		is = introspect.NewLogging(h.log)
		for _, v := range votes {
			h.log.Info("ballot",
				zap.String("voter", v.VoterID),
				zap.Uint64("votes", v.NumberOfVotes),
				zap.String("voteFor", v.VoteFor),
				zap.Bool("candidate", v.WillingCandidate))
		}
	}

	c := election.New(votes, is)
	h.logRanking("initial scoring", c)

	win, ok := c.FindWinner()
	if !ok {
		return StatusNoWinner, nil
	}
	if err := c.RevokeVote(win); err != nil {
		return StatusNoWinner, fmt.Errorf("revoke %s: %w", win.VoterID, err)
	}
	if h.verbose {
		h.log.Info("winner identified", zap.String("candidate", win.VoterID))
	}
	h.logRanking("with winner's vote revoked", c)

	if err := h.verify(c, win); err != nil {
		return StatusNoWinner, err
	}

	for i := range votes {
		if &votes[i] != win {
			continue
		}
		st, err := safecast.Conv[int16](ballots[i].ID)
		if err != nil {
			return StatusUnrepresentable, nil
		}
		return st, nil
	}
	return StatusNoWinner, fmt.Errorf("winner %s is not among the ballots", win.VoterID)
}

// winnerIsBest fails unless win holds the top score of c.
func winnerIsBest(c *election.Counter, win *types.Vote) error {
	score, ok := c.Score(win)
	if !ok {
		return fmt.Errorf("%w: %s is not counted", ErrWinnerNotBest, win.VoterID)
	}
	ranking := c.Ranking()
	if len(ranking) == 0 {
		return fmt.Errorf("%w: %s is not ranked", ErrWinnerNotBest, win.VoterID)
	}
	if best := ranking[0]; score < best.Score {
		return fmt.Errorf("%w: %s has %d, %s has %d",
			ErrWinnerNotBest, win.VoterID, score, best.Vote.VoterID, best.Score)
	}
	return nil
}

func (h *Harness) logRanking(msg string, c *election.Counter) {
	if !h.verbose {
		return
	}
	for _, s := range c.Ranking() {
		h.log.Info(msg, zap.String("candidate", s.Vote.VoterID), zap.Uint64("score", s.Score))
	}
}
