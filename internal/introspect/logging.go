package introspect

import (
	"go.uber.org/zap"

	"github.com/VeltarosLabs/electorium/internal/crypto"
	"github.com/VeltarosLabs/electorium/pkg/types"
)

// NewLogging returns an Introspector that writes every engine event to log.
func NewLogging(log *zap.Logger) *Introspector {
	if log == nil {
		log = zap.NewNop()
	}
	is := New()

	Subscribe(is, func(e VoteDelegation) {
		fields := []zap.Field{
			zap.Uint64("votes", e.From.NumberOfVotes),
			zap.String("from", e.From.VoterID),
			zap.String("to", e.To.VoterID),
		}
		if e.BecauseOf.VoterID != e.From.VoterID {
			fields = append(fields, zap.String("because", e.BecauseOf.VoterID))
		}
		log.Debug("possible delegation", fields...)
	})
	Subscribe(is, func(e VoteDelegationRing) {
		chain := make([]string, 0, len(e.Chain))
		for _, v := range e.Chain {
			chain = append(chain, v.VoterID+" -> "+v.VoteFor)
		}
		log.Debug("vote delegation encountered a ring",
			zap.Strings("chain", chain),
			zap.String("stopAt", e.Next.VoterID))
	})
	Subscribe(is, func(e InvalidVote) {
		fields := []zap.Field{
			zap.String("voter", e.Vote.VoterID),
			zap.Uint64("votes", e.Vote.NumberOfVotes),
			zap.Stringer("cause", e.Cause),
		}
		if e.Cause == UnrecognizedVote {
			fields = append(fields, zap.String("voteFor", e.Vote.VoteFor))
		}
		log.Info("discarding vote", fields...)
	})
	Subscribe(is, func(e BestRings) {
		if len(e.Members) == 0 {
			log.Info("no candidates found")
			return
		}
		rings := make([][]string, 0, len(e.Members))
		for _, r := range e.Members {
			rings = append(rings, voterIDs(r))
		}
		fields := []zap.Field{
			zap.Any("rings", rings),
			zap.Uint64("delegatedVotes", e.Score),
		}
		if e.RunnerUp != nil {
			fields = append(fields,
				zap.String("runnerUp", e.RunnerUp.VoterID),
				zap.Uint64("runnerUpVotes", e.RunnerUpScore))
		}
		log.Info("tentative winners", fields...)
	})
	Subscribe(is, func(e BestOfRing) {
		if len(e.Scores) < 2 {
			return
		}
		for _, s := range e.Scores {
			log.Info("within-ring tie breaker",
				zap.String("candidate", s.Vote.VoterID),
				zap.Uint64("votesExcludingRing", s.Score))
		}
		if len(e.Winners) > 1 {
			log.Info("multiple tied winners, patron selection skipped",
				zap.Strings("winners", voterIDs(e.Winners)))
		}
	})
	Subscribe(is, func(e PatronSelection) {
		fields := []zap.Field{
			zap.String("candidate", e.Candidate.VoterID),
			zap.String("patron", e.Patron.VoterID),
			zap.Uint64("patronVotes", e.PatronVotes),
			zap.Stringer("reason", e.Reason),
		}
		switch e.Reason {
		case NotProvidingMajority:
			fields = append(fields, zap.Uint64("needMoreThan", e.CandidateVotes/2))
		case NotBeatingSecondBest:
			if e.Rival != nil {
				fields = append(fields, zap.String("rival", e.Rival.VoterID))
			}
			fields = append(fields, zap.Uint64("rivalVotes", e.RivalVotes))
		}
		log.Info("possible patron", fields...)
	})
	Subscribe(is, func(e TieBreakerHash) {
		log.Debug("deterministic tie breaker hash",
			zap.String("candidate", e.Candidate.VoterID),
			zap.Uint64("votes", e.Votes),
			zap.String("hash", crypto.Hex64(e.Hash)))
	})
	Subscribe(is, func(e DeterministicTieBreaker) {
		for _, t := range e.Tied {
			log.Info("deterministic tie breaker",
				zap.String("candidate", t.Vote.VoterID),
				zap.Uint64("votes", e.Votes),
				zap.String("hash", crypto.Hex64(t.Hash)))
		}
	})
	Subscribe(is, func(e Outcome) {
		if e.Winner == nil {
			log.Info("no winner could be found")
			return
		}
		log.Info("winner",
			zap.String("candidate", e.Winner.VoterID),
			zap.Uint64("delegatedVotes", e.Votes))
	})
	return is
}

func voterIDs(vs []*types.Vote) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.VoterID)
	}
	return out
}
