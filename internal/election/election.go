// Package election counts a delegated-vote election.
//
// Every ballot may delegate to another voter. Votes flow along the chain of
// delegations until it ends or closes into a ring, and every candidate on
// the way is credited with them. The candidate holding the most delegated
// votes is the tentative winner, unless a single direct voter (a "patron")
// supplies the majority of those votes and would still beat everybody else
// if it kept its votes for itself.
package election

import (
	"errors"
	"math"
	"slices"

	"github.com/VeltarosLabs/electorium/internal/introspect"
	"github.com/VeltarosLabs/electorium/pkg/types"
)

var ErrUnknownVote = errors.New("vote is not part of this election")

const none = -1

type candidate struct {
	vote *types.Vote
	// voteFor is the index of the candidate this one delegates to.
	voteFor int
	// votedForMe and votingForSame form a linked list of everyone voting
	// for this candidate.
	votedForMe    int
	votingForSame int
	// received counts the votes flowing in from other ballots.
	received uint64
	willing  bool
}

// Standing is one line of the ranking.
type Standing struct {
	Vote  *types.Vote
	Score uint64
}

// Counter holds the state of one election. It is not safe for concurrent use.
type Counter struct {
	cands  []candidate
	byVote map[*types.Vote]int
	// order lists willing candidates by score, best first.
	order []int
	is    *introspect.Introspector
}

// New builds the candidate table from votes and computes the delegations.
// The Counter keeps pointers into votes; the slice must not be modified while
// the Counter is in use. A nil introspector disables events.
func New(votes []types.Vote, is *introspect.Introspector) *Counter {
	c := &Counter{
		cands:  make([]candidate, 0, len(votes)),
		byVote: make(map[*types.Vote]int, len(votes)),
		is:     is,
	}
	byID := make(map[string]int, len(votes))
	for i := range votes {
		v := &votes[i]
		if _, dup := byID[v.VoterID]; dup {
			introspect.Emit(is, func() introspect.InvalidVote {
				return introspect.InvalidVote{Cause: introspect.Duplicate, Vote: v}
			})
			continue
		}
		byID[v.VoterID] = len(c.cands)
		c.byVote[v] = len(c.cands)
		c.cands = append(c.cands, candidate{
			vote:          v,
			voteFor:       none,
			votedForMe:    none,
			votingForSame: none,
			willing:       v.WillingCandidate,
		})
	}
	for i := range c.cands {
		cd := &c.cands[i]
		v := cd.vote
		cause := introspect.NoVote
		switch {
		case v.VoteFor == "":
		case v.VoteFor == v.VoterID:
			cause = introspect.SelfVote
		default:
			if idx, ok := byID[v.VoteFor]; ok {
				cd.voteFor = idx
				continue
			}
			cause = introspect.UnrecognizedVote
		}
		introspect.Emit(is, func() introspect.InvalidVote {
			return introspect.InvalidVote{Cause: cause, Vote: v}
		})
	}
	c.delegate()
	return c
}

// ComputeWinner returns the VoterID of the winner, or "" if there is none.
func ComputeWinner(votes []types.Vote, is *introspect.Introspector) string {
	w, ok := New(votes, is).FindWinner()
	if !ok {
		return ""
	}
	return w.VoterID
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func (c *Counter) score(i int) uint64 {
	cd := &c.cands[i]
	if cd.willing {
		return satAdd(cd.received, cd.vote.NumberOfVotes)
	}
	return cd.received
}

// flow is what a ballot passes on to whoever it delegates to.
func (c *Counter) flow(i int) uint64 {
	return satAdd(c.cands[i].received, c.cands[i].vote.NumberOfVotes)
}

func (c *Counter) delegate() {
	for i := range c.cands {
		c.cands[i].received = 0
		c.cands[i].votedForMe = none
		c.cands[i].votingForSame = none
	}
	// onPath[i] == n+1 while i is on the chain walked from n.
	onPath := make([]int, len(c.cands))
	path := make([]int, 0, 8)
	for n := range c.cands {
		cn := &c.cands[n]
		if cn.voteFor != none {
			target := &c.cands[cn.voteFor]
			cn.votingForSame = target.votedForMe
			target.votedForMe = n
		}
		path = append(path[:0], n)
		onPath[n] = n + 1
		last := n
		for next := cn.voteFor; next != none; next = c.cands[next].voteFor {
			if onPath[next] == n+1 {
				introspect.Emit(c.is, func() introspect.VoteDelegationRing {
					chain := make([]*types.Vote, 0, len(path))
					for _, id := range path {
						chain = append(chain, c.cands[id].vote)
					}
					return introspect.VoteDelegationRing{Chain: chain, Next: c.cands[next].vote}
				})
				break
			}
			introspect.Emit(c.is, func() introspect.VoteDelegation {
				return introspect.VoteDelegation{
					From:      cn.vote,
					To:        c.cands[next].vote,
					BecauseOf: c.cands[last].vote,
				}
			})
			path = append(path, next)
			onPath[next] = n + 1
			c.cands[next].received = satAdd(c.cands[next].received, cn.vote.NumberOfVotes)
			last = next
		}
	}
	c.rank()
}

func (c *Counter) rank() {
	c.order = c.order[:0]
	for i := range c.cands {
		if c.cands[i].willing {
			c.order = append(c.order, i)
		}
	}
	slices.SortStableFunc(c.order, func(a, b int) int {
		sa, sb := c.score(a), c.score(b)
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return 0
		}
	})
}

// Ranking lists the willing candidates by delegated votes, best first.
// Equal scores keep ballot order.
func (c *Counter) Ranking() []Standing {
	out := make([]Standing, 0, len(c.order))
	for _, i := range c.order {
		out = append(out, Standing{Vote: c.cands[i].vote, Score: c.score(i)})
	}
	return out
}

// Score returns the delegated votes credited to the ballot's owner. It is
// false for ballots that were discarded as duplicates or never given to New.
func (c *Counter) Score(v *types.Vote) (uint64, bool) {
	i, ok := c.byVote[v]
	if !ok {
		return 0, false
	}
	return c.score(i), true
}

// RevokeVote withdraws the delegation of v and recounts.
func (c *Counter) RevokeVote(v *types.Vote) error {
	i, ok := c.byVote[v]
	if !ok {
		return ErrUnknownVote
	}
	c.cands[i].voteFor = none
	c.delegate()
	return nil
}

// clone copies the counting state without the introspector.
func (c *Counter) clone() *Counter {
	return &Counter{
		cands:  slices.Clone(c.cands),
		byVote: c.byVote,
		order:  slices.Clone(c.order),
	}
}
