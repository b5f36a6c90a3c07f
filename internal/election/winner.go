package election

import (
	"bytes"
	"slices"

	"github.com/VeltarosLabs/electorium/internal/crypto"
	"github.com/VeltarosLabs/electorium/internal/introspect"
	"github.com/VeltarosLabs/electorium/pkg/types"
)

// FindWinner runs the election. It does not change the counting state, so it
// may be called again after RevokeVote.
func (c *Counter) FindWinner() (*types.Vote, bool) {
	if len(c.order) == 0 {
		introspect.Emit(c.is, func() introspect.Outcome { return introspect.Outcome{} })
		return nil, false
	}

	// 1. Everyone sharing the top score, plus the first one below it.
	top := c.score(c.order[0])
	inGroup := make([]bool, len(c.cands))
	group := make([]int, 0, 4)
	runnerUp := none
	for _, i := range c.order {
		if c.score(i) < top {
			runnerUp = i
			break
		}
		inGroup[i] = true
		group = append(group, i)
	}
	introspect.Emit(c.is, func() introspect.BestRings {
		ev := introspect.BestRings{Members: c.rings(group, inGroup), Score: top}
		if runnerUp != none {
			ev.RunnerUp = c.cands[runnerUp].vote
			ev.RunnerUpScore = c.score(runnerUp)
		}
		return ev
	})

	// 2. Within the group, prefer whoever needs the group least.
	tentative := c.bestOfRing(group, inGroup)

	// 3. A lone tentative winner may be displaced by its patron. Tied
	//    winners are not: no single patron can break the tie on its own.
	if len(tentative) == 1 {
		tentative[0] = c.followPatrons(tentative[0], inGroup)
	}

	// 4. Deterministic tie breaker.
	w := c.tieBreak(tentative)
	introspect.Emit(c.is, func() introspect.Outcome {
		return introspect.Outcome{Winner: c.cands[w].vote, Votes: c.score(w)}
	})
	return c.cands[w].vote, true
}

// rings splits the top group into the delegation chains that link its
// members. Reporting only.
func (c *Counter) rings(group []int, inGroup []bool) [][]*types.Vote {
	var out [][]*types.Vote
	seen := make(map[int]bool, len(group))
	for _, m := range group {
		if seen[m] {
			continue
		}
		var ring []*types.Vote
		inRing := make(map[int]bool)
		for x := m; x != none && inGroup[x] && !inRing[x]; x = c.cands[x].voteFor {
			inRing[x] = true
			seen[x] = true
			ring = append(ring, c.cands[x].vote)
		}
		out = append(out, ring)
	}
	return out
}

// bestOfRing scores each group member by its own votes plus what flows in
// from outside the group, and returns the best ones.
func (c *Counter) bestOfRing(group []int, inGroup []bool) []int {
	scores := make([]uint64, len(group))
	var best uint64
	for gi, m := range group {
		s := c.cands[m].vote.NumberOfVotes
		for v := c.cands[m].votedForMe; v != none; v = c.cands[v].votingForSame {
			if !inGroup[v] {
				s = satAdd(s, c.flow(v))
			}
		}
		scores[gi] = s
		best = max(best, s)
	}
	var out []int
	for gi, m := range group {
		if scores[gi] == best {
			out = append(out, m)
		}
	}
	introspect.Emit(c.is, func() introspect.BestOfRing {
		ev := introspect.BestOfRing{}
		for gi, m := range group {
			ev.Scores = append(ev.Scores, introspect.MemberScore{Vote: c.cands[m].vote, Score: scores[gi]})
		}
		for _, m := range out {
			ev.Winners = append(ev.Winners, c.cands[m].vote)
		}
		return ev
	})
	return out
}

func (c *Counter) followPatrons(w int, inGroup []bool) int {
	visited := map[int]bool{w: true}
	for {
		p, ok := c.patron(w, inGroup)
		if !ok || visited[p] {
			return w
		}
		visited[p] = true
		w = p
	}
}

// patron looks for the direct voter of w who provides more than half of w's
// votes and would not lose to any other candidate if it kept its votes. Only one
// voter can provide a majority, so there is at most one patron.
func (c *Counter) patron(w int, inGroup []bool) (int, bool) {
	sw := c.score(w)
	found := none
	for p := c.cands[w].votedForMe; p != none; p = c.cands[p].votingForSame {
		sp := c.score(p)
		sel := introspect.PatronSelection{
			Candidate:      c.cands[w].vote,
			CandidateVotes: sw,
			Patron:         c.cands[p].vote,
			PatronVotes:    sp,
		}
		switch {
		case sp <= sw/2:
			sel.Reason = introspect.NotProvidingMajority
		case inGroup[p]:
			sel.Reason = introspect.LoopCandidate
		case !c.cands[p].willing:
			sel.Reason = introspect.NotWillingCandidate
		default:
			rival, rivalScore := c.rival(p)
			if sp < rivalScore {
				sel.Reason = introspect.NotBeatingSecondBest
				sel.Rival = rival
				sel.RivalVotes = rivalScore
			} else {
				sel.Reason = introspect.PatronFound
				found = p
			}
		}
		introspect.Emit(c.is, func() introspect.PatronSelection { return sel })
	}
	return found, found != none
}

// rival returns the best other candidate, and its score, if p withdrew its
// delegation.
func (c *Counter) rival(p int) (*types.Vote, uint64) {
	alt := c.clone()
	alt.cands[p].voteFor = none
	alt.delegate()
	for _, i := range alt.order {
		if i != p {
			return alt.cands[i].vote, alt.score(i)
		}
	}
	return nil, 0
}

type hashed struct {
	idx  int
	hash [64]byte
}

func (c *Counter) tieBreak(winners []int) int {
	if len(winners) == 1 {
		return winners[0]
	}
	wh := make([]hashed, 0, len(winners))
	for _, w := range winners {
		v := c.cands[w].vote
		votes := c.score(w)
		h := crypto.TieBreakerHash(v.VoterID, votes)
		introspect.Emit(c.is, func() introspect.TieBreakerHash {
			return introspect.TieBreakerHash{Candidate: v, Votes: votes, Hash: h}
		})
		wh = append(wh, hashed{idx: w, hash: h})
	}
	slices.SortStableFunc(wh, func(a, b hashed) int {
		return bytes.Compare(a.hash[:], b.hash[:])
	})
	introspect.Emit(c.is, func() introspect.DeterministicTieBreaker {
		ev := introspect.DeterministicTieBreaker{Votes: c.score(wh[0].idx)}
		for _, x := range wh {
			ev.Tied = append(ev.Tied, introspect.TiedCandidate{Vote: c.cands[x.idx].vote, Hash: x.hash})
		}
		return ev
	})
	return wh[0].idx
}
