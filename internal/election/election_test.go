package election

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/VeltarosLabs/electorium/internal/crypto"
	"github.com/VeltarosLabs/electorium/internal/introspect"
	"github.com/VeltarosLabs/electorium/pkg/types"
)

type ballots struct {
	t      *testing.T
	v      []types.Vote
	voters int
}

func newBallots(t *testing.T) *ballots { return &ballots{t: t} }

func (b *ballots) candidate(name, voteFor string) *ballots {
	b.v = append(b.v, types.Vote{VoterID: name, VoteFor: voteFor, NumberOfVotes: 1, WillingCandidate: true})
	return b
}

func (b *ballots) votes(voteFor string, n uint64) *ballots {
	b.v = append(b.v, types.Vote{VoterID: fmt.Sprintf("voter#%d", b.voters), VoteFor: voteFor, NumberOfVotes: n})
	b.voters++
	return b
}

func (b *ballots) expectWin(winner string) {
	b.t.Helper()
	require.Equal(b.t, winner, ComputeWinner(b.v, nil))
}

func TestNobody(t *testing.T) {
	newBallots(t).votes("non-existent-candidate", 1).expectWin("")
	newBallots(t).expectWin("")
}

func TestAliceAlone(t *testing.T) {
	newBallots(t).candidate("Alice", "").expectWin("Alice")
	newBallots(t).candidate("Alice", "Alice").expectWin("Alice")
}

func TestRingMemberWithOutsideSupportWins(t *testing.T) {
	newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		votes("Alice", 3).
		votes("Bob", 3).
		votes("Charlie", 1).
		expectWin("Alice")
}

func TestWithinRingTieBreakerPrefersIndependentSupport(t *testing.T) {
	// Bob brings 4 votes of his own into the ring, Alice only 3 through Charlie.
	newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		votes("Bob", 4).
		votes("Charlie", 2).
		expectWin("Bob")
}

func TestCharlieIsPatron(t *testing.T) {
	newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		votes("Bob", 1).
		votes("Charlie", 4).
		expectWin("Charlie")
}

func TestCharlieIsPatronOverTwoVoteBob(t *testing.T) {
	// Charlie supplies 5 of Alice's 9 votes and, keeping them, beats the
	// 4 the ring would have left.
	newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		votes("Bob", 2).
		votes("Charlie", 4).
		expectWin("Charlie")
}

func TestPatronChain(t *testing.T) {
	newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		candidate("Dave", "Charlie").
		candidate("Ernist", "Dave").
		votes("Bob", 1).
		votes("Ernist", 5).
		expectWin("Ernist")
}

func TestErnistIsPatron(t *testing.T) {
	// Keeping his 5 votes Ernist only ties the 5 left to the ring, and a
	// tie goes to the patron.
	newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		candidate("Dave", "Charlie").
		candidate("Ernist", "Dave").
		votes("Bob", 1).
		votes("Ernist", 4).
		expectWin("Ernist")
}

func TestPatronLosingToRivalIsSkipped(t *testing.T) {
	// Charlie brings 3 of Alice's 5 votes, but keeping them he would trail
	// Zed's 4.
	newBallots(t).
		candidate("Alice", "").
		candidate("Charlie", "Alice").
		candidate("Zed", "").
		votes("Charlie", 2).
		votes("Alice", 1).
		votes("Zed", 3).
		expectWin("Alice")
}

func TestDeterministicTieBreaker(t *testing.T) {
	ha := crypto.TieBreakerHash("Alice", 1)
	hb := crypto.TieBreakerHash("Bob", 1)
	want := "Alice"
	if string(hb[:]) < string(ha[:]) {
		want = "Bob"
	}
	newBallots(t).candidate("Alice", "").candidate("Bob", "").expectWin(want)
	newBallots(t).candidate("Bob", "").candidate("Alice", "").expectWin(want)
}

func TestNonWillingDelegateIsNotRanked(t *testing.T) {
	votes := []types.Vote{
		{VoterID: "Alice", VoteFor: "Vic", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "Vic", VoteFor: "", NumberOfVotes: 5},
	}
	c := New(votes, nil)
	require.Len(t, c.Ranking(), 1)
	w, ok := c.FindWinner()
	require.True(t, ok)
	require.Same(t, &votes[0], w)

	s, ok := c.Score(&votes[1])
	require.True(t, ok)
	require.EqualValues(t, 1, s)
}

func TestScoresSaturate(t *testing.T) {
	votes := []types.Vote{
		{VoterID: "Alice", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "v1", VoteFor: "Alice", NumberOfVotes: math.MaxUint64},
		{VoterID: "v2", VoteFor: "Alice", NumberOfVotes: math.MaxUint64},
	}
	s, ok := New(votes, nil).Score(&votes[0])
	require.True(t, ok)
	require.Equal(t, uint64(math.MaxUint64), s)
}

func TestRanking(t *testing.T) {
	votes := []types.Vote{
		{VoterID: "Alice", VoteFor: "Bob", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "Bob", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "Carol", NumberOfVotes: 2, WillingCandidate: true},
		{VoterID: "v", VoteFor: "Alice", NumberOfVotes: 3},
	}
	got := New(votes, nil).Ranking()
	want := []Standing{
		{Vote: &votes[1], Score: 5},
		{Vote: &votes[0], Score: 4},
		{Vote: &votes[2], Score: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestRevokeVote(t *testing.T) {
	b := newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		candidate("Dave", "Charlie").
		candidate("Ernist", "Dave").
		votes("Bob", 1).
		votes("Ernist", 5)
	c := New(b.v, nil)
	w, ok := c.FindWinner()
	require.True(t, ok)
	require.Equal(t, "Ernist", w.VoterID)
	before, _ := c.Score(w)

	require.NoError(t, c.RevokeVote(w))
	after, _ := c.Score(w)
	require.Equal(t, before, after)
	require.Same(t, w, c.Ranking()[0].Vote)

	// Alice and Bob lose Ernist's chain.
	s, _ := c.Score(&b.v[0])
	require.EqualValues(t, 5, s)

	require.ErrorIs(t, c.RevokeVote(&types.Vote{VoterID: "Ernist"}), ErrUnknownVote)
}

func TestDuplicatesAreDiscarded(t *testing.T) {
	votes := []types.Vote{
		{VoterID: "Alice", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "Bob", NumberOfVotes: 2, WillingCandidate: true},
		{VoterID: "Alice", NumberOfVotes: 100, WillingCandidate: true},
	}
	c := New(votes, nil)
	_, ok := c.Score(&votes[2])
	require.False(t, ok)
	w, _ := c.FindWinner()
	require.Equal(t, "Bob", w.VoterID)
}

func TestInvalidVoteEvents(t *testing.T) {
	votes := []types.Vote{
		{VoterID: "Alice", VoteFor: "", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "Bob", VoteFor: "Bob", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "Carol", VoteFor: "Zed", NumberOfVotes: 1, WillingCandidate: true},
		{VoterID: "Bob", VoteFor: "Alice", NumberOfVotes: 1},
		{VoterID: "Dan", VoteFor: "Alice", NumberOfVotes: 1},
	}
	is := introspect.New()
	type seen struct {
		Voter string
		Cause introspect.InvalidVoteCause
	}
	var got []seen
	introspect.Subscribe(is, func(e introspect.InvalidVote) {
		got = append(got, seen{e.Vote.VoterID, e.Cause})
	})
	New(votes, is)
	want := []seen{
		{"Bob", introspect.Duplicate},
		{"Alice", introspect.NoVote},
		{"Bob", introspect.SelfVote},
		{"Carol", introspect.UnrecognizedVote},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsDescribeElection(t *testing.T) {
	b := newBallots(t).
		candidate("Alice", "Bob").
		candidate("Bob", "Alice").
		candidate("Charlie", "Alice").
		votes("Bob", 1).
		votes("Charlie", 4)
	is := introspect.New()
	var (
		rings    introspect.BestRings
		patrons  []introspect.PatronReason
		outcome  introspect.Outcome
		ringHits int
	)
	introspect.Subscribe(is, func(e introspect.BestRings) { rings = e })
	introspect.Subscribe(is, func(e introspect.PatronSelection) { patrons = append(patrons, e.Reason) })
	introspect.Subscribe(is, func(e introspect.Outcome) { outcome = e })
	introspect.Subscribe(is, func(introspect.VoteDelegationRing) { ringHits++ })

	c := New(b.v, is)
	_, ok := c.FindWinner()
	require.True(t, ok)

	require.EqualValues(t, 8, rings.Score)
	require.Len(t, rings.Members, 1)
	require.Len(t, rings.Members[0], 2)
	require.Equal(t, "Charlie", rings.RunnerUp.VoterID)
	require.EqualValues(t, 5, rings.RunnerUpScore)

	// Alice's voters: Charlie becomes patron, then Charlie's only voter
	// provides no majority.
	require.Contains(t, patrons, introspect.PatronFound)
	require.Equal(t, introspect.NotProvidingMajority, patrons[len(patrons)-1])
	require.Equal(t, "Charlie", outcome.Winner.VoterID)
	require.EqualValues(t, 5, outcome.Votes)
	require.Positive(t, ringHits)
}

func TestLoggingIntrospectorRuns(t *testing.T) {
	b := newBallots(t).candidate("Alice", "").candidate("Bob", "").votes("Zed", 1)
	require.NotPanics(t, func() { ComputeWinner(b.v, introspect.NewLogging(nil)) })
}
