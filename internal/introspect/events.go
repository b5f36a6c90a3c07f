package introspect

import "github.com/VeltarosLabs/electorium/pkg/types"

// VoteDelegation: From's votes flow to To because BecauseOf voted for To.
type VoteDelegation struct {
	From      *types.Vote
	To        *types.Vote
	BecauseOf *types.Vote
}

// VoteDelegationRing: the chain came back to Next, which is already on it.
type VoteDelegationRing struct {
	Chain []*types.Vote
	Next  *types.Vote
}

type InvalidVoteCause int

const (
	NoVote InvalidVoteCause = iota
	SelfVote
	UnrecognizedVote
	Duplicate
)

func (c InvalidVoteCause) String() string {
	switch c {
	case NoVote:
		return "no vote"
	case SelfVote:
		return "self vote"
	case UnrecognizedVote:
		return "unrecognized vote"
	case Duplicate:
		return "duplicate voter"
	default:
		return "unknown"
	}
}

type InvalidVote struct {
	Cause InvalidVoteCause
	Vote  *types.Vote
}

// BestRings describes the group of candidates sharing the top score, split
// into the delegation rings that produced it.
type BestRings struct {
	Members       [][]*types.Vote
	Score         uint64
	RunnerUp      *types.Vote
	RunnerUpScore uint64
}

type MemberScore struct {
	Vote  *types.Vote
	Score uint64
}

// BestOfRing gives each top-group member the votes it would hold if the
// group did not delegate among itself.
type BestOfRing struct {
	Scores  []MemberScore
	Winners []*types.Vote
}

type PatronReason int

const (
	// LoopCandidate: already eliminated by the within-ring tie breaker.
	LoopCandidate PatronReason = iota
	NotWillingCandidate
	NotProvidingMajority
	NotBeatingSecondBest
	PatronFound
)

func (r PatronReason) String() string {
	switch r {
	case LoopCandidate:
		return "loop candidate"
	case NotWillingCandidate:
		return "not a willing candidate"
	case NotProvidingMajority:
		return "not providing majority"
	case NotBeatingSecondBest:
		return "not beating second best"
	case PatronFound:
		return "patron found"
	default:
		return "unknown"
	}
}

type PatronSelection struct {
	Candidate      *types.Vote
	CandidateVotes uint64
	Patron         *types.Vote
	PatronVotes    uint64
	Reason         PatronReason

	// Rival and RivalVotes are set for NotBeatingSecondBest.
	Rival      *types.Vote
	RivalVotes uint64
}

type TieBreakerHash struct {
	Candidate *types.Vote
	Votes     uint64
	Hash      [64]byte
}

type TiedCandidate struct {
	Vote *types.Vote
	Hash [64]byte
}

// DeterministicTieBreaker lists the tied candidates ordered by hash; the
// first one wins.
type DeterministicTieBreaker struct {
	Votes uint64
	Tied  []TiedCandidate
}

// Outcome is emitted once per election. Winner is nil when nobody won.
type Outcome struct {
	Winner *types.Vote
	Votes  uint64
}
