// Package types holds the public ballot type shared by the engine, the fuzz
// harness and the command line tools.
package types

// Vote is one ballot.
type Vote struct {
	// VoterID is the unique ID of the voter/candidate.
	VoterID string `json:"voter" yaml:"voter"`
	// VoteFor is the ID of whoever this voter delegates to. Empty means no vote.
	VoteFor string `json:"voteFor" yaml:"voteFor"`
	// NumberOfVotes is the voting weight: 1 in a national election, the number
	// of shares in a company.
	NumberOfVotes uint64 `json:"votes" yaml:"votes"`
	// WillingCandidate is true if the voter accepts being elected.
	WillingCandidate bool `json:"candidate" yaml:"candidate"`
}
