// Package ballot reads election ballots from YAML or JSON files.
//
//	votes:
//	  - voter: Alice
//	    voteFor: Bob
//	    candidate: true
//	  - voter: shareholder-7
//	    voteFor: Alice
//	    votes: 250
package ballot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VeltarosLabs/electorium/pkg/types"
)

var ErrEmptyVoter = errors.New("voter must not be empty")

type file struct {
	Votes []entry `yaml:"votes"`
}

type entry struct {
	Voter     string  `yaml:"voter"`
	VoteFor   string  `yaml:"voteFor"`
	Votes     *uint64 `yaml:"votes"`
	Candidate bool    `yaml:"candidate"`
}

func Load(path string) ([]types.Vote, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	votes, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return votes, nil
}

// Parse decodes a ballot document. Omitted vote counts default to 1.
func Parse(raw []byte) ([]types.Vote, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	out := make([]types.Vote, 0, len(f.Votes))
	for i, e := range f.Votes {
		voter := strings.TrimSpace(e.Voter)
		if voter == "" {
			return nil, fmt.Errorf("vote %d: %w", i+1, ErrEmptyVoter)
		}
		n := uint64(1)
		if e.Votes != nil {
			n = *e.Votes
		}
		out = append(out, types.Vote{
			VoterID:          voter,
			VoteFor:          strings.TrimSpace(e.VoteFor),
			NumberOfVotes:    n,
			WillingCandidate: e.Candidate,
		})
	}
	return out, nil
}

// Marshal renders votes in the format Parse reads.
func Marshal(votes []types.Vote) ([]byte, error) {
	f := file{Votes: make([]entry, 0, len(votes))}
	for _, v := range votes {
		n := v.NumberOfVotes
		f.Votes = append(f.Votes, entry{Voter: v.VoterID, VoteFor: v.VoteFor, Votes: &n, Candidate: v.WillingCandidate})
	}
	return yaml.Marshal(f)
}
