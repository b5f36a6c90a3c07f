package fuzz

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/VeltarosLabs/electorium/internal/names"
	"github.com/VeltarosLabs/electorium/pkg/types"
)

const (
	// FormatNamed: [flags][voter][voteFor][votes], IDs index the name table
	// and flags&1 marks a willing candidate.
	FormatNamed = "named"
	// FormatWide: [u16 voter][u16 votes][u16 voteFor], little endian. IDs
	// above 0x8000 are plain voters.
	FormatWide = "wide"
	// FormatCompact: [u8 voter][u8 voteFor][u16 votes]. IDs above 0x80 are
	// plain voters.
	FormatCompact = "compact"
)

var ErrUnknownFormat = errors.New("unknown input format")

// Ballot is a decoded vote together with the numeric ID its voter had in
// the raw input.
type Ballot struct {
	ID   uint16
	Vote types.Vote
}

// Decoder turns fuzz input into ballots. Trailing bytes that do not fill a
// whole record are ignored.
type Decoder interface {
	Format() string
	RecordSize() int
	Decode(data []byte) []Ballot
}

// Formats lists the supported input formats.
func Formats() []string {
	return []string{FormatNamed, FormatWide, FormatCompact}
}

func NewDecoder(format string, tbl *names.Table) (Decoder, error) {
	switch format {
	case "", FormatNamed:
		if tbl == nil {
			tbl = names.Default()
		}
		return namedDecoder{names: tbl}, nil
	case FormatWide:
		return wideDecoder{}, nil
	case FormatCompact:
		return compactDecoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func records(data []byte, width int) [][]byte {
	n := len(data) / width
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, data[i*width:(i+1)*width])
	}
	return out
}

type namedDecoder struct {
	names *names.Table
}

func (namedDecoder) Format() string  { return FormatNamed }
func (namedDecoder) RecordSize() int { return 4 }

func (d namedDecoder) Decode(data []byte) []Ballot {
	recs := records(data, d.RecordSize())
	out := make([]Ballot, 0, len(recs))
	for _, r := range recs {
		out = append(out, Ballot{
			ID: uint16(r[1]),
			Vote: types.Vote{
				VoterID:          d.names.Name(r[1]),
				VoteFor:          d.names.Name(r[2]),
				NumberOfVotes:    uint64(r[3]),
				WillingCandidate: r[0]&1 == 1,
			},
		})
	}
	return out
}

type wideDecoder struct{}

func (wideDecoder) Format() string  { return FormatWide }
func (wideDecoder) RecordSize() int { return 6 }

func wideID(id uint16) (string, bool) {
	if id > 0x8000 {
		return fmt.Sprintf("voter/%04x", id), false
	}
	return fmt.Sprintf("cand/%04x", id), true
}

func (d wideDecoder) Decode(data []byte) []Ballot {
	recs := records(data, d.RecordSize())
	out := make([]Ballot, 0, len(recs))
	for _, r := range recs {
		id := binary.LittleEndian.Uint16(r[0:2])
		voter, willing := wideID(id)
		voteFor, _ := wideID(binary.LittleEndian.Uint16(r[4:6]))
		out = append(out, Ballot{
			ID: id,
			Vote: types.Vote{
				VoterID:          voter,
				VoteFor:          voteFor,
				NumberOfVotes:    uint64(binary.LittleEndian.Uint16(r[2:4])),
				WillingCandidate: willing,
			},
		})
	}
	return out
}

type compactDecoder struct{}

func (compactDecoder) Format() string  { return FormatCompact }
func (compactDecoder) RecordSize() int { return 4 }

func compactID(id byte) (string, bool) {
	if id > 0x80 {
		return fmt.Sprintf("voter/%02x", id), false
	}
	return fmt.Sprintf("cand/%02x", id), true
}

func (d compactDecoder) Decode(data []byte) []Ballot {
	recs := records(data, d.RecordSize())
	out := make([]Ballot, 0, len(recs))
	for _, r := range recs {
		voter, willing := compactID(r[0])
		voteFor, _ := compactID(r[1])
		out = append(out, Ballot{
			ID: uint16(r[0]),
			Vote: types.Vote{
				VoterID:          voter,
				VoteFor:          voteFor,
				NumberOfVotes:    uint64(binary.LittleEndian.Uint16(r[2:4])),
				WillingCandidate: willing,
			},
		})
	}
	return out
}
