// Package compile turns a readable description of an election into a fuzz
// input in the named format.
//
// Each line is "name votes voteFor". Names found in the name table keep
// their index and become willing candidates; any other name is a plain
// voter and gets a free index counting down from 255. Lines starting with
// '#' and blank lines are skipped.
package compile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/VeltarosLabs/electorium/internal/names"
)

var ErrTooManyNames = errors.New("more than 256 distinct names")

type line struct {
	no      int
	name    string
	votes   uint8
	voteFor string
}

// Compile reads lines from r and writes 4-byte records to w.
func Compile(r io.Reader, w io.Writer, tbl *names.Table) error {
	if tbl == nil {
		tbl = names.Default()
	}
	lines, err := parse(r)
	if err != nil {
		return err
	}

	ids := make(map[string]byte)
	used := make([]bool, names.Size)
	for _, l := range lines {
		for _, n := range []string{l.name, l.voteFor} {
			if i, ok := tbl.Index(n); ok {
				ids[n] = byte(i)
				used[i] = true
			}
		}
	}
	next := names.Size - 1
	idOf := func(n string) (byte, error) {
		if id, ok := ids[n]; ok {
			return id, nil
		}
		for next >= 0 && used[next] {
			next--
		}
		if next < 0 {
			return 0, fmt.Errorf("%w: %q", ErrTooManyNames, n)
		}
		id := byte(next)
		used[next] = true
		ids[n] = id
		return id, nil
	}

	bw := bufio.NewWriter(w)
	for _, l := range lines {
		who, err := idOf(l.name)
		if err != nil {
			return fmt.Errorf("line %d: %w", l.no, err)
		}
		vf, err := idOf(l.voteFor)
		if err != nil {
			return fmt.Errorf("line %d: %w", l.no, err)
		}
		var flags byte
		if _, ok := tbl.Index(l.name); ok {
			flags = 1
		}
		if _, err := bw.Write([]byte{flags, who, vf, l.votes}); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func parse(r io.Reader) ([]line, error) {
	var out []line
	sc := bufio.NewScanner(r)
	no := 0
	for sc.Scan() {
		no++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		f := strings.Fields(text)
		if len(f) != 3 {
			return nil, fmt.Errorf("line %d: expected \"name votes voteFor\", got %d fields", no, len(f))
		}
		votes, err := strconv.ParseUint(f[1], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("line %d: votes: %w", no, err)
		}
		out = append(out, line{no: no, name: f[0], votes: uint8(votes), voteFor: f[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
