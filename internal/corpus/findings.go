package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/VeltarosLabs/electorium/internal/storage"
)

const findingExt = ".msgpack"

var ErrFindingNotFound = errors.New("finding not found")

// Finding is an input that made the harness fail.
type Finding struct {
	ID      string    `msgpack:"id"`
	Format  string    `msgpack:"format"`
	Input   []byte    `msgpack:"input"`
	Status  int16     `msgpack:"status"`
	Error   string    `msgpack:"error"`
	FoundAt time.Time `msgpack:"found_at"`
}

// Findings stores one msgpack file per finding. Safe for concurrent Record
// calls: every finding gets its own file.
type Findings struct {
	dir string
	now func() time.Time
}

func NewFindings(dir string) *Findings {
	return &Findings{dir: filepath.Clean(dir), now: time.Now}
}

func (s *Findings) Dir() string { return s.dir }

// Record assigns an ID and timestamp when missing and writes f.
func (s *Findings) Record(f Finding) (Finding, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	} else if _, err := uuid.Parse(f.ID); err != nil {
		return Finding{}, fmt.Errorf("finding id %q: %w", f.ID, err)
	}
	if f.FoundAt.IsZero() {
		f.FoundAt = s.now()
	}
	f.FoundAt = f.FoundAt.UTC()

	data, err := msgpack.Marshal(&f)
	if err != nil {
		return Finding{}, err
	}
	if err := storage.WriteFile(filepath.Join(s.dir, f.ID+findingExt), data); err != nil {
		return Finding{}, err
	}
	return f, nil
}

func (s *Findings) Get(id string) (Finding, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Finding{}, fmt.Errorf("%w: %s", ErrFindingNotFound, id)
	}
	f, err := readFinding(filepath.Join(s.dir, id+findingExt))
	if errors.Is(err, os.ErrNotExist) {
		return Finding{}, fmt.Errorf("%w: %s", ErrFindingNotFound, id)
	}
	return f, err
}

// List returns every stored finding, oldest first.
func (s *Findings) List() ([]Finding, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Finding
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), findingExt) {
			continue
		}
		f, err := readFinding(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Finding) int {
		if c := a.FoundAt.Compare(b.FoundAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func readFinding(path string) (Finding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Finding{}, err
	}
	var f Finding
	if err := msgpack.Unmarshal(raw, &f); err != nil {
		return Finding{}, err
	}
	f.FoundAt = f.FoundAt.UTC()
	return f, nil
}
