// Package names maps the one-byte voter IDs of fuzz inputs to readable
// names. A table always holds exactly 256 distinct names.
package names

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Size is the number of entries in a table, one per byte value.
const Size = 256

var ErrTableSize = errors.New("name table must have exactly 256 entries")

//go:embed names.txt
var builtin string

type Table struct {
	names [Size]string
	index map[string]int
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("names: embedded table: %v", err))
	}
	return t
})

// Default returns the embedded table.
func Default() *Table { return defaultTable() }

// Parse reads one name per line. Blank lines and surrounding whitespace are
// ignored.
func Parse(text string) (*Table, error) {
	t := &Table{index: make(map[string]int, Size)}
	n := 0
	for i, line := range strings.Split(text, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("line %d: name %q contains whitespace", i+1, name)
		}
		if n >= Size {
			return nil, ErrTableSize
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("line %d: duplicate name %q", i+1, name)
		}
		t.names[n] = name
		t.index[name] = n
		n++
	}
	if n != Size {
		return nil, fmt.Errorf("%w: got %d", ErrTableSize, n)
	}
	return t, nil
}

func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	t, err := Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t *Table) Name(b byte) string { return t.names[b] }

func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}
