// Package corpus keeps fuzz inputs on disk: seeds to replay before a random
// campaign, and the findings a campaign produced.
package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/VeltarosLabs/electorium/internal/crypto"
	"github.com/VeltarosLabs/electorium/internal/storage"
)

type Seed struct {
	Name  string
	Input []byte
}

// LoadSeeds reads every regular file in dir, sorted by name. A missing
// directory is an empty corpus.
func LoadSeeds(dir string) ([]Seed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Seed, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Seed{Name: e.Name(), Input: raw})
	}
	slices.SortFunc(out, func(a, b Seed) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// SaveSeed stores input under its content ID and returns the file name.
// Saving the same input twice is a no-op.
func SaveSeed(dir string, input []byte) (string, error) {
	name := crypto.ContentID(input)
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return name, nil
	}
	if err := storage.WriteFile(path, input); err != nil {
		return "", err
	}
	return name, nil
}
