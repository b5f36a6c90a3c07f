package campaign

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/VeltarosLabs/electorium/internal/corpus"
	"github.com/VeltarosLabs/electorium/internal/fuzz"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeChecker fails on inputs starting with 0xff and panics on 0xfe.
type fakeChecker struct{}

func (fakeChecker) Format() string  { return "fake" }
func (fakeChecker) RecordSize() int { return 2 }

func (fakeChecker) Check(data []byte) (int16, error) {
	if len(data) == 0 {
		return fuzz.StatusNoWinner, nil
	}
	switch data[0] {
	case 0xff:
		return 3, errors.New("bad input")
	case 0xfe:
		panic("boom")
	}
	return int16(data[0]), nil
}

type memRecorder struct {
	mu       sync.Mutex
	findings []corpus.Finding
	err      error
}

func (r *memRecorder) Record(f corpus.Finding) (corpus.Finding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return corpus.Finding{}, r.err
	}
	r.findings = append(r.findings, f)
	return f, nil
}

func (r *memRecorder) inputs() []string {
	var out []string
	for _, f := range r.findings {
		out = append(out, string(f.Input))
	}
	slices.Sort(out)
	return out
}

func TestSeedsAreReplayed(t *testing.T) {
	rec := &memRecorder{}
	seeds := [][]byte{{}, {0xff, 0}, {0xfe}, {4, 4}}
	st, err := Run(context.Background(), Config{Workers: 2, MaxRecords: 4}, fakeChecker{}, seeds, rec, nil)
	require.NoError(t, err)
	require.EqualValues(t, 4, st.Runs)
	require.EqualValues(t, 1, st.NoWinner)
	require.EqualValues(t, 1, st.Winners)
	require.EqualValues(t, 2, st.Findings)

	require.Len(t, rec.findings, 2)
	require.Equal(t, "fake", rec.findings[0].Format)
	require.Equal(t, "bad input", rec.findings[0].Error)
	require.EqualValues(t, 3, rec.findings[0].Status)
	require.Contains(t, rec.findings[1].Error, "harness panicked: boom")
}

func TestIterationsAreSplitAcrossWorkers(t *testing.T) {
	rec := &memRecorder{}
	st, err := Run(context.Background(), Config{Workers: 3, Iterations: 5000, MaxRecords: 8, Seed: 9}, fakeChecker{}, nil, rec, nil)
	require.NoError(t, err)
	require.EqualValues(t, 5000, st.Runs)
	require.Equal(t, st.Runs, st.Winners+st.NoWinner+st.Unrepresentable+st.Findings)
	require.NotZero(t, st.Findings)
}

func TestSameSeedSameFindings(t *testing.T) {
	cfg := Config{Workers: 4, Iterations: 400, MaxRecords: 3, Seed: 42}
	a, b := &memRecorder{}, &memRecorder{}
	_, err := Run(context.Background(), cfg, fakeChecker{}, nil, a, nil)
	require.NoError(t, err)
	_, err = Run(context.Background(), cfg, fakeChecker{}, nil, b, nil)
	require.NoError(t, err)
	require.Equal(t, a.inputs(), b.inputs())
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := Run(ctx, Config{Workers: 2, Iterations: 1000, MaxRecords: 2}, fakeChecker{}, [][]byte{{1}}, &memRecorder{}, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, st.Runs, uint64(1000))
}

func TestRecorderErrorStopsCampaign(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	_, err := Run(context.Background(), Config{Workers: 2, Iterations: 5000, MaxRecords: 4, Seed: 1}, fakeChecker{}, nil, rec, nil)
	require.ErrorContains(t, err, "disk full")
}

func TestInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Workers: 0, MaxRecords: 1},
		{Workers: 1, Iterations: -1, MaxRecords: 1},
		{Workers: 1, MaxRecords: 0},
	} {
		_, err := Run(context.Background(), cfg, fakeChecker{}, nil, &memRecorder{}, nil)
		require.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestHarnessCampaignHasNoFindings(t *testing.T) {
	for _, format := range fuzz.Formats() {
		h, err := fuzz.New(fuzz.Config{Format: format})
		require.NoError(t, err)
		rec := &memRecorder{}
		st, err := Run(context.Background(), Config{Workers: 4, Iterations: 400, MaxRecords: 24, Seed: 7}, h, nil, rec, nil)
		require.NoError(t, err)
		require.Zero(t, st.Findings, "format %s: %v", format, rec.findings)
		require.NoError(t, h.Close())
	}
}

func TestRandomInputShape(t *testing.T) {
	rng := newRand(3)
	for range 200 {
		in := randomInput(rng, 6, 5)
		require.LessOrEqual(t, len(in), 5*6+5)
	}
}

func newRand(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, 0)) }
