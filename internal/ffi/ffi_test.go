package ffi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/VeltarosLabs/electorium/internal/fuzz"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCreateThenDestroy(t *testing.T) {
	r := NewRegistry()
	h, err := r.New(false)
	require.NoError(t, err)
	require.NotZero(t, h)
	require.Equal(t, 1, r.Len())
	require.NoError(t, r.Destroy(h))
	require.Zero(t, r.Len())
}

func TestRunEmptyBuffer(t *testing.T) {
	r := NewRegistry()
	h, err := r.New(false)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Destroy(h)) }()

	st, err := r.Run(h, nil)
	require.NoError(t, err)
	require.Equal(t, fuzz.StatusNoWinner, st)
}

func TestRunProducesWinner(t *testing.T) {
	r := NewRegistry()
	h, err := r.New(false)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Destroy(h)) }()

	// Alice (12) votes for herself.
	st, err := r.Run(h, []byte{1, 12, 12, 1})
	require.NoError(t, err)
	require.EqualValues(t, 12, st)
}

func TestDestroyedHandleIsRejected(t *testing.T) {
	r := NewRegistry()
	h, err := r.New(false)
	require.NoError(t, err)
	require.NoError(t, r.Destroy(h))

	require.ErrorIs(t, r.Destroy(h), ErrUnknownHandle)
	_, err = r.Run(h, []byte{1, 12, 12, 1})
	require.ErrorIs(t, err, ErrUnknownHandle)
	_, err = r.Run(0, nil)
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestRepeatedCyclesDoNotLeak(t *testing.T) {
	r := NewRegistry()
	seen := make(map[Handle]bool)
	for i := 0; i < 1000; i++ {
		h, err := r.New(false)
		require.NoError(t, err)
		require.False(t, seen[h], "handle %d reused", h)
		seen[h] = true
		_, err = r.Run(h, []byte{1, 12, 36, 1, 1, 36, 12, 1})
		require.NoError(t, err)
		require.NoError(t, r.Destroy(h))
	}
	require.Zero(t, r.Len())
}

func TestConcurrentHandles(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h, err := r.New(false)
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := r.Run(h, []byte{1, byte(j), byte(j), 1}); err != nil {
					t.Error(err)
				}
				if err := r.Destroy(h); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	require.Zero(t, r.Len())
}

func TestDestroyDuringRunIsNotACrash(t *testing.T) {
	r := NewRegistry()
	id, err := r.New(false)
	require.NoError(t, err)
	h, err := r.get(id)
	require.NoError(t, err)

	// Destroy lands after the lookup but before the harness runs.
	require.NoError(t, r.Destroy(id))
	require.NotPanics(t, func() {
		st, err := run(h, []byte{1, 12, 12, 1})
		require.ErrorIs(t, err, ErrUnknownHandle)
		require.Equal(t, fuzz.StatusNoWinner, st)
	})
}
