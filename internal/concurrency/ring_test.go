// File: internal/concurrency/ring_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrowRingFIFO(t *testing.T) {
	r := NewGrowRing[int](4)
	require.True(t, r.Push(1))
	require.False(t, r.Push(2))
	require.False(t, r.Push(3))

	for want := 1; want <= 3; want++ {
		got, ok, nowEmpty := r.Pop()
		require.True(t, ok)
		require.Equal(t, want, got)
		require.Equal(t, want == 3, nowEmpty)
	}
	_, ok, nowEmpty := r.Pop()
	require.False(t, ok)
	require.True(t, nowEmpty)
}

func TestGrowRingGrowsInsteadOfFilling(t *testing.T) {
	r := NewGrowRing[int](64)
	for i := 0; i < 65; i++ {
		r.Push(i)
	}
	require.Equal(t, 65, r.Len())
	require.Equal(t, 128, r.Cap())
	require.Equal(t, 1, r.Growths())
	for i := 0; i < 65; i++ {
		got, ok, _ := r.Pop()
		require.True(t, ok)
		require.Equal(t, i, got)
	}
}

func TestGrowRingLinearizesWrappedItems(t *testing.T) {
	r := NewGrowRing[int](8)
	// move head to the middle so the next pushes wrap around
	for i := 0; i < 5; i++ {
		r.Push(-1)
	}
	for i := 0; i < 5; i++ {
		r.Pop()
	}
	for i := 0; i < 8; i++ {
		r.Push(i)
	}
	require.Equal(t, 16, r.Cap())
	require.Equal(t, 8, r.Len())
	for i := 0; i < 8; i++ {
		got, ok, _ := r.Pop()
		require.True(t, ok)
		require.Equal(t, i, got)
	}
}

func TestGrowRingMinimumCapacity(t *testing.T) {
	r := NewGrowRing[string](0)
	require.Equal(t, 2, r.Cap())
	r.Push("a")
	r.Push("b")
	require.Equal(t, 4, r.Cap())
}

// Randomized push/pop against a slice model.
func TestGrowRingPropertyBased(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		r := NewGrowRing[int](2)
		var model []int
		for i := 0; i < 5000; i++ {
			if rng.Intn(3) != 0 {
				v := rng.Int()
				wasEmpty := r.Push(v)
				if wasEmpty != (len(model) == 0) {
					t.Fatalf("seed %d step %d: wasEmpty=%v with %d queued", seed, i, wasEmpty, len(model))
				}
				model = append(model, v)
			} else {
				v, ok, nowEmpty := r.Pop()
				if len(model) == 0 {
					if ok {
						t.Fatalf("seed %d step %d: pop from empty ring returned %d", seed, i, v)
					}
					continue
				}
				if !ok || v != model[0] {
					t.Fatalf("seed %d step %d: got %d/%v, want %d", seed, i, v, ok, model[0])
				}
				model = model[1:]
				if nowEmpty != (len(model) == 0) {
					t.Fatalf("seed %d step %d: nowEmpty=%v with %d left", seed, i, nowEmpty, len(model))
				}
			}
			if r.Len() != len(model) {
				t.Fatalf("seed %d step %d: Len=%d, want %d", seed, i, r.Len(), len(model))
			}
			if r.Len() >= r.Cap() {
				t.Fatalf("seed %d step %d: ring left full", seed, i)
			}
		}
	}
}
