package bulletin

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b := New(CategoryControllerService, Error, "Could not start x")

	_, err := uuid.Parse(b.ID)
	require.NoError(t, err, "bulletin IDs are UUIDs")
	assert.False(t, b.Timestamp.IsZero())
	assert.Equal(t, "[ERROR] Controller Service: Could not start x", b.String())
	assert.NotEqual(t, b.ID, New(CategoryControllerService, Error, "again").ID)
}

func TestRepository(t *testing.T) {
	t.Run("keeps insertion order below capacity", func(t *testing.T) {
		r := NewRepository(3)
		r.Report("c", Info, "one")
		r.Report("c", Warning, "two")

		got := r.Bulletins()
		require.Len(t, got, 2)
		assert.Equal(t, "one", got[0].Message)
		assert.Equal(t, Warning, got[1].Severity)
	})

	t.Run("evicts the oldest when full", func(t *testing.T) {
		r := NewRepository(3)
		for i := 1; i <= 5; i++ {
			r.Report("c", Info, fmt.Sprint(i))
		}

		got := r.Bulletins()
		require.Len(t, got, 3)
		assert.Equal(t, []string{"3", "4", "5"}, []string{got[0].Message, got[1].Message, got[2].Message})
		assert.Equal(t, 3, r.Len())
	})

	t.Run("default capacity", func(t *testing.T) {
		assert.Equal(t, DefaultCapacity, NewRepository(0).capacity)
	})

	t.Run("concurrent reporters", func(t *testing.T) {
		r := NewRepository(100)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					r.Report("c", Info, "x")
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, r.Len())
	})
}

func TestMulti(t *testing.T) {
	a, b := NewRepository(10), NewRepository(10)
	sink := Multi(a, nil, b)

	sink.Report("c", Error, "boom")
	Discard.Report("c", Error, "ignored")

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}
