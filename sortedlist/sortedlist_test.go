package sortedlist

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndOrderedTraversal(t *testing.T) {
	l := New(0)
	keys := []float64{5, 1, 9, 3, 7, 2, 8, 4, 6, 0}
	for i, k := range keys {
		l.Insert(k, uint32(i), nil)
	}

	require.Equal(t, len(keys), l.Len())

	item, ok := l.First()
	require.True(t, ok)
	assert.Equal(t, 0.0, item.Key)

	var seen []float64
	for ok {
		seen = append(seen, item.Key)
		item, ok = l.Next(item.Handle)
	}

	for i := 1; i < len(seen); i++ {
		assert.LessOrEqual(t, seen[i-1], seen[i])
	}
	assert.Len(t, seen, len(keys))
}

func TestLastAndPrev(t *testing.T) {
	l := New(0)
	for _, k := range []float64{1, 2, 3, 4, 5} {
		l.Insert(k, 0, nil)
	}

	item, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, 5.0, item.Key)

	item, ok = l.Prev(item.Handle)
	require.True(t, ok)
	assert.Equal(t, 4.0, item.Key)
}

func TestDeleteRemovesItemAndPreservesOrder(t *testing.T) {
	l := New(0)
	handles := make(map[float64]int)
	for _, k := range []float64{10, 20, 30, 40, 50} {
		handles[k] = l.Insert(k, 0, nil)
	}

	l.Delete(handles[30])
	require.Equal(t, 4, l.Len())

	var seen []float64
	item, ok := l.First()
	for ok {
		seen = append(seen, item.Key)
		item, ok = l.Next(item.Handle)
	}
	assert.Equal(t, []float64{10, 20, 40, 50}, seen)
}

func TestFindReturnsFloorItem(t *testing.T) {
	l := New(0)
	for _, k := range []float64{1, 3, 5, 7, 9} {
		l.Insert(k, 0, nil)
	}

	item, ok := l.Find(6)
	require.True(t, ok)
	assert.Equal(t, 5.0, item.Key)

	item, ok = l.Find(1)
	require.True(t, ok)
	assert.Equal(t, 1.0, item.Key)

	_, ok = l.Find(0)
	assert.False(t, ok)
}

func TestDataPayloadSurvivesInsertAndDelete(t *testing.T) {
	l := New(0)
	type event struct{ name string }
	h := l.Insert(1.5, 42, &event{name: "decay"})

	item, ok := l.First()
	require.True(t, ok)
	assert.Equal(t, uint32(42), item.Index)
	assert.Equal(t, "decay", item.Data.(*event).name)

	l.Delete(h)
	assert.Equal(t, 0, l.Len())
}

// Stress-tests the red-black invariants under random insert/delete churn
// by checking the tree always reports items in sorted order, matching
// what LbSortNext/LbSortPrev guarantee regardless of insertion order.
func TestRandomChurnStaysOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := New(0)
	var handles []int

	for i := 0; i < 500; i++ {
		k := rng.Float64() * 1000
		handles = append(handles, l.Insert(k, 0, nil))

		if len(handles) > 50 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(handles))
			l.Delete(handles[idx])
			handles = append(handles[:idx], handles[idx+1:]...)
		}
	}

	item, ok := l.First()
	var prev float64
	first := true
	for ok {
		if !first {
			assert.LessOrEqual(t, prev, item.Key)
		}
		prev = item.Key
		first = false
		item, ok = l.Next(item.Handle)
	}
	assert.Equal(t, len(handles), l.Len())
}
