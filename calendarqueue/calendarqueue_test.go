package calendarqueue

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type event struct {
	id       string
	timeNext float64
}

func (e *event) TimeNext() float64 { return e.timeNext }

func TestQueue_RoundTripSortedAscending(t *testing.T) {
	q := New[*event]()
	times := []float64{5, 1, 42, 3.5, 0, 17, 9}
	for i, tn := range times {
		q.Enqueue(&event{id: string(rune('a' + i)), timeNext: tn})
	}
	require.Equal(t, len(times), q.Len())

	sort.Float64s(times)
	var popped []float64
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		popped = append(popped, e.timeNext)
	}
	require.Equal(t, times, popped)
	require.Equal(t, 0, q.Len())
}

// heapRef is a container/heap min-heap over *event, used as an
// independent reference model to cross-check Queue's pop ordering
// against a well-known-correct priority queue.
type heapRef []*event

func (h heapRef) Len() int            { return len(h) }
func (h heapRef) Less(i, j int) bool  { return h[i].timeNext < h[j].timeNext }
func (h heapRef) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heapRef) Push(x any)         { *h = append(*h, x.(*event)) }
func (h *heapRef) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func TestQueue_MatchesHeapReferenceOrdering(t *testing.T) {
	// Interleave random pushes and pops against Queue and a
	// container/heap reference, asserting both report the same
	// ascending TimeNext sequence at every pop.
	rng := rand.New(rand.NewSource(7))
	q := New[*event]()
	ref := &heapRef{}
	heap.Init(ref)

	const ops = 2000
	for i := 0; i < ops; i++ {
		if ref.Len() == 0 || rng.Intn(2) == 0 {
			e := &event{id: string(rune('a' + i%26)), timeNext: rng.Float64() * 1000}
			q.Enqueue(e)
			heap.Push(ref, e)
			continue
		}
		got, ok := q.Pop()
		require.True(t, ok)
		want := heap.Pop(ref).(*event)
		require.Equal(t, want.timeNext, got.timeNext)
	}
	require.Equal(t, ref.Len(), q.Len())
}

func TestQueue_PopReturnsMinimumAndShrinksSizeByOne(t *testing.T) {
	q := New[*event]()
	q.Enqueue(&event{id: "a", timeNext: 10})
	q.Enqueue(&event{id: "b", timeNext: 3})
	q.Enqueue(&event{id: "c", timeNext: 7})

	before := q.Len()
	e, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 3.0, e.timeNext)
	require.Equal(t, before-1, q.Len())
}

func TestQueue_PeekDoesNotRemove(t *testing.T) {
	q := New[*event]()
	q.Enqueue(&event{id: "a", timeNext: 4})
	q.Enqueue(&event{id: "b", timeNext: 2})

	e, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 2.0, e.timeNext)
	require.Equal(t, 2, q.Len())
}

func TestQueue_TiesAreLIFO(t *testing.T) {
	// Documented tie-break: among equal TimeNext, the most recently
	// enqueued item pops first.
	q := New[*event](WithResizeDisabled())
	older := &event{id: "older", timeNext: 5}
	newer := &event{id: "newer", timeNext: 5}
	q.Enqueue(older)
	q.Enqueue(newer)

	first, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, newer, first)

	second, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, older, second)
}

func TestQueue_DeleteByIdentity(t *testing.T) {
	q := New[*event]()
	a := &event{id: "a", timeNext: 1}
	b := &event{id: "b", timeNext: 2}
	q.Enqueue(a)
	q.Enqueue(b)

	require.True(t, q.Delete(a))
	require.Equal(t, 1, q.Len())
	require.False(t, q.Delete(a), "deleting twice should report not-found")

	remaining, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, b, remaining)
}

func TestQueue_RescheduleIsDeleteThenEnqueue(t *testing.T) {
	q := New[*event]()
	a := &event{id: "a", timeNext: 10}
	b := &event{id: "b", timeNext: 1}
	q.Enqueue(a)
	q.Enqueue(b)

	require.True(t, q.Delete(a))
	a.timeNext = 0.5
	q.Enqueue(a)

	first, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, a, first)
}

func TestQueue_HandlesInfiniteTimeNext(t *testing.T) {
	q := New[*event]()
	passive := &event{id: "passive", timeNext: math.Inf(1)}
	active := &event{id: "active", timeNext: 3}
	q.Enqueue(passive)
	q.Enqueue(active)

	first, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, active, first)

	second, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, passive, second)
}

func TestQueue_EmptyPeekPop(t *testing.T) {
	q := New[*event]()
	_, ok := q.Peek()
	require.False(t, ok)
	_, ok = q.Pop()
	require.False(t, ok)
}

func TestQueue_ResizePreservesMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	q := New[*event](WithBucketCount(2))

	const n = 500
	want := make(map[*event]float64, n)
	for i := 0; i < n; i++ {
		e := &event{id: string(rune(i)), timeNext: rng.Float64() * 1000}
		want[e] = e.timeNext
		q.Enqueue(e)
	}
	require.Equal(t, n, q.Len())

	// Interleave deletes to exercise shrink alongside expand.
	deleted := 0
	for e := range want {
		if deleted >= n/4 {
			break
		}
		require.True(t, q.Delete(e))
		delete(want, e)
		deleted++
	}
	require.Equal(t, len(want), q.Len())

	got := make(map[*event]float64, len(want))
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		got[e] = e.timeNext
	}
	require.Equal(t, want, got)
}

func TestQueue_DirectSearchFallbackWhenWidthMisestimated(t *testing.T) {
	// Two buckets with a tiny width put every insertion into bucket 0
	// at wildly different "pages", all far beyond the first sweep's
	// reach; Pop must still find the true minimum via the
	// direct-search fallback.
	q := New[*event](WithBucketCount(2), WithWidth(0.001), WithResizeDisabled())
	q.Enqueue(&event{id: "far", timeNext: 1000})
	q.Enqueue(&event{id: "near", timeNext: 20})
	q.Enqueue(&event{id: "mid", timeNext: 50})

	e, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "near", e.id)
}
