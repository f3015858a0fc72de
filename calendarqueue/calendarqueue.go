// Package calendarqueue implements a bucketed priority queue giving
// amortized O(1) enqueue/dequeue when the bucket width tracks the
// average separation of the priorities it holds — the classic
// "calendar queue" structure (Brown, 1988), used by devs.Coordinator
// to identify the next imminent child.
package calendarqueue

import "math"

// Item is anything schedulable by time. T must be comparable so Delete
// can locate an entry by identity; callers typically instantiate
// Queue with a pointer type.
type Item interface {
	comparable
	TimeNext() float64
}

const (
	minBuckets       = 2
	defaultWidth     = 1.0
	defaultBuckets   = 2
	sampleFloor      = 5
	sampleCeil       = 25
	fallbackMeanSep  = 1.0
	shrinkMarginSlop = 2
)

// Queue is a calendar queue over items of type T.
type Queue[T Item] struct {
	width         float64
	buckets       [][]T
	lastBucket    int
	bucketTop     float64
	lastPriority  float64
	size          int
	resizeEnabled bool
}

// Option configures a new Queue.
type Option func(*config)

type config struct {
	bucketCount   int
	width         float64
	resizeEnabled bool
}

// WithBucketCount sets the initial number of buckets (minimum 2).
func WithBucketCount(n int) Option {
	return func(c *config) { c.bucketCount = n }
}

// WithWidth sets the initial bucket width.
func WithWidth(w float64) Option {
	return func(c *config) { c.width = w }
}

// WithResizeDisabled prevents the queue from ever resizing itself,
// useful for tests that want to pin bucket layout.
func WithResizeDisabled() Option {
	return func(c *config) { c.resizeEnabled = false }
}

// New constructs an empty Queue.
func New[T Item](opts ...Option) *Queue[T] {
	cfg := config{bucketCount: defaultBuckets, width: defaultWidth, resizeEnabled: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bucketCount < minBuckets {
		cfg.bucketCount = minBuckets
	}
	if cfg.width <= 0 {
		cfg.width = defaultWidth
	}
	return &Queue[T]{
		width:         cfg.width,
		buckets:       make([][]T, cfg.bucketCount),
		bucketTop:     cfg.width,
		resizeEnabled: cfg.resizeEnabled,
	}
}

// Len reports the number of resident items.
func (q *Queue[T]) Len() int { return q.size }

// Enqueue inserts item, maintaining each bucket's descending order by
// TimeNext so the minimum sits at the tail. Among items with equal
// TimeNext, the most recently enqueued sits closer to the tail and is
// therefore popped first (documented LIFO tie-break).
func (q *Queue[T]) Enqueue(item T) {
	q.rawInsert(item)
	if q.resizeEnabled && q.size > q.expandThreshold() {
		q.Resize(len(q.buckets) * 2)
	}
}

func (q *Queue[T]) rawInsert(item T) {
	i := q.bucketIndex(item.TimeNext())
	q.buckets[i] = insertDescending(q.buckets[i], item)
	q.size++
}

// insertDescending inserts item into bucket (sorted descending by
// TimeNext, minimum at the tail), scanning from the tail since
// real-world insertions cluster near the current time.
func insertDescending[T Item](bucket []T, item T) []T {
	i := len(bucket)
	for i > 0 && bucket[i-1].TimeNext() < item.TimeNext() {
		i--
	}
	var zero T
	bucket = append(bucket, zero)
	copy(bucket[i+1:], bucket[i:len(bucket)-1])
	bucket[i] = item
	return bucket
}

// Peek returns the minimum item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	return q.findMin(false)
}

// Pop removes and returns the minimum item.
func (q *Queue[T]) Pop() (T, bool) {
	return q.findMin(true)
}

func (q *Queue[T]) findMin(remove bool) (item T, ok bool) {
	if q.size == 0 {
		return item, false
	}
	n := len(q.buckets)
	for i := 0; i < n; i++ {
		b := q.buckets[q.lastBucket]
		if len(b) > 0 && b[len(b)-1].TimeNext() < q.bucketTop {
			return q.take(q.lastBucket, remove)
		}
		q.lastBucket = (q.lastBucket + 1) % n
		q.bucketTop += q.width
	}

	// A full sweep found nothing: the bucket width is misestimated
	// relative to the current distribution. Fall back to a direct
	// linear search for the true minimum, then resume bucket-walking
	// from there.
	minIdx := -1
	var minVal float64
	for i, b := range q.buckets {
		if len(b) == 0 {
			continue
		}
		v := b[len(b)-1].TimeNext()
		if minIdx == -1 || v < minVal {
			minIdx = i
			minVal = v
		}
	}
	if minIdx == -1 {
		return item, false
	}
	q.lastBucket = minIdx
	q.bucketTop = (math.Floor(minVal/q.width) + 1.5) * q.width
	return q.take(minIdx, remove)
}

func (q *Queue[T]) take(bucketIdx int, remove bool) (item T, ok bool) {
	b := q.buckets[bucketIdx]
	tail := b[len(b)-1]
	if remove {
		q.buckets[bucketIdx] = b[:len(b)-1]
		q.size--
		q.lastPriority = tail.TimeNext()
		q.maybeShrink()
	}
	return tail, true
}

// Delete removes item by equality, wherever its current TimeNext()
// places it. Callers rescheduling an item must call Delete before
// mutating the value backing TimeNext(), then Enqueue after.
func (q *Queue[T]) Delete(item T) bool {
	i := q.bucketIndex(item.TimeNext())
	b := q.buckets[i]
	for idx, it := range b {
		if it == item {
			q.buckets[i] = append(b[:idx], b[idx+1:]...)
			q.size--
			q.maybeShrink()
			return true
		}
	}
	return false
}

func (q *Queue[T]) bucketIndex(t float64) int {
	n := len(q.buckets)
	if math.IsInf(t, 1) || math.IsNaN(t) {
		// Passive items (sigma = +inf) cannot be divided into a
		// bucket slot via float64->int conversion; park them all in
		// a fixed slot. The sweep/direct-search logic above does not
		// depend on bucket purity, so this is safe.
		return n - 1
	}
	idx := int(math.Floor(t/q.width)) % n
	if idx < 0 {
		idx += n
	}
	return idx
}

func (q *Queue[T]) expandThreshold() int { return 2 * len(q.buckets) }

func (q *Queue[T]) shrinkThreshold() int { return len(q.buckets)/2 - shrinkMarginSlop }

func (q *Queue[T]) maybeShrink() {
	if !q.resizeEnabled || len(q.buckets) <= minBuckets {
		return
	}
	if q.size < q.shrinkThreshold() {
		q.Resize(len(q.buckets) / 2)
	}
}

// Resize rebuilds the queue with newCount buckets (floored to the
// minimum) and a freshly estimated width, rehashing every resident
// item. It is a no-op if the queue was constructed with
// WithResizeDisabled.
func (q *Queue[T]) Resize(newCount int) {
	if !q.resizeEnabled {
		return
	}
	if newCount < minBuckets {
		newCount = minBuckets
	}
	newWidth := q.estimateWidth()
	items := q.drain()

	q.width = newWidth
	q.buckets = make([][]T, newCount)
	q.lastBucket = 0
	q.bucketTop = newWidth
	q.lastPriority = 0
	q.size = 0
	for _, it := range items {
		q.rawInsert(it)
	}
}

// estimateWidth samples up to clamp(size, 5, 25) successive pops with
// resizing disabled, computes their mean separation, recomputes the
// mean over separations strictly below twice that, restores the
// samples, and returns three times the refined mean.
func (q *Queue[T]) estimateWidth() float64 {
	if q.size == 0 {
		return defaultWidth
	}
	n := q.size
	if n < sampleFloor {
		n = sampleFloor
	}
	if n > sampleCeil {
		n = sampleCeil
	}
	if n > q.size {
		n = q.size
	}

	savedResize := q.resizeEnabled
	q.resizeEnabled = false

	samples := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, ok := q.Pop()
		if !ok {
			break
		}
		samples = append(samples, item)
	}

	mu := meanSeparation(samples, math.Inf(1))
	if mu <= 0 || math.IsInf(mu, 0) || math.IsNaN(mu) {
		mu = fallbackMeanSep
	}
	muPrime := meanSeparation(samples, 2*mu)
	if muPrime <= 0 || math.IsInf(muPrime, 0) || math.IsNaN(muPrime) {
		muPrime = mu
	}

	// Re-enqueue in reverse pop order so that, among equal TimeNext,
	// the item that popped first (the most recently enqueued) is again
	// the last one inserted and keeps its place under the LIFO rule.
	for i := len(samples) - 1; i >= 0; i-- {
		q.Enqueue(samples[i])
	}
	q.resizeEnabled = savedResize

	return 3 * muPrime
}

// meanSeparation returns the mean of consecutive separations in
// samples (assumed sorted ascending, as successive pops are) that are
// strictly below ceiling.
func meanSeparation[T Item](samples []T, ceiling float64) float64 {
	var sum float64
	var count int
	for i := 1; i < len(samples); i++ {
		sep := samples[i].TimeNext() - samples[i-1].TimeNext()
		if sep < ceiling {
			sum += sep
			count++
		}
	}
	if count == 0 {
		return fallbackMeanSep
	}
	return sum / float64(count)
}

// drain removes every item from the queue in no particular order.
func (q *Queue[T]) drain() []T {
	items := make([]T, 0, q.size)
	for i, b := range q.buckets {
		items = append(items, b...)
		q.buckets[i] = nil
	}
	return items
}
