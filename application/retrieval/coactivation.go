package retrieval

import "sync"

// CoactivationMatrix is the process-wide counter spec.md §3 names: for
// each ordered pair of memory ids, how often they appeared together in a
// single retrieval's top-K. In-memory, guarded by a single mutex; updates
// are batched to one mutation per retrieval (spec.md §5).
type CoactivationMatrix struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

func NewCoactivationMatrix() *CoactivationMatrix {
	return &CoactivationMatrix{counts: make(map[string]map[string]int)}
}

// RecordTopK increments every ordered pair's counter by 1 for the ids
// returned together in one retrieval's top-K (§4.3 step 7). Monotonically
// non-decreasing per pair (§8's co-activation monotonicity law).
func (c *CoactivationMatrix) RecordTopK(ids []string) {
	if len(ids) < 2 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			row, ok := c.counts[a]
			if !ok {
				row = make(map[string]int)
				c.counts[a] = row
			}
			row[b]++
		}
	}
}

// Count returns how many times a and b have co-occurred. RecordTopK updates
// both orders of every pair under the same lock Count takes, so Count(a,b)
// always equals Count(b,a).
func (c *CoactivationMatrix) Count(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.counts[a]
	if !ok {
		return 0
	}
	return row[b]
}

// SumWith returns Σ coact(m, r) for r ranging over others — the numerator
// of §4.3's coactivation signal.
func (c *CoactivationMatrix) SumWith(m string, others []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.counts[m]
	if !ok {
		return 0
	}
	sum := 0
	for _, o := range others {
		if o == m {
			continue
		}
		sum += row[o]
	}
	return sum
}

// PairCount reports how many distinct ordered pairs have a non-zero
// counter, for the observability gauge.
func (c *CoactivationMatrix) PairCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, row := range c.counts {
		n += len(row)
	}
	return n
}
