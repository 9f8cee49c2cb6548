package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordTopK_IncrementsEveryOrderedPair(t *testing.T) {
	m := NewCoactivationMatrix()
	m.RecordTopK([]string{"a", "b", "c"})

	assert.Equal(t, 1, m.Count("a", "b"))
	assert.Equal(t, 1, m.Count("b", "a"))
	assert.Equal(t, 1, m.Count("a", "c"))
	assert.Equal(t, 1, m.Count("c", "a"))
}

func TestRecordTopK_IsMonotonicNonDecreasing(t *testing.T) {
	m := NewCoactivationMatrix()
	m.RecordTopK([]string{"a", "b"})
	m.RecordTopK([]string{"a", "b"})
	assert.Equal(t, 2, m.Count("a", "b"))
}

func TestSumWith_SumsOverOthersExcludingSelf(t *testing.T) {
	m := NewCoactivationMatrix()
	m.RecordTopK([]string{"a", "b", "c"})
	m.RecordTopK([]string{"a", "b"})

	sum := m.SumWith("a", []string{"a", "b", "c"})
	assert.Equal(t, 3, sum) // coact(a,b)=2, coact(a,c)=1
}

func TestPairCount_CountsDistinctOrderedPairs(t *testing.T) {
	m := NewCoactivationMatrix()
	assert.Equal(t, 0, m.PairCount())
	m.RecordTopK([]string{"a", "b"})
	assert.Equal(t, 2, m.PairCount()) // (a,b) and (b,a)
}

func TestRecordTopK_SingleIDIsNoOp(t *testing.T) {
	m := NewCoactivationMatrix()
	m.RecordTopK([]string{"a"})
	assert.Equal(t, 0, m.PairCount())
}
