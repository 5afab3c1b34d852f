package bankcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/bankcore/internal/apierror"
	"github.com/blnkfinance/bankcore/model"
)

func TestCheckSafety_ClassicSafeState(t *testing.T) {
	safe, sequence, err := CheckSafety(model.ResourceSnapshot{
		Available: []int{3, 3, 2},
		MaxDemand: [][]int{{7, 5, 3}, {3, 2, 2}, {9, 0, 2}, {2, 2, 2}, {4, 3, 3}},
		Allocated: [][]int{{0, 1, 0}, {2, 0, 0}, {3, 0, 2}, {2, 1, 1}, {0, 0, 2}},
	})
	require.NoError(t, err)
	assert.True(t, safe)
	assert.Equal(t, []int{1, 3, 0, 2, 4}, sequence)
}

// After process 1 releases its allocation work is [5,3,2], which covers
// neither process 0 (needs [7,4,3]) nor process 2 (needs [6,0,0]).
func TestCheckSafety_ThreeProcessStateIsUnsafe(t *testing.T) {
	safe, sequence, err := CheckSafety(model.ResourceSnapshot{
		Available: []int{3, 3, 2},
		MaxDemand: [][]int{{7, 5, 3}, {3, 2, 2}, {9, 0, 2}},
		Allocated: [][]int{{0, 1, 0}, {2, 0, 0}, {3, 0, 2}},
	})
	require.NoError(t, err)
	assert.False(t, safe)
	assert.Empty(t, sequence)
	assert.NotNil(t, sequence)
}

func TestCheckSafety_ThreeProcessStateWithMoreAvailable(t *testing.T) {
	safe, sequence, err := CheckSafety(model.ResourceSnapshot{
		Available: []int{4, 4, 2},
		MaxDemand: [][]int{{7, 5, 3}, {3, 2, 2}, {9, 0, 2}},
		Allocated: [][]int{{0, 1, 0}, {2, 0, 0}, {3, 0, 2}},
	})
	require.NoError(t, err)
	assert.True(t, safe)
	assert.ElementsMatch(t, []int{0, 1, 2}, sequence)
	assert.Equal(t, []int{1, 2, 0}, sequence)
}

func TestCheckSafety_RestartsScanAfterEachFinish(t *testing.T) {
	// Process 0 only fits once process 1 has released. Continuing the scan
	// from process 2 instead of restarting would yield [1, 2, 0].
	safe, sequence, err := CheckSafety(model.ResourceSnapshot{
		Available: []int{1},
		MaxDemand: [][]int{{2}, {2}, {1}},
		Allocated: [][]int{{0}, {1}, {0}},
	})
	require.NoError(t, err)
	assert.True(t, safe)
	assert.Equal(t, []int{1, 0, 2}, sequence)
}

func TestCheckSafety_NoProcesses(t *testing.T) {
	safe, sequence, err := CheckSafety(model.ResourceSnapshot{Available: []int{1, 2}})
	require.NoError(t, err)
	assert.True(t, safe)
	assert.Empty(t, sequence)
}

func TestCheckSafety_InvalidSnapshots(t *testing.T) {
	tests := []struct {
		name     string
		snapshot model.ResourceSnapshot
	}{
		{"row count mismatch", model.ResourceSnapshot{Available: []int{1}, MaxDemand: [][]int{{1}}, Allocated: [][]int{}}},
		{"column count mismatch", model.ResourceSnapshot{Available: []int{1, 1}, MaxDemand: [][]int{{1}}, Allocated: [][]int{{0}}}},
		{"negative available", model.ResourceSnapshot{Available: []int{-1}, MaxDemand: [][]int{{1}}, Allocated: [][]int{{0}}}},
		{"negative allocation", model.ResourceSnapshot{Available: []int{1}, MaxDemand: [][]int{{1}}, Allocated: [][]int{{-1}}}},
		{"allocation above maximum", model.ResourceSnapshot{Available: []int{1}, MaxDemand: [][]int{{1}}, Allocated: [][]int{{2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, sequence, err := CheckSafety(tt.snapshot)
			assert.False(t, safe)
			assert.Empty(t, sequence)
			assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
		})
	}
}
