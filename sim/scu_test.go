package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSCU_Cycles_CeilsAssignedMultsOverMultipliers(t *testing.T) {
	s := SCU{Multipliers: 18, AssignedMults: 37}
	assert.Equal(t, int64(3), s.Cycles())
}

func TestSCU_Cycles_ZeroWhenNoWork(t *testing.T) {
	s := SCU{Multipliers: 18, AssignedMults: 0}
	assert.Equal(t, int64(0), s.Cycles())
}

func TestPatchCount_RoundsUpHalfTiles(t *testing.T) {
	assert.Equal(t, int64(16), patchCount(8, 8))
	assert.Equal(t, int64(9), patchCount(5, 5))
}

func TestMaskTileCost_AddsLatenciesAroundBusiestSCU(t *testing.T) {
	grid := NewGridConfig()
	counts := make([]int64, grid.POF*grid.PIF)
	counts[0] = 100
	got := MaskTileCost(grid, counts, 8, 8)
	patches := patchCount(8, 8)
	wantMax := ceilDiv64(100*patches, int64(grid.SCUMultipliers))
	wantCycles := int64(grid.PretuLatency) + wantMax + int64(grid.SCUPipelineLatency) + int64(grid.PosttuLatency)
	assert.Equal(t, wantCycles, got.Cycles)
	assert.Equal(t, 100*patches, got.TotalMacs)
}

func TestMaskTileCost_EmptyCountsStillChargesFixedLatency(t *testing.T) {
	grid := NewGridConfig()
	counts := make([]int64, grid.POF*grid.PIF)
	got := MaskTileCost(grid, counts, 4, 4)
	want := int64(grid.PretuLatency) + int64(grid.SCUPipelineLatency) + int64(grid.PosttuLatency)
	assert.Equal(t, want, got.Cycles)
	assert.Equal(t, int64(0), got.TotalMacs)
}

func TestAnalyticTileCost_ScalesWithRho(t *testing.T) {
	grid := NewGridConfig()
	sparse := NewRFConvLayer("RFConv0", 36, 36)
	dense := sparse
	dense.Rho = 1.0

	sparseCost := AnalyticTileCost(grid, sparse, 8, 8)
	denseCost := AnalyticTileCost(grid, dense, 8, 8)

	assert.Greater(t, denseCost.Cycles, int64(0))
	assert.Greater(t, sparseCost.Cycles, int64(0))
	assert.Greater(t, denseCost.TotalMacs, sparseCost.TotalMacs)
}

func TestAnalyticTileCost_NeverPanicsOnSmallChannelCounts(t *testing.T) {
	grid := NewGridConfig()
	l := NewConvLayer("tiny", 1, 1, 1)
	assert.NotPanics(t, func() {
		AnalyticTileCost(grid, l, 1, 1)
	})
}
