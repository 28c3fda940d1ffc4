package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileGroup_Ready_RequiresBothRegions(t *testing.T) {
	tg := TileGroup{}
	assert.False(t, tg.Ready())
	tg.MotionReady = true
	assert.False(t, tg.Ready())
	tg.ReferenceReady = true
	assert.True(t, tg.Ready())
}

func TestTileGroup_Cols(t *testing.T) {
	tg := TileGroup{ColStart: 4, ColEnd: 12}
	assert.Equal(t, 8, tg.Cols())
}

func TestTileColumns_EvenSplit(t *testing.T) {
	cols := tileColumns(16, 8)
	assert.Len(t, cols, 2)
	assert.Equal(t, 0, cols[0].Start)
	assert.Equal(t, 8, cols[0].End)
	assert.Equal(t, 8, cols[1].Start)
	assert.Equal(t, 16, cols[1].End)
}

func TestTileColumns_LastTileNarrower(t *testing.T) {
	cols := tileColumns(20, 8)
	assert.Len(t, cols, 3)
	assert.Equal(t, 16, cols[2].Start)
	assert.Equal(t, 20, cols[2].End)
}

func TestReferenceRegion_ExpandsRowsByHaloAndClamps(t *testing.T) {
	// Row span [8,16) in a 20-row frame expands to [4,20): the upper
	// bound hits the frame edge and clamps.
	start, end := referenceRegion(8, 16, 20, 4)
	assert.Equal(t, 4, start)
	assert.Equal(t, 20, end)

	// Row span [0,8) expands to [0,12): the lower bound hits the frame
	// edge and clamps, the upper bound does not.
	start, end = referenceRegion(0, 8, 20, 4)
	assert.Equal(t, 0, start)
	assert.Equal(t, 12, end)
}

func TestLinearAddrForPixel_RowMajorOffset(t *testing.T) {
	assert.Equal(t, int64(0), linearAddrForPixel(0, 0, 120, 2))
	assert.Equal(t, int64(2), linearAddrForPixel(1, 0, 120, 2))
	assert.Equal(t, int64(240), linearAddrForPixel(0, 1, 120, 2))
}

// Two row-adjacent tiles' reference regions must meet at the same byte
// address (tile0 rows [0,4), tile1 rows [4,8), no halo): the coalescing
// prefetcher depends on that adjacency to merge them into one request.
func TestLinearAddrForPixel_RowAdjacentTilesMeetAtSameAddress(t *testing.T) {
	frameW, bytesPerSample := 120, 2
	tile0RegionEnd := linearAddrForPixel(0, 4, frameW, bytesPerSample)
	tile1RegionStart := linearAddrForPixel(0, 4, frameW, bytesPerSample)
	assert.Equal(t, tile0RegionEnd, tile1RegionStart)
}

func TestRegionBytesForDims(t *testing.T) {
	assert.Equal(t, int64(8*4*36*2), regionBytesForDims(8, 4, 36, 2))
}
