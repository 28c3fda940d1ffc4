package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnit_Idle_WhenQueueAndFIFOEmpty(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewRFConvLayer("RFConv0", 8, 8)
	u := NewUnit(0, cfg, layer, nil)
	assert.True(t, u.Idle())
}

func TestUnit_Step_ProducerRunsBeforeConsumerEachCycle(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewRFConvLayer("RFConv0", 8, 8)
	u := NewUnit(0, cfg, layer, nil)
	tile := &TileGroup{GID: 0, RowGroupIdx: 0, ColStart: 0, ColEnd: 4}
	u.Producer.Enqueue(tile)

	assert.False(t, u.Idle())
	pf := NewPrefetcher(cfg.Prefetch, cfg.DRAM)
	for cycle := int64(0); cycle < 50 && u.Producer.ProducedCount() == 0; cycle++ {
		u.Step(cycle, pf, 1080, 120)
	}
	assert.Greater(t, u.Producer.ProducedCount(), int64(0))
}

func TestUnit_OccupancyTimeseries_GrowsOneEntryPerStep(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewRFConvLayer("RFConv0", 8, 8)
	u := NewUnit(0, cfg, layer, nil)
	pf := NewPrefetcher(cfg.Prefetch, cfg.DRAM)
	for cycle := int64(0); cycle < 5; cycle++ {
		u.Step(cycle, pf, 1080, 120)
	}
	assert.Len(t, u.OccupancyTimeseries(), 5)
}
