package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDPMConsumer_StallsWhenReadinessMissing(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewDfConvLayer("DfConv0", 36, 36, 3)
	c := NewDPMConsumer(cfg, layer)
	fifo := NewBankedGroupFIFO(cfg.FIFO)
	fifo.Push(&TileGroup{GID: 1, RowGroupIdx: 0, ColStart: 0, ColEnd: 8})

	got := c.Step(0, fifo)
	assert.Nil(t, got)
	assert.Equal(t, int64(1), c.StallMotion())
	assert.Equal(t, int64(1), c.StallReference())
}

func TestDPMConsumer_PopsOnceBothReadinessBitsSet(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewDfConvLayer("DfConv0", 36, 36, 3)
	c := NewDPMConsumer(cfg, layer)
	fifo := NewBankedGroupFIFO(cfg.FIFO)
	tile := &TileGroup{GID: 1, RowGroupIdx: 0, ColStart: 0, ColEnd: 8, MotionReady: true, ReferenceReady: true}
	fifo.Push(tile)

	got := c.Step(0, fifo)
	assert.Same(t, tile, got)
	assert.Equal(t, int64(1), c.ConsumedCount())
	assert.Greater(t, c.DPMCycles(), int64(0))
}

func TestDPMConsumer_RespectsBusyUntilBeforeNextPop(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewDfConvLayer("DfConv0", 36, 36, 3)
	c := NewDPMConsumer(cfg, layer)
	fifo := NewBankedGroupFIFO(cfg.FIFO)
	t1 := &TileGroup{GID: 1, RowGroupIdx: 0, ColStart: 0, ColEnd: 8, MotionReady: true, ReferenceReady: true}
	t2 := &TileGroup{GID: 2, RowGroupIdx: 1, ColStart: 0, ColEnd: 8, MotionReady: true, ReferenceReady: true}
	fifo.Push(t1)
	fifo.Push(t2)

	c.Step(0, fifo)
	assert.Nil(t, c.Step(1, fifo))
	assert.Equal(t, int64(1), c.ConsumedCount())
}

// A stalled head must block the whole queue: a later-arrived tile that
// happens to already be ready must NOT be consumed ahead of an earlier,
// not-yet-ready head (spec.md §4.5 "head", §5/§8 ordering law).
func TestDPMConsumer_HeadStallBlocksLaterReadyTile(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewDfConvLayer("DfConv0", 36, 36, 3)
	c := NewDPMConsumer(cfg, layer)
	fifo := NewBankedGroupFIFO(cfg.FIFO)
	notReady := &TileGroup{GID: 1, ColStart: 0, ColEnd: 8}
	ready := &TileGroup{GID: 2, ColStart: 0, ColEnd: 8, MotionReady: true, ReferenceReady: true}
	fifo.Push(notReady)
	fifo.Push(ready)

	got := c.Step(0, fifo)
	assert.Nil(t, got)
	assert.Equal(t, int64(0), c.ConsumedCount())
	assert.Equal(t, 2, fifo.Occupancy())

	head, _ := fifo.Peek()
	assert.Same(t, notReady, head)
}

func TestDPMConsumer_DpmCost_MatchesDocumentedFormula(t *testing.T) {
	cfg := NewDefaultConfig()
	layer := NewDfConvLayer("DfConv0", 36, 36, 3)
	c := NewDPMConsumer(cfg, layer)

	cycles, macs := c.dpmCost(8)
	outPixels := int64(cfg.RowsPerGroup) * 8
	wantMacs := outPixels * int64(layer.COut) * 9 * int64(layer.CIn) / 4
	wantCycles := outPixels*int64(cfg.DfConvInterpCostPerSample) + ceilDiv64(wantMacs, int64(cfg.DfConvPECount))
	assert.Equal(t, wantMacs, macs)
	assert.Equal(t, wantCycles, cycles)
}

func TestDirectQueue_PushPopInOrder(t *testing.T) {
	var q directQueue
	t1 := &TileGroup{GID: 1}
	t2 := &TileGroup{GID: 2}
	q.Push(t1)
	q.Push(t2)
	assert.Equal(t, 2, q.Len())

	got, ok := q.Pop()
	assert.True(t, ok)
	assert.Same(t, t1, got)
	got, ok = q.Pop()
	assert.True(t, ok)
	assert.Same(t, t2, got)
	assert.Equal(t, 0, q.Len())
}
