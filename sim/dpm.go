package sim

// tileSource is anything the DPM consumer can pop a ready head from: the
// banked group-FIFO (RFConv/RFDeConv/Conv path) or the plain directQueue
// that DfConv tiles use to bypass SFTM and the FIFO's bank addressing
// entirely (spec.md §4.5, §9; original_source/Sim/vcnpu.py Controller.
// start_frame routes DfConv straight to its own deque).
type tileSource interface {
	Peek() (*TileGroup, bool)
	Pop() (*TileGroup, bool)
}

// directQueue is a plain FIFO with no bank/slot bookkeeping, used only by
// DfConv layers (original_source/Sim/vcnpu.py:DfConvModule.queue).
type directQueue struct {
	items []*TileGroup
}

func (q *directQueue) Push(t *TileGroup) { q.items = append(q.items, t) }

func (q *directQueue) Peek() (*TileGroup, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

func (q *directQueue) Pop() (*TileGroup, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

func (q *directQueue) Len() int { return len(q.items) }

// DPMConsumer is the per-unit deformable-conv consumer (spec.md §2.f,
// §4.5). It paces consumption with next_consume/busy_until cycles and
// only pops the queue head once both its readiness bits are set.
type DPMConsumer struct {
	cfg   Config
	layer LayerSpec

	nextConsume int64
	busyUntil   int64

	consumedCount  int64
	stallMotion    int64
	stallReference int64
	macs           int64
	dpmCycles      int64
}

// NewDPMConsumer builds a consumer for layer.
func NewDPMConsumer(cfg Config, layer LayerSpec) *DPMConsumer {
	return &DPMConsumer{cfg: cfg, layer: layer}
}

// dpmCost computes the fixed-formula interpolation+MAC cost for a tile
// of tileCols columns (spec.md §4.5).
func (c *DPMConsumer) dpmCost(tileCols int) (cycles, macs int64) {
	outPixels := int64(c.cfg.RowsPerGroup) * int64(tileCols)
	interpCycles := outPixels * int64(c.cfg.DfConvInterpCostPerSample)
	m := outPixels * int64(c.layer.COut) * 9 * int64(c.layer.CIn) / 4
	macCycles := ceilDiv64(m, int64(c.cfg.DfConvPECount))
	return interpCycles + macCycles, m
}

// Step attempts to pop the queue head once per cycle, strictly in
// arrival order: if the head isn't ready it stalls (incrementing the
// relevant counter) and returns, never scanning past it to a
// later-arrived tile (spec.md §4.5 "Only pops when ... head.motion_ready
// ∧ head.reference_ready"; singular head). Returns the consumed tile, or
// nil if nothing was popped this cycle.
func (c *DPMConsumer) Step(cycle int64, q tileSource) *TileGroup {
	if cycle < c.nextConsume || cycle < c.busyUntil {
		return nil
	}
	head, ok := q.Peek()
	if !ok {
		return nil
	}
	if !head.MotionReady || !head.ReferenceReady {
		if !head.MotionReady {
			c.stallMotion++
		}
		if !head.ReferenceReady {
			c.stallReference++
		}
		return nil
	}
	popped, _ := q.Pop()
	cycles, macs := c.dpmCost(popped.Cols())
	c.macs += macs
	c.dpmCycles += cycles
	c.nextConsume = cycle + 1
	c.busyUntil = cycle + cycles
	c.consumedCount++
	return popped
}

// ConsumedCount returns the number of tiles this consumer has popped.
func (c *DPMConsumer) ConsumedCount() int64 { return c.consumedCount }

// StallMotion and StallReference report cycles where a pop was
// attempted but blocked on the respective readiness bit.
func (c *DPMConsumer) StallMotion() int64    { return c.stallMotion }
func (c *DPMConsumer) StallReference() int64 { return c.stallReference }

// Macs returns the cumulative deformable-conv MAC count.
func (c *DPMConsumer) Macs() int64 { return c.macs }

// DPMCycles returns the cumulative dpm_cycles charged across all consumed tiles.
func (c *DPMConsumer) DPMCycles() int64 { return c.dpmCycles }
