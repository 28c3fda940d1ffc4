package sim

// sftmSlot tracks one tile occupying SFTM's critical path while it
// computes, plus the input-bank byte reservation it holds until
// completion (spec.md §4.1, §6 INPUT_BUFFER_KB / SFTM_NUM_BANKS).
type sftmSlot struct {
	tile      *TileGroup
	busyUntil int64
	bank      int
	bytes     int64
}

// SFTMProducer is the per-unit sparse-transform producer (spec.md §2.e,
// §4.1). It admits queued tiles into input banks by byte capacity, runs
// the SCU critical-path cost model (mask-driven if a sparse mask was
// loaded, analytic fallback otherwise), credits each finished tile's
// output bytes to the on-chip output buffer or an off-chip write, and
// pushes the tile into the unit's group-FIFO or marks it bypassed.
type SFTMProducer struct {
	cfg       Config
	layer     LayerSpec
	mask      *MaskArtifact
	scuCounts []int64

	queue    []*TileGroup
	slots    []*sftmSlot
	bankUsed []int64

	outputUsed int64

	producedCount       int64
	bypassCount         int64
	maskMacs            int64
	analyticMacs        int64
	sftmCycles          int64
	sftmMemCycles       int64
	bytesWrittenOffchip int64
}

// NewSFTMProducer builds a producer for layer. If mask is non-nil its
// SCU-count vector is computed once here and reused for every tile
// (spec.md §3 "derived once per layer at mask-load time; immutable
// thereafter").
func NewSFTMProducer(cfg Config, layer LayerSpec, mask *MaskArtifact) *SFTMProducer {
	p := &SFTMProducer{
		cfg:      cfg,
		layer:    layer,
		mask:     mask,
		bankUsed: make([]int64, cfg.Memory.NumBanks),
	}
	if mask != nil {
		p.scuCounts = SCUCounts(cfg.Grid, layer.COut, layer.CIn, mask.Coords)
	}
	return p
}

// Enqueue appends a tile awaiting SFTM processing.
func (p *SFTMProducer) Enqueue(tile *TileGroup) {
	p.queue = append(p.queue, tile)
}

// QueueLen reports how many tiles are waiting for a free input bank.
func (p *SFTMProducer) QueueLen() int {
	return len(p.queue)
}

func (p *SFTMProducer) costFor(tile *TileGroup) TileCost {
	if p.mask != nil {
		return MaskTileCost(p.cfg.Grid, p.scuCounts, p.cfg.RowsPerGroup, tile.Cols())
	}
	return AnalyticTileCost(p.cfg.Grid, p.layer, p.cfg.RowsPerGroup, tile.Cols())
}

// bankCapacity is the byte capacity of a single input bank.
func (p *SFTMProducer) bankCapacity() int64 {
	return int64(p.cfg.Memory.InputBufferBytes) / int64(p.cfg.Memory.NumBanks)
}

// tryAllocBank first-fits bytesNeeded into the first bank with enough
// headroom, committing the reservation immediately on success
// (original_source/Sim/vcnpu.py:SFTM.try_alloc_bank).
func (p *SFTMProducer) tryAllocBank(bytesNeeded int64) (int, bool) {
	capacity := p.bankCapacity()
	for i, used := range p.bankUsed {
		if used+bytesNeeded <= capacity {
			p.bankUsed[i] += bytesNeeded
			return i, true
		}
	}
	return 0, false
}

// freeBank releases a prior reservation (original_source/Sim/vcnpu.py:
// SFTM.free_bank).
func (p *SFTMProducer) freeBank(i int, bytesFree int64) {
	p.bankUsed[i] -= bytesFree
	if p.bankUsed[i] < 0 {
		p.bankUsed[i] = 0
	}
}

// creditOutput accounts for a finished tile's output bytes: if the
// on-chip output buffer has room they're credited there, otherwise the
// write spills off-chip and its DRAM cycles are charged to the SFTM_mem
// bucket (original_source/Sim/vcnpu.py:SFTM.process_tile's output-buffer
// tail; spec.md §4.1 "Output buffer").
func (p *SFTMProducer) creditOutput(tile *TileGroup) {
	bytesOut := int64(p.cfg.RowsPerGroup) * int64(tile.Cols()) * int64(p.layer.COut) * int64(p.cfg.ActBytes)
	if p.outputUsed+bytesOut <= int64(p.cfg.Memory.OutputBufferBytes) {
		p.outputUsed += bytesOut
		return
	}
	p.sftmMemCycles += WriteTransferCycles(p.cfg.DRAM, bytesOut)
	p.bytesWrittenOffchip += bytesOut
}

// Step advances admission and completion by one cycle (spec.md §4.6
// "advance its producer"). fifo is this unit's group-FIFO; pf is the
// shared prefetcher used to request the tile's reference region;
// frameH/frameW bound the halo expansion and the pixel-address
// computation for the reference fetch.
func (p *SFTMProducer) Step(cycle int64, fifo *BankedGroupFIFO, pf *Prefetcher, frameH, frameW int) {
	remaining := p.slots[:0]
	for _, s := range p.slots {
		if cycle < s.busyUntil {
			remaining = append(remaining, s)
			continue
		}
		tile := s.tile
		p.freeBank(s.bank, s.bytes)
		tile.SFTMDone = true
		p.producedCount++
		p.sftmCycles += tile.SFTMCycles
		p.creditOutput(tile)

		if !p.cfg.ForceBypass && fifo.CanPush() {
			bank, local := fifo.DestSlot()
			fifo.Push(tile)
			rowStart, rowEnd := referenceRegion(tile.RowStart, tile.RowEnd, frameH, p.cfg.HaloPixels)
			base := linearAddrForPixel(tile.ColStart, rowStart, frameW, p.cfg.ActBytes)
			length := regionBytesForDims(tile.Cols(), rowEnd-rowStart, p.layer.CIn, p.cfg.ActBytes)
			pf.Submit(base, length, DMAReference, tile.GID, [2]int{bank, local})
		} else {
			tile.BypassMode = true
			p.bypassCount++
		}
	}
	p.slots = remaining

	if len(p.queue) == 0 {
		return
	}
	tile := p.queue[0]
	bytesNeeded := int64(p.cfg.RowsPerGroup) * int64(tile.Cols()) * int64(p.layer.CIn) * int64(p.cfg.ActBytes)
	bank, ok := p.tryAllocBank(bytesNeeded)
	if !ok {
		// spec.md §7 "Input-bank allocation failure": no bank has room,
		// the tile stays at the queue head and this unit stalls the cycle.
		return
	}
	p.queue = p.queue[1:]
	tile.MotionReady = true
	cost := p.costFor(tile)
	tile.SFTMCycles = cost.Cycles
	if p.mask != nil {
		p.maskMacs += cost.TotalMacs
	} else {
		p.analyticMacs += cost.TotalMacs
	}
	p.slots = append(p.slots, &sftmSlot{tile: tile, busyUntil: cycle + cost.Cycles, bank: bank, bytes: bytesNeeded})
}

// ProducedCount returns the number of tiles whose SFTM stage has finished.
func (p *SFTMProducer) ProducedCount() int64 { return p.producedCount }

// BypassCount returns the number of tiles routed around the FIFO because
// it was full at push time (spec.md §5 "Backpressure") or because
// Config.ForceBypass is set.
func (p *SFTMProducer) BypassCount() int64 { return p.bypassCount }

// MaskMacs and AnalyticMacs report the separately-tracked MAC totals for
// the two cost branches (spec.md §9 "analytic mapping double-count").
func (p *SFTMProducer) MaskMacs() int64     { return p.maskMacs }
func (p *SFTMProducer) AnalyticMacs() int64 { return p.analyticMacs }

// SFTMCycles returns the cumulative SCU critical-path cost charged
// across every tile this producer has finished (spec.md §6
// "module_cycles.SFTM").
func (p *SFTMProducer) SFTMCycles() int64 { return p.sftmCycles }

// SFTMMemCycles returns the cumulative DRAM-write cycles charged to
// output-buffer overflow (spec.md §6 "module_cycles.SFTM_mem").
func (p *SFTMProducer) SFTMMemCycles() int64 { return p.sftmMemCycles }

// BytesWrittenOffchip returns the cumulative output bytes that spilled
// past the on-chip output buffer (spec.md §6 "bytes_written_offchip").
func (p *SFTMProducer) BytesWrittenOffchip() int64 { return p.bytesWrittenOffchip }
