package sim

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Controller is the frame controller (spec.md §2.g, §4.6): it
// partitions a frame into row-group x column tiles, dispatches them
// round-robin across parallel units, and drives the single global step
// loop. The DMA engine and prefetcher are shared across every unit and
// every layer processed in a run.
type Controller struct {
	cfg      Config
	maskDir  string
	frameH   int
	frameW   int
	numUnits int

	dma *DMAEngine
	pf  *Prefetcher

	tiles   map[int64]*TileGroup
	nextGID int64

	cycle int64
	stats Stats
}

// NewController builds a controller for a frameH x frameW frame,
// dispatching across numUnits parallel units. maskDir is where RF-layer
// sparse mask artifacts are looked up (spec.md §6).
func NewController(cfg Config, frameH, frameW, numUnits int, maskDir string) *Controller {
	return &Controller{
		cfg:      cfg,
		maskDir:  maskDir,
		frameH:   frameH,
		frameW:   frameW,
		numUnits: numUnits,
		dma:      NewDMAEngine(cfg.DRAM),
		pf:       NewPrefetcher(cfg.Prefetch, cfg.DRAM),
		tiles:    make(map[int64]*TileGroup),
	}
}

// tileSizing computes the row-group height and column tile width for a
// layer's frame (spec.md §4.6 "Tile sizing"): start from
// DEFAULT_TILE_INPUT_ROWS, repeatedly halve until at least one column
// fits in a bank.
func tileSizing(cfg Config, frameH, channels int) (rowsPerGroup, tileCols int) {
	rows := cfg.DefaultTileInputRows
	if frameH < rows {
		rows = frameH
	}
	if rows < 1 {
		rows = 1
	}
	if cfg.TileColumnsOverride > 0 {
		return rows, cfg.TileColumnsOverride
	}
	bankCapacity := cfg.Memory.InputBufferBytes / cfg.Memory.NumBanks
	for {
		tileCols = bankCapacity / (rows * channels * cfg.ActBytes)
		if tileCols >= 1 || rows <= 1 {
			break
		}
		rows /= 2
	}
	if tileCols < 1 {
		tileCols = 1
	}
	return rows, tileCols
}

// buildTiles partitions the controller's frame into row-group x
// column tiles, row-group by row-group, columns inside (spec.md §4.6
// "Dispatch"), assigning each a monotonically increasing gid.
func (c *Controller) buildTiles(rowsPerGroup, tileCols int) []*TileGroup {
	rowGroups := tileColumns(c.frameH, rowsPerGroup)
	colTiles := tileColumns(c.frameW, tileCols)

	tiles := make([]*TileGroup, 0, len(rowGroups)*len(colTiles))
	for rgIdx, rg := range rowGroups {
		for ctIdx, ct := range colTiles {
			t := &TileGroup{
				GID:         c.nextGID,
				RowGroupIdx: rgIdx,
				RowStart:    rg.Start,
				RowEnd:      rg.End,
				ColTileIdx:  ctIdx,
				ColStart:    ct.Start,
				ColEnd:      ct.End,
			}
			c.nextGID++
			c.tiles[t.GID] = t
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// RunLayer runs one layer's tiles to completion (or until the shared
// cycle counter reaches maxCycles), accumulating into the controller's
// Stats. channels is the layer's input feature width used for tile
// sizing.
func (c *Controller) RunLayer(layer LayerSpec, channels int, maxCycles int64) {
	if layer.SkipsSFTM() {
		c.runDfConvLayer(layer, channels, maxCycles)
		return
	}

	var mask *MaskArtifact
	if layer.IsSparse() {
		m, err := LoadMaskArtifact(c.maskDir, layer.Name)
		if err != nil {
			// spec.md §7: missing/corrupt mask file is recoverable —
			// warn and fall through to the analytic cost model.
			logrus.WithError(err).WithField("layer", layer.Name).
				Warn("mask unavailable, using analytic fallback")
		} else {
			mask = m
		}
	}

	rowsPerGroup, tileCols := tileSizing(c.cfg, c.frameH, channels)
	runCfg := c.cfg
	runCfg.RowsPerGroup = rowsPerGroup

	tiles := c.buildTiles(rowsPerGroup, tileCols)
	groupsTotal := int64(len(tiles))

	units := make([]*Unit, c.numUnits)
	for i := range units {
		units[i] = NewUnit(i, runCfg, layer, mask)
	}
	for i, t := range tiles {
		units[i%c.numUnits].Producer.Enqueue(t)
	}

	var groupsConsumed int64
	for {
		if groupsConsumed >= groupsTotal {
			break
		}
		if c.cycle >= maxCycles {
			c.stats.TerminatedByMaxCycles = true
			break
		}

		allIdle := true
		for _, u := range units {
			if consumed := u.Step(c.cycle, c.pf, c.frameH, c.frameW); consumed != nil {
				groupsConsumed++
			}
			if !u.Idle() {
				allIdle = false
			}
		}

		completions := c.pf.Step(c.cycle, c.dma)
		for _, comp := range completions {
			c.stats.RecordDMASample(DMASample{
				Tag:        comp.Request.Tag,
				IssueCycle: comp.Request.IssueCycle,
				DoneCycle:  comp.Request.DoneCycle,
				Kind:       comp.Kind,
			})
			if comp.Kind != DMAReference {
				continue
			}
			for _, gid := range comp.LinkedTiles {
				if tile, ok := c.tiles[gid]; ok {
					tile.ReferenceReady = true
				}
			}
		}

		c.cycle++
		if allIdle {
			// No work remains for this layer: the rest of groupsTotal,
			// if any, was lost to bypass (spec.md §9 "bypass accounting"
			// — under-production at termination is legitimate).
			break
		}
	}

	var maxUnitCycles int64
	for _, u := range units {
		if u.Cycles() > maxUnitCycles {
			maxUnitCycles = u.Cycles()
		}
		c.stats.UnitCycles = append(c.stats.UnitCycles, u.Cycles())
		c.stats.BypassModeUsed += u.Producer.BypassCount()
		c.stats.DPMStallMotion += u.Consumer.StallMotion()
		c.stats.DPMStallReference += u.Consumer.StallReference()
		c.stats.ModuleCycles.DPM += u.Consumer.DPMCycles()
		c.stats.ModuleCycles.SFTM += u.Producer.SFTMCycles()
		c.stats.ModuleCycles.SFTMMem += u.Producer.SFTMMemCycles()
		c.stats.BytesWrittenOffchip += u.Producer.BytesWrittenOffchip()
		c.stats.MacCounts.Mask += u.Producer.MaskMacs()
		c.stats.MacCounts.Analytic += u.Producer.AnalyticMacs()
		c.stats.MacCounts.Total += u.Producer.MaskMacs() + u.Producer.AnalyticMacs() + u.Consumer.Macs()
		c.stats.FIFO = append(c.stats.FIFO, FIFOStatsFromTimeseries(u.OccupancyTimeseries(), u.FIFO.OverflowCount()))
	}
	// Parallelism accounting: cycles is max across per-unit counters
	// (spec.md §4.6), carried forward across layers within the run.
	if maxUnitCycles > c.stats.Cycles {
		c.stats.Cycles = maxUnitCycles
	}
}

// runDfConvLayer drives a DfConv layer's tiles straight into a per-unit
// DPM consumer, bypassing the SFTM cost model and the banked group-FIFO's
// bank addressing entirely: deformable-conv tiles need no reference
// fetch, so there is nothing for SFTM to cost or the FIFO to address
// (original_source/Sim/vcnpu.py Controller.start_frame routes DfConv
// straight onto its own deque rather than the SFTM core's queue).
func (c *Controller) runDfConvLayer(layer LayerSpec, channels int, maxCycles int64) {
	rowsPerGroup, tileCols := tileSizing(c.cfg, c.frameH, channels)
	runCfg := c.cfg
	runCfg.RowsPerGroup = rowsPerGroup

	tiles := c.buildTiles(rowsPerGroup, tileCols)
	groupsTotal := int64(len(tiles))

	queues := make([]*directQueue, c.numUnits)
	consumers := make([]*DPMConsumer, c.numUnits)
	for i := range queues {
		queues[i] = &directQueue{}
		consumers[i] = NewDPMConsumer(runCfg, layer)
	}
	for i, t := range tiles {
		// DfConv has no motion/reference fetch to wait on: both
		// readiness bits are set at dispatch time.
		t.MotionReady = true
		t.ReferenceReady = true
		queues[i%c.numUnits].Push(t)
	}

	unitCycles := make([]int64, c.numUnits)
	var groupsConsumed int64
	for {
		if groupsConsumed >= groupsTotal {
			break
		}
		if c.cycle >= maxCycles {
			c.stats.TerminatedByMaxCycles = true
			break
		}

		allIdle := true
		for i := range queues {
			consumed := consumers[i].Step(c.cycle, queues[i])
			if consumed != nil {
				groupsConsumed++
			}
			if consumed != nil || queues[i].Len() > 0 {
				unitCycles[i] = c.cycle + 1
				allIdle = false
			}
		}

		c.cycle++
		if allIdle {
			break
		}
	}

	var maxUnitCycles int64
	for i, consumer := range consumers {
		if unitCycles[i] > maxUnitCycles {
			maxUnitCycles = unitCycles[i]
		}
		c.stats.UnitCycles = append(c.stats.UnitCycles, unitCycles[i])
		c.stats.DPMStallMotion += consumer.StallMotion()
		c.stats.DPMStallReference += consumer.StallReference()
		c.stats.ModuleCycles.DPM += consumer.DPMCycles()
		c.stats.MacCounts.Total += consumer.Macs()
	}
	if maxUnitCycles > c.stats.Cycles {
		c.stats.Cycles = maxUnitCycles
	}
}

// Run processes every layer in sequence against the shared DMA engine
// and prefetcher, then finalizes the statistics record.
func (c *Controller) Run(layers []LayerSpec, channels int, maxCycles int64) *Stats {
	start := time.Now()
	for _, layer := range layers {
		c.RunLayer(layer, channels, maxCycles)
	}
	c.stats.BytesReadOffchip = c.dma.BytesTransferred()
	c.stats.DMARequests = c.dma.RequestCount()
	c.stats.PrefetchHits = c.pf.Hits()
	c.stats.PrefetchCoalesced = c.pf.Coalesced()
	c.stats.RuntimeS = time.Since(start).Seconds()
	return &c.stats
}
