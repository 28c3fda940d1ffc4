package sim

import "sort"

// DMARequestKind distinguishes the two traffic classes issued against
// DRAM (spec.md §3 "Prefetch table entry").
type DMARequestKind int

const (
	DMAMotion DMARequestKind = iota
	DMAReference
)

// DMARequest is one in-flight or completed DRAM transfer (spec.md §3).
type DMARequest struct {
	Tag        int64
	Base       int64
	Length     int64
	Kind       DMARequestKind
	IssueCycle int64
	DoneCycle  int64
}

// DMAEngine is a single in-order issue queue with a per-request
// in-flight map (spec.md §4.3). Completion is deterministic: ordered by
// DoneCycle, ties broken by Tag (insertion order).
type DMAEngine struct {
	cfg DRAMConfig

	nextTag   int64
	inFlight  map[int64]*DMARequest
	completed []*DMARequest

	bytesTransferred int64
	requestCount     int64
}

// NewDMAEngine builds an empty engine against cfg.
func NewDMAEngine(cfg DRAMConfig) *DMAEngine {
	return &DMAEngine{cfg: cfg, inFlight: make(map[int64]*DMARequest)}
}

// Issue captures the current cycle and computes the completion cycle
// per spec.md §4.3: done_cycle = cycle + DRAM_LATENCY + max(1, ceil(length/bw)).
func (d *DMAEngine) Issue(cycle int64, base, length int64, kind DMARequestKind) *DMARequest {
	xfer := ceilDiv64(length, int64(d.cfg.BWBytesPerCycle))
	if xfer < 1 {
		xfer = 1
	}
	req := &DMARequest{
		Tag:        d.nextTag,
		Base:       base,
		Length:     length,
		Kind:       kind,
		IssueCycle: cycle,
		DoneCycle:  cycle + d.cfg.LatencyCycles + xfer,
	}
	d.nextTag++
	d.inFlight[req.Tag] = req
	d.bytesTransferred += length
	d.requestCount++
	return req
}

// Step advances the engine to cycle, moving every request whose
// DoneCycle <= cycle from the in-flight map into the completed list,
// ordered by (DoneCycle, Tag).
func (d *DMAEngine) Step(cycle int64) {
	var done []*DMARequest
	for tag, req := range d.inFlight {
		if req.DoneCycle <= cycle {
			done = append(done, req)
			delete(d.inFlight, tag)
		}
	}
	sort.Slice(done, func(i, j int) bool {
		if done[i].DoneCycle != done[j].DoneCycle {
			return done[i].DoneCycle < done[j].DoneCycle
		}
		return done[i].Tag < done[j].Tag
	})
	d.completed = append(d.completed, done...)
}

// CollectCompleted drains and returns the completion list accumulated
// since the last call.
func (d *DMAEngine) CollectCompleted() []*DMARequest {
	out := d.completed
	d.completed = nil
	return out
}

// OutstandingCount returns the size of the in-flight map.
func (d *DMAEngine) OutstandingCount() int {
	return len(d.inFlight)
}

// BytesTransferred returns the cumulative length of every issued request
// (spec.md §8 "Σ dma_bytes = Σ length of all issued DMA requests").
func (d *DMAEngine) BytesTransferred() int64 {
	return d.bytesTransferred
}

// RequestCount returns the cumulative number of issued requests.
func (d *DMAEngine) RequestCount() int64 {
	return d.requestCount
}

// WriteTransferCycles costs an off-chip write of length bytes against
// cfg's latency/bandwidth model, using the same formula as a read
// Issue (spec.md §4.1 "Output buffer": an SFTM output tile that overflows
// the on-chip output buffer pays a DRAM write, charged to SFTM_mem
// rather than tracked as an in-flight request, since nothing downstream
// waits on its completion).
func WriteTransferCycles(cfg DRAMConfig, length int64) int64 {
	xfer := ceilDiv64(length, int64(cfg.BWBytesPerCycle))
	if xfer < 1 {
		xfer = 1
	}
	return cfg.LatencyCycles + xfer
}
