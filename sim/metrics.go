package sim

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ModuleCycles breaks the total cycle count down by pipeline stage
// (spec.md §6 "module_cycles: {SFTM, SFTM_mem, DPM}").
type ModuleCycles struct {
	SFTM    int64
	SFTMMem int64
	DPM     int64
}

// MacCounts separates the mask-driven and analytic-fallback totals
// rather than folding them together, per spec.md §9's "analytic mapping
// double-count" note: the two branches are not arithmetically
// comparable and must stay visible as distinct fields.
type MacCounts struct {
	Mask     int64
	Analytic int64
	Total    int64
}

// FIFOStats summarizes one unit's group-FIFO occupancy over a run
// (spec.md §6 "fifo stats {max_occ, avg_occ, overflow_count, occ_timeseries}").
type FIFOStats struct {
	MaxOcc        int
	AvgOcc        float64
	OccJitter     float64 // stddev of occupancy across the run
	OverflowCount int64
	OccTimeseries []int
}

// Stats is the simulator's output statistics record (spec.md §6
// "Output statistics record"). Fields are accumulated monotonically
// over a run and never reset (spec.md §5).
type Stats struct {
	Cycles            int64
	ModuleCycles      ModuleCycles
	MacCounts         MacCounts
	BytesReadOffchip  int64
	BytesWrittenOffchip int64
	FIFO              []FIFOStats

	RuntimeS float64

	DMARequests         int64
	PrefetchHits        int64
	PrefetchCoalesced   int64
	DPMStallMotion      int64
	DPMStallReference   int64
	DPMStallCycles      int64
	BypassModeUsed      int64
	UnitCycles          []int64

	// DMASamples is a bounded ring of recently-completed DMA requests,
	// retained for spot-checking the DRAM-latency-floor law (spec.md §8
	// scenario S2) without keeping an unbounded history for a long run —
	// the original's first_byte_samples list grows forever; this does not.
	DMASamples []DMASample

	TerminatedByMaxCycles bool
}

// DMASample records one completed DMA request's timing, grounded on
// original_source/Sim/vcnpuprop.py's first_byte_samples trace.
type DMASample struct {
	Tag        int64
	IssueCycle int64
	DoneCycle  int64
	Kind       DMARequestKind
}

const dmaSampleCap = 256

// RecordDMASample appends sample to the bounded DMA-sample ring,
// dropping the oldest entry once the cap is reached.
func (s *Stats) RecordDMASample(sample DMASample) {
	s.DMASamples = append(s.DMASamples, sample)
	if len(s.DMASamples) > dmaSampleCap {
		s.DMASamples = s.DMASamples[len(s.DMASamples)-dmaSampleCap:]
	}
}

// FIFOStatsFromTimeseries computes max/avg occupancy and wraps the
// overflow counter and raw timeseries into a FIFOStats record, using
// gonum/stat for the mean (spec.md §6 avg_occ).
func FIFOStatsFromTimeseries(timeseries []int, overflowCount int64) FIFOStats {
	if len(timeseries) == 0 {
		return FIFOStats{OverflowCount: overflowCount}
	}
	floats := make([]float64, len(timeseries))
	max := 0
	for i, v := range timeseries {
		floats[i] = float64(v)
		if v > max {
			max = v
		}
	}
	mean := stat.Mean(floats, nil)
	return FIFOStats{
		MaxOcc:        max,
		AvgOcc:        mean,
		OccJitter:     stat.StdDev(floats, nil),
		OverflowCount: overflowCount,
		OccTimeseries: timeseries,
	}
}

// Print renders a human-readable summary of the run to stdout.
func (s *Stats) Print() {
	fmt.Println("=== VCNPU Simulation Stats ===")
	fmt.Printf("cycles               : %d\n", s.Cycles)
	fmt.Printf("module_cycles         : SFTM=%d SFTM_mem=%d DPM=%d\n",
		s.ModuleCycles.SFTM, s.ModuleCycles.SFTMMem, s.ModuleCycles.DPM)
	fmt.Printf("mac_counts            : mask=%d analytic=%d total=%d\n",
		s.MacCounts.Mask, s.MacCounts.Analytic, s.MacCounts.Total)
	fmt.Printf("bytes_read_offchip    : %d\n", s.BytesReadOffchip)
	fmt.Printf("bytes_written_offchip : %d\n", s.BytesWrittenOffchip)
	fmt.Printf("dma_requests          : %d\n", s.DMARequests)
	fmt.Printf("prefetch_hits         : %d\n", s.PrefetchHits)
	fmt.Printf("prefetch_coalesced    : %d\n", s.PrefetchCoalesced)
	fmt.Printf("bypass_mode_used      : %d\n", s.BypassModeUsed)
	fmt.Printf("dpm_stall_motion      : %d\n", s.DPMStallMotion)
	fmt.Printf("dpm_stall_reference   : %d\n", s.DPMStallReference)
	fmt.Printf("runtime_s             : %.4f\n", s.RuntimeS)
	if s.TerminatedByMaxCycles {
		fmt.Println("terminated            : max_cycles reached")
	}
	for i, f := range s.FIFO {
		fmt.Printf("fifo[%d]               : max_occ=%d avg_occ=%.2f jitter=%.2f overflow=%d\n",
			i, f.MaxOcc, f.AvgOcc, f.OccJitter, f.OverflowCount)
	}
}
