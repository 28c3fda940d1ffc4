package sim

// Config collects every named constant of the VCNPU hardware model
// (spec.md §6's configuration surface table). Values below are the
// documented defaults; callers override individual sub-configs via the
// NewXConfig constructors before building a Controller.
type Config struct {
	ClockFreqHz float64 // for fps/throughput reporting only

	Grid     GridConfig
	Memory   MemoryConfig
	DRAM     DRAMConfig
	Prefetch PrefetchConfig
	FIFO     FIFOConfig

	RowsPerGroup              int // row-tile height
	DefaultTileInputRows      int
	ActBytes                  int
	WeightBytes               int
	DfConvInterpCostPerSample int
	DfConvPECount             int
	HaloPixels                int // reference-region expansion; see SPEC_FULL.md §12.4

	// TileColumnsOverride, when > 0, bypasses the tileSizing halving
	// search (spec.md §4.6) and uses this column width directly — the
	// CLI's --tile-columns flag.
	TileColumnsOverride int

	// ForceBypass marks every finished tile as bypassed regardless of FIFO
	// occupancy — the CLI's --bypass-mode flag. A bypassed tile is counted
	// but never pushed into the FIFO or consumed, and no DRAM traffic or
	// cycles are charged for it.
	ForceBypass bool
}

// GridConfig describes the SCU grid and per-SCU pipeline timing.
type GridConfig struct {
	POF                int // output-channel rows
	PIF                int // input-channel columns
	SCUMultipliers     int // M, multipliers per SCU
	PretuLatency       int
	PosttuLatency      int
	SCUPipelineLatency int
}

// NewGridConfig returns the documented default 4x12 SCU grid configuration.
func NewGridConfig() GridConfig {
	return GridConfig{
		POF:                4,
		PIF:                12,
		SCUMultipliers:     18,
		PretuLatency:       4,
		PosttuLatency:      4,
		SCUPipelineLatency: 2,
	}
}

// MemoryConfig describes the per-core SFTM input/output buffers.
type MemoryConfig struct {
	InputBufferBytes  int
	OutputBufferBytes int
	NumBanks          int
}

// NewMemoryConfig returns the documented default 32KB/32KB, 4-bank SFTM buffer configuration.
func NewMemoryConfig() MemoryConfig {
	return MemoryConfig{
		InputBufferBytes:  32 * 1024,
		OutputBufferBytes: 32 * 1024,
		NumBanks:          4,
	}
}

// DRAMConfig describes the fixed-latency, fixed-bandwidth external memory model.
type DRAMConfig struct {
	LatencyCycles   int64
	BWBytesPerCycle float64
	AlignmentBytes  int64
}

// NewDRAMConfig returns the documented default DRAM timing model.
func NewDRAMConfig() DRAMConfig {
	return DRAMConfig{
		LatencyCycles:   800,
		BWBytesPerCycle: 1024,
		AlignmentBytes:  4096,
	}
}

// PrefetchConfig describes the split prefetcher's capacity and coalescing limits.
type PrefetchConfig struct {
	MaxOutstanding int
	TableEntries   int
	CoalesceBytes  int64
}

// NewPrefetchConfig returns the documented default prefetcher limits.
func NewPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		MaxOutstanding: 8,
		TableEntries:   64,
		CoalesceBytes:  16 * 1024,
	}
}

// FIFOConfig describes the banked group-FIFO shape.
type FIFOConfig struct {
	Banks             int
	GroupSlotsPerBank int
}

// NewFIFOConfig returns the documented default FIFO shape (4 banks x 2 slots = depth 8).
func NewFIFOConfig() FIFOConfig {
	return FIFOConfig{
		Banks:             4,
		GroupSlotsPerBank: 2,
	}
}

// NewDefaultConfig returns a Config populated entirely from documented defaults.
func NewDefaultConfig() Config {
	return Config{
		ClockFreqHz:               4e8,
		Grid:                      NewGridConfig(),
		Memory:                    NewMemoryConfig(),
		DRAM:                      NewDRAMConfig(),
		Prefetch:                  NewPrefetchConfig(),
		FIFO:                      NewFIFOConfig(),
		RowsPerGroup:              4,
		DefaultTileInputRows:      8,
		ActBytes:                  2,
		WeightBytes:               2,
		DfConvInterpCostPerSample: 2,
		DfConvPECount:             64,
		HaloPixels:                4,
	}
}
