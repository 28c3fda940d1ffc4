package sim

// Unit bundles one parallel pipeline instance: its own SFTM producer,
// group-FIFO, and DPM consumer (spec.md §4.6 "Each unit has its own
// SFTM producer, group-FIFO, and DPM consumer"). The DMA engine and
// prefetcher are shared across units and live on the controller.
type Unit struct {
	Index    int
	Producer *SFTMProducer
	FIFO     *BankedGroupFIFO
	Consumer *DPMConsumer

	cycles int64

	occTimeseries []int
}

// NewUnit builds one unit for layer.
func NewUnit(index int, cfg Config, layer LayerSpec, mask *MaskArtifact) *Unit {
	return &Unit{
		Index:    index,
		Producer: NewSFTMProducer(cfg, layer, mask),
		FIFO:     NewBankedGroupFIFO(cfg.FIFO),
		Consumer: NewDPMConsumer(cfg, layer),
	}
}

// Step advances the producer then the consumer, in that order (spec.md
// §5 "producer-then-consumer order; a tile produced in t cannot be
// consumed in t"), and records this cycle's FIFO occupancy.
func (u *Unit) Step(cycle int64, pf *Prefetcher, frameH, frameW int) *TileGroup {
	u.Producer.Step(cycle, u.FIFO, pf, frameH, frameW)
	consumed := u.Consumer.Step(cycle, u.FIFO)
	u.occTimeseries = append(u.occTimeseries, u.FIFO.Occupancy())
	if consumed != nil || u.Producer.QueueLen() > 0 || u.FIFO.Occupancy() > 0 {
		u.cycles = cycle + 1
	}
	return consumed
}

// Idle reports whether the unit has no more work queued, in flight, or
// resident in its FIFO.
func (u *Unit) Idle() bool {
	return u.Producer.QueueLen() == 0 && len(u.Producer.slots) == 0 && u.FIFO.Occupancy() == 0
}

// Cycles returns the last cycle at which this unit did any work, used
// for the per-unit parallelism accounting (spec.md §4.6).
func (u *Unit) Cycles() int64 {
	return u.cycles
}

// OccupancyTimeseries returns the recorded per-cycle FIFO occupancy.
func (u *Unit) OccupancyTimeseries() []int {
	return u.occTimeseries
}
