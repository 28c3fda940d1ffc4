// Package sim provides the cycle-approximate VCNPU hardware simulation
// engine: the SCU grid and SFTM cost model, the banked group-FIFO, the
// DMA engine and split prefetcher, the deformable-conv consumer, and
// the frame controller that drives one global step loop across
// parallel units.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - layer.go: Layer spec and the Conv/RFConv/RFDeConv/DfConv tagged variant
//   - scu.go: SCU grid, per-tile critical-path cost model, analytic fallback
//   - controller.go: Frame partitioning, round-robin dispatch, the global step loop
//
// # Architecture
//
// Each parallel unit (unit.go) owns an SFTM producer (sftm.go), a
// banked group-FIFO (fifo.go), and a DPM consumer (dpm.go). The DMA
// engine (dma.go) and prefetcher (prefetch.go) are shared across units
// and live on the controller. Sparse mask artifacts are loaded once per
// layer (mask.go, npy.go) and reduced to a per-layer SCU-count vector.
//
// # Key Types
//
//   - SCU / TileCost: the per-SCU multiplier grid and its cost model
//   - TileGroup: one dispatchable row-group x column-tile slice
//   - BankedGroupFIFO: fixed-capacity queue with bank/slot bookkeeping, no compaction
//   - DMAEngine / Prefetcher: the shared DRAM request path
//   - Stats: the monotonically-accumulated output statistics record
package sim
