package sim

// SCU is one Sparse Compute Unit descriptor: a grid position plus a
// constant multiplier count (spec.md §3). AssignedMults is transient
// per-tile state, reset before each tile.
type SCU struct {
	Row, Col      int
	Multipliers   int
	AssignedMults int64
}

// Cycles returns ceil(AssignedMults / Multipliers), the documented
// per-SCU cycle cost (spec.md §4.1).
func (s SCU) Cycles() int64 {
	if s.AssignedMults <= 0 {
		return 0
	}
	return ceilDiv64(s.AssignedMults, int64(s.Multipliers))
}

func ceilDiv64(a, b int64) int64 {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// TileCost is the result of evaluating one tile's SFTM critical path
// (spec.md §4.1): total pipeline cycles and the total multiply count
// across all SCUs, for MAC accounting.
type TileCost struct {
	Cycles     int64
	TotalMacs  int64
}

// patchCount returns the number of output patches for a rows x cols tile
// (spec.md §4.1: ceil(rows/2) * ceil(cols/2)).
func patchCount(rows, cols int) int64 {
	pr := ceilDiv(rows, 2)
	pc := ceilDiv(cols, 2)
	return int64(pr) * int64(pc)
}

// MaskTileCost computes the per-tile SFTM critical-path cost from a
// precomputed per-layer SCU-count vector (spec.md §4.1 "Per-tile
// multiplication count" + "Tile critical-path cycles"). counts has
// length grid.POF*grid.PIF.
func MaskTileCost(grid GridConfig, counts []int64, rows, cols int) TileCost {
	patches := patchCount(rows, cols)
	var maxCycles int64
	var totalMacs int64
	for _, n := range counts {
		assigned := n * patches
		totalMacs += assigned
		c := ceilDiv64(assigned, int64(grid.SCUMultipliers))
		if c > maxCycles {
			maxCycles = c
		}
	}
	cycles := int64(grid.PretuLatency) + maxCycles + int64(grid.SCUPipelineLatency) + int64(grid.PosttuLatency)
	return TileCost{Cycles: cycles, TotalMacs: totalMacs}
}

// AnalyticTileCost computes the per-tile SFTM cost when no mask has been
// loaded for the layer (spec.md §4.1 "Analytic fallback"). It
// deliberately reproduces the original model's row-block double-count
// rather than "correcting" it toward the mask branch's arithmetic — see
// spec.md §9 "analytic mapping double-count" and DESIGN.md.
func AnalyticTileCost(grid GridConfig, layer LayerSpec, rows, cols int) TileCost {
	patches := patchCount(rows, cols)
	mu2 := int64(layer.Mu * layer.Mu)
	totalMacs := patches * int64(layer.COut) * mu2
	totalMacs = int64(float64(totalMacs) * layer.Rho)

	outPerRow := ceilDiv(layer.COut, grid.POF)
	if outPerRow < 1 {
		outPerRow = 1
	}
	baseMultsPerOut := int64(1)
	if layer.COut > 0 {
		baseMultsPerOut = totalMacs / int64(layer.COut)
		if baseMultsPerOut < 1 {
			baseMultsPerOut = 1
		}
	}

	var maxCycles int64
	for r := 0; r < grid.POF; r++ {
		ocStart := r * outPerRow
		ocEnd := (r + 1) * outPerRow
		if ocEnd > layer.COut {
			ocEnd = layer.COut
		}
		ocCount := ocEnd - ocStart
		if ocCount < 0 {
			ocCount = 0
		}
		assignedPerCol := int64(ocCount) * baseMultsPerOut
		c := ceilDiv64(assignedPerCol, int64(grid.SCUMultipliers))
		if c > maxCycles {
			maxCycles = c
		}
	}
	cycles := int64(grid.PretuLatency) + maxCycles + int64(grid.SCUPipelineLatency) + int64(grid.PosttuLatency)
	return TileCost{Cycles: cycles, TotalMacs: totalMacs}
}
