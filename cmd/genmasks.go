package cmd

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	sim "github.com/vcnpu-sim/vcnpu-sim/sim"
)

// runGenMasks synthesizes one sparse transform-mask artifact per sparse
// (RFConv/RFDeConv) layer in layers, writing "<outdir>/<LayerName>.npz"
// in the format spec.md §6 documents. Weight magnitudes are drawn from
// a standard normal distribution; the top rho-fraction by magnitude is
// kept as the sparse support. The mask generator is an external
// collaborator (spec.md §1 non-goal) — only its output contract binds
// the simulator, so this synthesis need not match any real training
// procedure.
func runGenMasks(layers []sim.LayerSpec, outdir string, seed int64) error {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem(sim.SubsystemMaskGen)
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	for _, layer := range layers {
		if !layer.IsSparse() {
			continue
		}
		if err := writeSyntheticMask(dist, layer, outdir); err != nil {
			return err
		}
	}
	return nil
}

type maskCandidate struct {
	o, i, m0, m1 int32
	magnitude    float64
}

func writeSyntheticMask(dist distuv.Normal, layer sim.LayerSpec, outdir string) error {
	total := layer.COut * layer.CIn * layer.Mu * layer.Mu
	candidates := make([]maskCandidate, 0, total)
	for o := 0; o < layer.COut; o++ {
		for i := 0; i < layer.CIn; i++ {
			for m0 := 0; m0 < layer.Mu; m0++ {
				for m1 := 0; m1 < layer.Mu; m1++ {
					v := dist.Rand()
					candidates = append(candidates, maskCandidate{int32(o), int32(i), int32(m0), int32(m1), math.Abs(v)})
				}
			}
		}
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].magnitude > candidates[b].magnitude })

	keep := int(float64(total) * layer.Rho)
	if keep > len(candidates) {
		keep = len(candidates)
	}
	kept := candidates[:keep]

	coords := make([][4]int32, keep)
	values := make([]float32, keep)
	for idx, c := range kept {
		coords[idx] = [4]int32{c.o, c.i, c.m0, c.m1}
		values[idx] = float32(c.magnitude)
	}

	artifact := sim.MaskArtifact{
		Shape:        [4]int32{int32(layer.COut), int32(layer.CIn), int32(layer.Mu), int32(layer.Mu)},
		Coords:       coords,
		Values:       values,
		MaskFraction: float32(keep) / float32(total),
	}
	if err := sim.WriteMaskArtifact(outdir, layer.Name, artifact); err != nil {
		return fmt.Errorf("writing mask for layer %q: %w", layer.Name, err)
	}
	logrus.WithFields(logrus.Fields{
		"layer":         layer.Name,
		"nnz":           keep,
		"mask_fraction": artifact.MaskFraction,
	}).Info("wrote mask artifact")
	return nil
}
