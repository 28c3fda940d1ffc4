package sim

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaskArtifact is one sparse transform-mask artifact (spec.md §6): a
// 4-D shape (C_out, C_in, µ, µ) plus the coordinates of its nonzero
// entries. Immutable after load.
type MaskArtifact struct {
	Shape        [4]int32
	Coords       [][4]int32 // (o, i, m0, m1) per nonzero
	Values       []float32  // optional; retained but never consumed arithmetically
	MaskFraction float32
}

// NonzeroCount returns |coords|, used by the Σ scu_counts[k] = |coords| invariant (spec.md §8).
func (m MaskArtifact) NonzeroCount() int {
	return len(m.Coords)
}

// LoadMaskArtifact reads "<dir>/<layerName>.npz" in the format documented
// in spec.md §6. A missing or corrupt file is reported as an error; the
// caller (Controller.RunLayer in sim/controller.go) downgrades this to a warning and the analytic
// fallback (spec.md §7 error-handling table) rather than treating it as fatal.
func LoadMaskArtifact(dir, layerName string) (*MaskArtifact, error) {
	path := filepath.Join(dir, layerName+".npz")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mask file for layer %q: %w", layerName, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat mask file %q: %w", path, err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("mask file %q is not a valid npz archive: %w", path, err)
	}

	shapeVals, err := readInt32Member(zr, "shape")
	if err != nil {
		return nil, fmt.Errorf("mask file %q: %w", path, err)
	}
	if len(shapeVals) != 4 {
		return nil, fmt.Errorf("mask file %q: shape must have 4 dims, got %d", path, len(shapeVals))
	}

	idx0, err := readInt32Member(zr, "idx0")
	if err != nil {
		return nil, fmt.Errorf("mask file %q: %w", path, err)
	}
	idx1, err := readInt32Member(zr, "idx1")
	if err != nil {
		return nil, fmt.Errorf("mask file %q: %w", path, err)
	}
	idx2, err := readInt32Member(zr, "idx2")
	if err != nil {
		return nil, fmt.Errorf("mask file %q: %w", path, err)
	}
	idx3, err := readInt32Member(zr, "idx3")
	if err != nil {
		return nil, fmt.Errorf("mask file %q: %w", path, err)
	}
	n := len(idx0)
	if len(idx1) != n || len(idx2) != n || len(idx3) != n {
		return nil, fmt.Errorf("mask file %q: idx0..idx3 length mismatch", path)
	}

	var values []float32
	if _, _, _, err := npzMember(zr, "values"); err == nil {
		values, err = readFloat32Member(zr, "values")
		if err != nil {
			return nil, fmt.Errorf("mask file %q: %w", path, err)
		}
	}

	maskFracArr, err := readFloat32Member(zr, "mask_fraction")
	var maskFraction float32
	if err == nil && len(maskFracArr) > 0 {
		maskFraction = maskFracArr[0]
	} else {
		total := int64(shapeVals[0]) * int64(shapeVals[1]) * int64(shapeVals[2]) * int64(shapeVals[3])
		if total > 0 {
			maskFraction = float32(n) / float32(total)
		}
	}

	coords := make([][4]int32, n)
	for i := 0; i < n; i++ {
		coords[i] = [4]int32{idx0[i], idx1[i], idx2[i], idx3[i]}
	}

	return &MaskArtifact{
		Shape:        [4]int32{shapeVals[0], shapeVals[1], shapeVals[2], shapeVals[3]},
		Coords:       coords,
		Values:       values,
		MaskFraction: maskFraction,
	}, nil
}

// WriteMaskArtifact writes m to "<dir>/<layerName>.npz" in the format
// documented in spec.md §6. Used by cmd/genmasks.go.
func WriteMaskArtifact(dir, layerName string, m MaskArtifact) error {
	path := filepath.Join(dir, layerName+".npz")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating mask file %q: %w", path, err)
	}
	defer f.Close()

	n := len(m.Coords)
	idx0 := make([]int32, n)
	idx1 := make([]int32, n)
	idx2 := make([]int32, n)
	idx3 := make([]int32, n)
	for i, c := range m.Coords {
		idx0[i], idx1[i], idx2[i], idx3[i] = c[0], c[1], c[2], c[3]
	}

	zw := newNpzWriter(f)
	if err := zw.writeInt32("shape", m.Shape[:]); err != nil {
		return err
	}
	if err := zw.writeInt32("idx0", idx0); err != nil {
		return err
	}
	if err := zw.writeInt32("idx1", idx1); err != nil {
		return err
	}
	if err := zw.writeInt32("idx2", idx2); err != nil {
		return err
	}
	if err := zw.writeInt32("idx3", idx3); err != nil {
		return err
	}
	values := m.Values
	if values == nil {
		values = make([]float32, n)
	}
	if err := zw.writeFloat32("values", values); err != nil {
		return err
	}
	if err := zw.writeFloat32("mask_fraction", []float32{m.MaskFraction}); err != nil {
		return err
	}
	return zw.Close()
}

func readInt32Member(zr *zip.Reader, name string) ([]int32, error) {
	_, count, payload, err := npzMember(zr, name)
	if err != nil {
		return nil, err
	}
	return decodeInt32Payload(payload, count)
}

func readFloat32Member(zr *zip.Reader, name string) ([]float32, error) {
	_, count, payload, err := npzMember(zr, name)
	if err != nil {
		return nil, err
	}
	return decodeFloat32Payload(payload, count)
}

// SCUCounts maps the nonzero coordinates of a mask onto the POF x PIF SCU
// grid (spec.md §4.1 "Channel-to-SCU mapping"). Returns a length
// POF*PIF vector of int64 counts (spec.md §9 "64-bit integers throughout").
// This is a single O(N) pass over coords with O(POF*PIF) extra space,
// matching spec.md §9's "vectorized mask binning" requirement without
// needing an actual SIMD/array library.
func SCUCounts(grid GridConfig, cOut, cIn int, coords [][4]int32) []int64 {
	counts := make([]int64, grid.POF*grid.PIF)
	if cOut <= 0 || cIn <= 0 {
		return counts
	}
	outPerRow := ceilDiv(cOut, grid.POF)
	inPerCol := ceilDiv(cIn, grid.PIF)
	if outPerRow < 1 {
		outPerRow = 1
	}
	if inPerCol < 1 {
		inPerCol = 1
	}
	for _, c := range coords {
		o := int(c[0])
		i := int(c[1])
		r := o / outPerRow
		if r > grid.POF-1 {
			r = grid.POF - 1
		}
		col := i / inPerCol
		if col > grid.PIF-1 {
			col = grid.PIF - 1
		}
		counts[r*grid.PIF+col]++
	}
	return counts
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// EstimateMacsFromMaskDir is a fast, whole-pipeline-free MAC estimate
// over every ".npz" mask in dir: each nonzero transform-domain weight
// contributes one multiply per output patch, where a patch is a 2x2
// block of the frame (spec.md §4.1's patch-count convention). Grounded
// on original_source/Sim/vcnpuprop.py:estimate_macs_from_mask_dir —
// used by the CLI's --mac-report flag as a sanity check that doesn't
// require running the tile pipeline.
func EstimateMacsFromMaskDir(dir string, frameH, frameW int) (map[string]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading mask dir %q: %w", dir, err)
	}
	totalPatches := int64(ceilDiv(frameH, 2)) * int64(ceilDiv(frameW, 2))

	byLayer := make(map[string]int64)
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".npz") {
			continue
		}
		layerName := strings.TrimSuffix(e.Name(), ".npz")
		mask, err := LoadMaskArtifact(dir, layerName)
		if err != nil {
			return nil, fmt.Errorf("mac report: %w", err)
		}
		macs := int64(mask.NonzeroCount()) * totalPatches
		byLayer[layerName] = macs
		total += macs
	}
	byLayer["total"] = total
	return byLayer, nil
}
