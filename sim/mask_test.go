package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteAndLoadMaskArtifact_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	m := MaskArtifact{
		Shape: [4]int32{36, 36, 4, 4},
		Coords: [][4]int32{
			{0, 0, 1, 2},
			{5, 10, 3, 3},
			{35, 35, 0, 0},
		},
		Values:       []float32{0.1, -0.2, 0.3},
		MaskFraction: 3.0 / (36 * 36 * 4 * 4),
	}
	assert.NoError(t, WriteMaskArtifact(dir, "RFConv0", m))

	_, err := os.Stat(filepath.Join(dir, "RFConv0.npz"))
	assert.NoError(t, err)

	got, err := LoadMaskArtifact(dir, "RFConv0")
	assert.NoError(t, err)
	assert.Equal(t, m.Shape, got.Shape)
	assert.Equal(t, m.Coords, got.Coords)
	assert.InDeltaSlice(t, m.Values, got.Values, 1e-6)
	assert.InDelta(t, m.MaskFraction, got.MaskFraction, 1e-6)
}

func TestLoadMaskArtifact_MissingFile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadMaskArtifact(dir, "DoesNotExist")
	assert.Error(t, err)
}

func TestEstimateMacsFromMaskDir_SumsPerLayerAndTotal(t *testing.T) {
	dir := t.TempDir()
	a := MaskArtifact{Shape: [4]int32{8, 8, 4, 4}, Coords: [][4]int32{{0, 0, 0, 0}, {1, 1, 1, 1}}}
	b := MaskArtifact{Shape: [4]int32{8, 8, 4, 4}, Coords: [][4]int32{{2, 2, 2, 2}}}
	assert.NoError(t, WriteMaskArtifact(dir, "RFConv0", a))
	assert.NoError(t, WriteMaskArtifact(dir, "RFConv1", b))

	report, err := EstimateMacsFromMaskDir(dir, 8, 120)
	assert.NoError(t, err)

	patches := int64(4) * int64(60) // ceil(8/2) * ceil(120/2)
	assert.Equal(t, 2*patches, report["RFConv0"])
	assert.Equal(t, 1*patches, report["RFConv1"])
	assert.Equal(t, 3*patches, report["total"])
}

func TestEstimateMacsFromMaskDir_MissingDirErrors(t *testing.T) {
	_, err := EstimateMacsFromMaskDir(filepath.Join(t.TempDir(), "missing"), 8, 120)
	assert.Error(t, err)
}

func TestSCUCounts_SumEqualsNonzeroCount(t *testing.T) {
	grid := NewGridConfig()
	coords := make([][4]int32, 0)
	for o := 0; o < 36; o++ {
		for i := 0; i < 36; i += 4 {
			coords = append(coords, [4]int32{int32(o), int32(i), 0, 0})
		}
	}
	counts := SCUCounts(grid, 36, 36, coords)
	var sum int64
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, int64(len(coords)), sum)
	assert.Len(t, counts, grid.POF*grid.PIF)
}

func TestSCUCounts_OutOfRangeCoordClampsToLastRowColumn(t *testing.T) {
	grid := NewGridConfig() // POF=4, PIF=12
	// A coordinate at or beyond the declared channel count must still clamp
	// into the grid rather than index out of range (spec.md §4.1: "ties at
	// the clamp boundary always collapse to the last row/column").
	coords := [][4]int32{{36, 36, 0, 0}}
	counts := SCUCounts(grid, 36, 36, coords)
	assert.Equal(t, int64(1), counts[(grid.POF-1)*grid.PIF+(grid.PIF-1)])
}
