package sim

// TileGroup is one dispatchable unit of work on the frame grid (spec.md
// §4.6): a row-group's pixel span crossed with a contiguous column
// slice, tagged with its row-group and column-tile indices. The banked
// FIFO does not use these indices; it assigns a slot from its own
// occupancy at push time.
type TileGroup struct {
	GID         int64
	RowGroupIdx int
	RowStart    int // first pixel row, inclusive
	RowEnd      int // one past the last pixel row
	ColTileIdx  int
	ColStart    int
	ColEnd      int

	MotionReady    bool
	ReferenceReady bool
	SFTMDone       bool
	SFTMCycles     int64
	BypassMode     bool
}

// Cols returns the tile's column span.
func (t TileGroup) Cols() int {
	return t.ColEnd - t.ColStart
}

// Ready reports whether both required input regions have landed
// (spec.md §4.5: the DPM consumer pops a tile only once its motion data,
// set by SFTM, and its reference-region pixels, set by DMA completion,
// are both resident).
func (t TileGroup) Ready() bool {
	return t.MotionReady && t.ReferenceReady
}

// tileColumns splits a frame of width frameW into ceil(frameW/tileW)
// column tiles, the last possibly narrower (spec.md §4.6). Also used to
// split a frame's height into row groups, since both are the same
// contiguous-span-with-narrower-tail partition.
func tileColumns(frameW, tileW int) []struct{ Start, End int } {
	if tileW <= 0 {
		tileW = frameW
	}
	var out []struct{ Start, End int }
	for start := 0; start < frameW; start += tileW {
		end := start + tileW
		if end > frameW {
			end = frameW
		}
		out = append(out, struct{ Start, End int }{start, end})
	}
	return out
}

// referenceRegion expands a tile's row span by haloPixels on each side,
// clamped to the frame height, matching the extra rows the deformable
// reference build needs beyond the tile's own row group (original_source
// vcnpuprop.py:compute_reference_region_for_tile: the expansion runs
// along rows, not columns — a tile's full column width is always part of
// the reference fetch).
func referenceRegion(rowStart, rowEnd, frameH, haloPixels int) (start, end int) {
	start = rowStart - haloPixels
	if start < 0 {
		start = 0
	}
	end = rowEnd + haloPixels
	if end > frameH {
		end = frameH
	}
	return start, end
}

// linearAddrForPixel returns the byte offset of pixel (x, y) in a
// row-major frame buffer frameW pixels wide, bytesPerSample bytes per
// channel sample (original_source vcnpuprop.py:linear_addr_for_pixel).
// DMA base addresses are derived from this, not a synthetic per-tile
// counter, so that adjacent tiles' reference fetches land at adjacent
// addresses and the prefetcher can coalesce them.
func linearAddrForPixel(x, y, frameW, bytesPerSample int) int64 {
	return int64(y*frameW+x) * int64(bytesPerSample)
}

// regionBytesForDims returns the byte size of a width x height region at
// channels*bytesPerSample bytes per pixel (original_source vcnpuprop.py:
// region_bytes_for_dims).
func regionBytesForDims(width, height, channels, bytesPerSample int) int64 {
	return int64(width) * int64(height) * int64(channels) * int64(bytesPerSample)
}
