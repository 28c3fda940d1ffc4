package sim

// ptableStatus is a prefetch table entry's lifecycle state (spec.md §3).
type ptableStatus int

const (
	ptableInvalid ptableStatus = iota
	ptablePending
	ptableInflight
	ptableDone
)

// ptableEntry is one prefetch table entry (spec.md §3 "Prefetch table entry").
type ptableEntry struct {
	status ptableStatus
	base   int64
	length int64
	kind   DMARequestKind
	tag    int64
	hasTag bool

	linkedTiles []int64
	dests       [][2]int // (bank, slot) pairs
}

func (e *ptableEntry) end() int64 { return e.base + e.length }

func (e *ptableEntry) overlaps(base, length int64) bool {
	return e.base < base+length && base < e.end()
}

func (e *ptableEntry) covers(base, length int64) bool {
	return e.base <= base && base+length <= e.end()
}

// Prefetcher implements the split prefetch table with coalescing and
// deduplication (spec.md §4.4).
type Prefetcher struct {
	cfg  PrefetchConfig
	dram DRAMConfig

	entries []*ptableEntry
	pending []*ptableEntry // FIFO of entries awaiting DMA issue

	hits       int64
	coalesced  int64
}

// NewPrefetcher builds an empty prefetcher with cfg.TableEntries slots.
func NewPrefetcher(cfg PrefetchConfig, dram DRAMConfig) *Prefetcher {
	return &Prefetcher{cfg: cfg, dram: dram}
}

// alignRequest widens (base, length) to the DRAM alignment boundary
// (spec.md §4.4 "DRAM alignment").
func alignRequest(base, length int64, alignment int64) (int64, int64) {
	if alignment <= 0 {
		return base, length
	}
	alignedBase := (base / alignment) * alignment
	end := base + length
	alignedEnd := ((end + alignment - 1) / alignment) * alignment
	return alignedBase, alignedEnd - alignedBase
}

// Submit records a reference or motion read request from a producer
// (spec.md §4.4 "Submit"), returning the table entry that now tracks it.
func (p *Prefetcher) Submit(base, length int64, kind DMARequestKind, tileGID int64, dest [2]int) *ptableEntry {
	base, length = alignRequest(base, length, p.dram.AlignmentBytes)

	for _, e := range p.entries {
		if e.status == ptableDone && e.kind == kind && e.covers(base, length) {
			p.hits++
			e.linkedTiles = append(e.linkedTiles, tileGID)
			e.dests = append(e.dests, dest)
			return e
		}
	}
	for _, e := range p.entries {
		if (e.status == ptablePending || e.status == ptableInflight) && e.kind == kind && e.overlaps(base, length) {
			e.linkedTiles = append(e.linkedTiles, tileGID)
			e.dests = append(e.dests, dest)
			return e
		}
	}
	if n := len(p.pending); n > 0 {
		tail := p.pending[n-1]
		if tail.kind == kind {
			mergedBase := tail.base
			if base < mergedBase {
				mergedBase = base
			}
			mergedEnd := tail.end()
			if base+length > mergedEnd {
				mergedEnd = base + length
			}
			mergedLen := mergedEnd - mergedBase
			if mergedLen <= p.cfg.CoalesceBytes {
				tail.base = mergedBase
				tail.length = mergedLen
				tail.linkedTiles = append(tail.linkedTiles, tileGID)
				tail.dests = append(tail.dests, dest)
				p.coalesced++
				return tail
			}
		}
	}

	e := p.allocate()
	e.status = ptablePending
	e.base = base
	e.length = length
	e.kind = kind
	e.hasTag = false
	e.linkedTiles = []int64{tileGID}
	e.dests = [][2]int{dest}
	p.pending = append(p.pending, e)
	return e
}

// allocate finds a slot for a fresh entry per spec.md §4.4's allocation
// order: invalid slot, else append below capacity, else evict the
// first non-inflight entry FIFO-order, else forcibly evict index 0.
func (p *Prefetcher) allocate() *ptableEntry {
	for _, e := range p.entries {
		if e.status == ptableInvalid {
			return e
		}
	}
	if len(p.entries) < p.cfg.TableEntries {
		e := &ptableEntry{status: ptableInvalid}
		p.entries = append(p.entries, e)
		return e
	}
	for _, e := range p.entries {
		if e.status != ptableInflight {
			p.evict(e)
			return e
		}
	}
	e := p.entries[0]
	p.evict(e)
	return e
}

func (p *Prefetcher) evict(e *ptableEntry) {
	e.status = ptableInvalid
	e.linkedTiles = nil
	e.dests = nil
	e.hasTag = false
	for i, pe := range p.pending {
		if pe == e {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}
}

// dmaCompletion is handed back by Step for each request that finished
// this call, so the caller can flip readiness on the entry's linked tiles.
type dmaCompletion struct {
	Kind        DMARequestKind
	LinkedTiles []int64
	Request     *DMARequest
}

// Step dequeues pending entries while outstanding < MaxOutstanding and
// issues them to dma (spec.md §4.4 "Issue loop"), then advances dma and
// returns the completions that occurred this cycle.
func (p *Prefetcher) Step(cycle int64, dma *DMAEngine) []dmaCompletion {
	for len(p.pending) > 0 && dma.OutstandingCount() < p.cfg.MaxOutstanding {
		e := p.pending[0]
		p.pending = p.pending[1:]
		req := dma.Issue(cycle, e.base, e.length, e.kind)
		e.status = ptableInflight
		e.tag = req.Tag
		e.hasTag = true
	}

	dma.Step(cycle)
	completed := dma.CollectCompleted()
	var out []dmaCompletion
	for _, req := range completed {
		for _, e := range p.entries {
			if e.hasTag && e.tag == req.Tag && e.status == ptableInflight {
				e.status = ptableDone
				out = append(out, dmaCompletion{Kind: e.kind, LinkedTiles: e.linkedTiles, Request: req})
				break
			}
		}
	}
	return out
}

// Hits returns the cumulative number of Submit calls served by a done entry.
func (p *Prefetcher) Hits() int64 { return p.hits }

// Coalesced returns the cumulative number of Submit calls merged into
// the pending FIFO's tail entry.
func (p *Prefetcher) Coalesced() int64 { return p.coalesced }
