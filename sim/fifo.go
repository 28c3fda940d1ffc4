package sim

import "fmt"

// BankedGroupFIFO holds completed tile groups between the SFTM producer
// and the DPM consumer (spec.md §4.2). It is a single ordered queue —
// push order is consume order — plus a side-table mapping each resident
// gid to the (bank, local_slot) it was assigned at push time. That slot
// exists purely so the producer can address a DMA destination; it plays
// no part in ordering (original_source vcnpuprop.py:BankedGroupFIFO).
type BankedGroupFIFO struct {
	cfg FIFOConfig

	queue  []*TileGroup
	slotOf map[int64][2]int // gid -> (bank, local_slot), valid while resident

	overflowCount int64
}

// NewBankedGroupFIFO builds an empty FIFO of capacity
// cfg.Banks*cfg.GroupSlotsPerBank.
func NewBankedGroupFIFO(cfg FIFOConfig) *BankedGroupFIFO {
	return &BankedGroupFIFO{cfg: cfg, slotOf: make(map[int64][2]int)}
}

func (f *BankedGroupFIFO) capacity() int {
	return f.cfg.Banks * f.cfg.GroupSlotsPerBank
}

// CanPush reports whether the queue has room for one more group (spec.md
// §4.2 "can_push"): a single combined capacity check, not a per-bank one.
func (f *BankedGroupFIFO) CanPush() bool {
	return len(f.queue) < f.capacity()
}

// nextSlot computes the (bank, local_slot) a push right now would
// receive: bank = n mod banks, local_slot = n div banks, where n is the
// current occupancy (spec.md §4.2 "Slot assignment").
func (f *BankedGroupFIFO) nextSlot() (bank, local int) {
	n := len(f.queue)
	bank = n % f.cfg.Banks
	local = n / f.cfg.Banks
	if local >= f.cfg.GroupSlotsPerBank {
		local = f.cfg.GroupSlotsPerBank - 1 // defensive clamp, see vcnpuprop.py
	}
	return bank, local
}

// Push admits g at the tail of the queue if there's room, recording the
// (bank, local_slot) it occupies for the life of its residency. If the
// queue is full, the push is refused and OverflowCount increments
// instead of blocking the caller — the caller is expected to fall back
// to bypass mode.
func (f *BankedGroupFIFO) Push(g *TileGroup) bool {
	if !f.CanPush() {
		f.overflowCount++
		return false
	}
	bank, local := f.nextSlot()
	f.slotOf[g.GID] = [2]int{bank, local}
	f.queue = append(f.queue, g)
	return true
}

// DestSlot returns the (bank, local_slot) a push right now would assign,
// without mutating state — producers use this to pick a DMA destination
// for the tile immediately before pushing it.
func (f *BankedGroupFIFO) DestSlot() (bank, local int) {
	return f.nextSlot()
}

// SlotFor reports the (bank, local_slot) a still-resident gid was
// assigned at push time.
func (f *BankedGroupFIFO) SlotFor(gid int64) (bank, local int, ok bool) {
	s, ok := f.slotOf[gid]
	if !ok {
		return 0, 0, false
	}
	return s[0], s[1], true
}

// Peek returns the queue head without removing it, satisfying the
// tileSource interface the DPM consumer pops from.
func (f *BankedGroupFIFO) Peek() (*TileGroup, bool) {
	if len(f.queue) == 0 {
		return nil, false
	}
	return f.queue[0], true
}

// Pop removes and returns the queue head. The departing gid's slot-table
// entry is cleared, but no compaction happens: every other resident
// gid's slot is untouched (spec.md §4.2 "no compaction is performed").
func (f *BankedGroupFIFO) Pop() (*TileGroup, bool) {
	if len(f.queue) == 0 {
		return nil, false
	}
	g := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.slotOf, g.GID)
	return g, true
}

// Banks returns the number of banks this FIFO was built with.
func (f *BankedGroupFIFO) Banks() int {
	return f.cfg.Banks
}

// Occupancy returns the number of groups currently queued.
func (f *BankedGroupFIFO) Occupancy() int {
	return len(f.queue)
}

// OverflowCount returns the number of groups dropped due to the queue
// being full at push time.
func (f *BankedGroupFIFO) OverflowCount() int64 {
	return f.overflowCount
}

func (f *BankedGroupFIFO) String() string {
	return fmt.Sprintf("BankedGroupFIFO{banks=%d slots/bank=%d occupancy=%d overflow=%d}",
		f.cfg.Banks, f.cfg.GroupSlotsPerBank, len(f.queue), f.overflowCount)
}
