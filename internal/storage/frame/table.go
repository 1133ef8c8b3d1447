package frame

import (
	"fmt"

	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

// Slot is the observable content of one physical frame. Page is nil for a
// free frame.
type Slot struct {
	Index int               `json:"frame"`
	Page  *page.VirtualPage `json:"page"`
}

func (s Slot) Free() bool { return s.Page == nil }

// Table is the single source of truth for frame to page bindings.
// It is not safe for concurrent use; the paging engine serializes access.
type Table struct {
	slots     []*page.VirtualPage      // nil = free
	pageToIdx map[page.VirtualPage]int // Map resident page to frame index
	used      int                      // Occupied frames
	poolSize  int                      // Total frames
}

// NewTable creates a table of size free frames. A zero sized table is legal:
// every access on it is a fault that cannot be resolved.
func NewTable(size int) *Table {
	if size < 0 {
		panic(util.ErrInvalidPoolSize)
	}
	return &Table{
		slots:     make([]*page.VirtualPage, size),
		pageToIdx: make(map[page.VirtualPage]int, size),
		poolSize:  size,
	}
}

// Reserve binds pages 0..count-1 of cid into the lowest free frames, in
// ascending index order. Either all count frames are bound or none is.
func (t *Table) Reserve(cid util.ContainerID, count int) ([]int, error) {
	if count < 0 {
		return nil, fmt.Errorf("[frame] [Reserve] negative count %d: %w", count, util.ErrInvalidMemorySize)
	}
	if t.poolSize-t.used < count {
		return nil, fmt.Errorf("[frame] [Reserve] want %d frames, %d free: %w",
			count, t.poolSize-t.used, util.ErrInsufficientMemory)
	}
	for n := range count {
		vp := page.New(cid, util.PageNumber(n))
		if _, exists := t.pageToIdx[vp]; exists {
			return nil, fmt.Errorf("[frame] [Reserve] %s: %w", vp, util.ErrPageAlreadyResident)
		}
	}

	reserved := make([]int, 0, count)
	for idx := 0; idx < t.poolSize && len(reserved) < count; idx++ {
		if t.slots[idx] != nil {
			continue
		}
		t.put(idx, page.New(cid, util.PageNumber(len(reserved))))
		reserved = append(reserved, idx)
	}
	return reserved, nil
}

func (t *Table) Lookup(vp page.VirtualPage) (int, bool) {
	idx, ok := t.pageToIdx[vp]
	return idx, ok
}

// Bind overwrites the binding of frameIdx with vp. A page previously held by
// the frame stops being resident.
func (t *Table) Bind(frameIdx int, vp page.VirtualPage) error {
	if frameIdx >= t.poolSize || frameIdx < 0 {
		return fmt.Errorf("[frame] [Bind] frame %d of %d: %w", frameIdx, t.poolSize, util.ErrInvalidFrame)
	}
	if idx, exists := t.pageToIdx[vp]; exists {
		if idx == frameIdx {
			return nil
		}
		return fmt.Errorf("[frame] [Bind] %s in frame %d: %w", vp, idx, util.ErrPageAlreadyResident)
	}

	if old := t.slots[frameIdx]; old != nil {
		delete(t.pageToIdx, *old)
		t.slots[frameIdx] = nil
		t.used--
	}
	t.put(frameIdx, vp)
	return nil
}

// ReleaseAll frees every frame bound to cid and returns the freed pages in
// frame order.
func (t *Table) ReleaseAll(cid util.ContainerID) []page.VirtualPage {
	var freed []page.VirtualPage
	for idx, vp := range t.slots {
		if vp == nil || vp.Container != cid {
			continue
		}
		freed = append(freed, *vp)
		delete(t.pageToIdx, *vp)
		t.slots[idx] = nil
		t.used--
	}
	return freed
}

// FirstFree returns the lowest free frame index.
func (t *Table) FirstFree() (int, bool) {
	if t.used == t.poolSize {
		return -1, false
	}
	for idx, vp := range t.slots {
		if vp == nil {
			return idx, true
		}
	}
	return -1, false
}

// Snapshot returns one slot per frame in index order. Pages are copies.
func (t *Table) Snapshot() []Slot {
	out := make([]Slot, t.poolSize)
	for idx, vp := range t.slots {
		out[idx] = Slot{Index: idx}
		if vp != nil {
			out[idx].Page = vp.Ptr()
		}
	}
	return out
}

// Owned counts the frames bound to cid.
func (t *Table) Owned(cid util.ContainerID) int {
	n := 0
	for vp := range t.pageToIdx {
		if vp.Container == cid {
			n++
		}
	}
	return n
}

func (t *Table) Size() int { return t.poolSize }

func (t *Table) Used() int { return t.used }

func (t *Table) Free() int { return t.poolSize - t.used }

func (t *Table) put(frameIdx int, vp page.VirtualPage) {
	t.slots[frameIdx] = vp.Ptr()
	t.pageToIdx[vp] = frameIdx
	t.used++
}
