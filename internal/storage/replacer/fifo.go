package replacer

import (
	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
)

type fifoNode struct {
	page page.VirtualPage
	prev *fifoNode
	next *fifoNode
}

// FIFOReplacer evicts the page that has been resident longest. Hits never
// change the eviction order.
type FIFOReplacer struct {
	nodes map[page.VirtualPage]*fifoNode
	head  *fifoNode // Oldest (evict first)
	tail  *fifoNode // Newest
}

func NewFIFO() *FIFOReplacer {
	return &FIFOReplacer{nodes: make(map[page.VirtualPage]*fifoNode)}
}

// OnResident appends vp to the queue. A page already queued keeps its place.
func (f *FIFOReplacer) OnResident(vp page.VirtualPage) {
	if _, exists := f.nodes[vp]; exists {
		return
	}
	f.addToTail(vp)
}

func (f *FIFOReplacer) OnAccessHit(page.VirtualPage) {
	// nothing to do for FIFO
}

func (f *FIFOReplacer) SelectVictim() (page.VirtualPage, bool) {
	if f.head == nil {
		return page.VirtualPage{}, false
	}
	return f.head.page, true
}

func (f *FIFOReplacer) Remove(vp page.VirtualPage) {
	node, exists := f.nodes[vp]
	if !exists {
		return
	}
	f.unlink(node)
	delete(f.nodes, vp)
}

func (f *FIFOReplacer) Contains(vp page.VirtualPage) bool {
	_, exists := f.nodes[vp]
	return exists
}

func (f *FIFOReplacer) Len() int { return len(f.nodes) }

func (f *FIFOReplacer) Kind() Kind { return FIFO }

// Order returns the queue from next victim to newest.
func (f *FIFOReplacer) Order() []page.VirtualPage {
	out := make([]page.VirtualPage, 0, len(f.nodes))
	for n := f.head; n != nil; n = n.next {
		out = append(out, n.page)
	}
	return out
}

func (f *FIFOReplacer) addToTail(vp page.VirtualPage) {
	node := &fifoNode{page: vp, prev: f.tail}
	if f.tail != nil {
		f.tail.next = node
	}
	f.tail = node
	if f.head == nil {
		f.head = node
	}
	f.nodes[vp] = node
}

func (f *FIFOReplacer) unlink(node *fifoNode) {
	isHead := node.prev == nil
	isTail := node.next == nil

	switch {
	case isHead && isTail:
		f.head = nil
		f.tail = nil
	case isHead:
		f.head = node.next
		node.next.prev = nil
	case isTail:
		f.tail = node.prev
		node.prev.next = nil
	default:
		node.prev.next = node.next
		node.next.prev = node.prev
	}

	node.prev = nil
	node.next = nil
}
