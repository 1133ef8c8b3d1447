package replacer

import (
	"fmt"

	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LRUReplacer evicts the least recently accessed page. Pages never touched
// since loading are ordered by load time.
type LRUReplacer struct {
	recency *simplelru.LRU[page.VirtualPage, struct{}]
}

// NewLRU sizes the recency list for capacity frames. Tracked pages are always
// resident, so the list never reaches its bound and never evicts on its own.
func NewLRU(capacity int) (*LRUReplacer, error) {
	recency, err := simplelru.NewLRU[page.VirtualPage, struct{}](max(capacity, 1), nil)
	if err != nil {
		return nil, fmt.Errorf("[replacer] [NewLRU] %w", err)
	}
	return &LRUReplacer{recency: recency}, nil
}

// OnResident marks vp most recently used, tracking it if needed.
func (l *LRUReplacer) OnResident(vp page.VirtualPage) {
	l.recency.Add(vp, struct{}{})
}

// OnAccessHit moves vp to the most recently used position. A resident page
// not yet tracked (loaded under FIFO) starts being tracked here.
func (l *LRUReplacer) OnAccessHit(vp page.VirtualPage) {
	l.recency.Add(vp, struct{}{})
}

func (l *LRUReplacer) SelectVictim() (page.VirtualPage, bool) {
	vp, _, ok := l.recency.GetOldest()
	return vp, ok
}

func (l *LRUReplacer) Remove(vp page.VirtualPage) {
	l.recency.Remove(vp)
}

func (l *LRUReplacer) Contains(vp page.VirtualPage) bool {
	return l.recency.Contains(vp)
}

func (l *LRUReplacer) Len() int { return l.recency.Len() }

func (l *LRUReplacer) Kind() Kind { return LRU }

// Order returns the pages from least to most recently used.
func (l *LRUReplacer) Order() []page.VirtualPage {
	return l.recency.Keys()
}
