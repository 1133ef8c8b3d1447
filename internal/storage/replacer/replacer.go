package replacer

import (
	"fmt"
	"strings"

	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

// Policy defines the contract for page replacement policies. A policy only
// orders resident pages; frame bindings live in the frame table.
type Policy interface {
	// OnResident records that vp has just been loaded into a frame.
	OnResident(vp page.VirtualPage)
	// OnAccessHit records an access to an already resident page.
	OnAccessHit(vp page.VirtualPage)
	// SelectVictim returns the page to evict next without removing it.
	SelectVictim() (page.VirtualPage, bool)
	// Remove stops tracking vp. Removing an untracked page is a no-op.
	Remove(vp page.VirtualPage)
	Contains(vp page.VirtualPage) bool
	Len() int
	Kind() Kind
}

// Kind tags the replacement policy used for one access.
type Kind string

const (
	FIFO Kind = "FIFO"
	LRU  Kind = "LRU"
)

var Kinds = []Kind{FIFO, LRU}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case FIFO, LRU:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q (want FIFO or LRU)", util.ErrUnknownPolicy, s)
	}
}

func (k Kind) String() string { return string(k) }

// New builds an empty policy of the given kind sized for capacity frames.
func New(kind Kind, capacity int) (Policy, error) {
	switch kind {
	case FIFO:
		return NewFIFO(), nil
	case LRU:
		return NewLRU(capacity)
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrUnknownPolicy, string(kind))
	}
}
