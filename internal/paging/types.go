package paging

import (
	"fmt"

	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
)

// Result is the outcome class of one access.
type Result int

const (
	Hit Result = iota
	FaultResolved
	FaultUnresolved
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "HIT"
	case FaultResolved:
		return "FAULT_RESOLVED"
	case FaultUnresolved:
		return "FAULT_UNRESOLVED"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Outcome describes one access. Frame is -1 when the fault was unresolved.
type Outcome struct {
	Result  Result            `json:"result"`
	Frame   int               `json:"frame"`
	Evicted *page.VirtualPage `json:"evicted,omitempty"`
	Tick    uint64            `json:"tick"`
}

// Stats are running counters since the engine was built, plus the current
// pool occupancy.
type Stats struct {
	Accesses   uint64 `json:"accesses"`
	Hits       uint64 `json:"hits"`
	Faults     uint64 `json:"faults"`
	Evictions  uint64 `json:"evictions"`
	Unresolved uint64 `json:"unresolved"`
	Frames     int    `json:"frames"`
	UsedFrames int    `json:"used_frames"`
	FreeFrames int    `json:"free_frames"`
	Containers int    `json:"containers"`
}

// HitRatio is hits over accesses, 0 before the first access.
func (s Stats) HitRatio() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses)
}
