package faultlog

import (
	"time"

	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/replacer"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

// Event is one page fault. Events are never modified after Record.
type Event struct {
	Seq       uint64            `json:"seq" msgpack:"seq"`   // position in the log, from 1
	Tick      uint64            `json:"tick" msgpack:"tick"` // engine access clock
	Time      time.Time         `json:"time" msgpack:"time"`
	Container util.ContainerID  `json:"container" msgpack:"container"`
	Page      util.PageNumber   `json:"page" msgpack:"page"`
	Policy    replacer.Kind     `json:"policy" msgpack:"policy"`
	Evicted   *page.VirtualPage `json:"evicted,omitempty" msgpack:"evicted,omitempty"`
	Resolved  bool              `json:"resolved" msgpack:"resolved"`
}

// Columns is the field order of Fields and of CSV exports.
var Columns = []string{"seq", "tick", "time", "container", "page", "policy", "evicted", "resolved"}

// Fields flattens e into a column to value mapping. A missing victim is the
// empty string.
func (e Event) Fields() map[string]any {
	evicted := ""
	if e.Evicted != nil {
		evicted = e.Evicted.String()
	}
	return map[string]any{
		"seq":       e.Seq,
		"tick":      e.Tick,
		"time":      e.Time.Format(time.RFC3339Nano),
		"container": int(e.Container),
		"page":      int(e.Page),
		"policy":    e.Policy.String(),
		"evicted":   evicted,
		"resolved":  e.Resolved,
	}
}

// Log is an append-only, ordered record of faults. Not safe for concurrent
// use on its own.
type Log struct {
	events []Event
}

func New() *Log {
	return &Log{}
}

// Record appends e, assigning its sequence number, and returns the stored
// event.
func (l *Log) Record(e Event) Event {
	e.Seq = uint64(len(l.events)) + 1
	l.events = append(l.events, e)
	return e
}

// All returns a copy of every event in arrival order.
func (l *Log) All() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Log) Len() int { return len(l.events) }
