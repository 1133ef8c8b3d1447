package paging

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bietkhonhungvandi212/minidock/internal/container"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/faultlog"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/file"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/frame"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/replacer"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

var errStaleVictim = errors.New("victim is not resident")

// Engine owns the frame pool, both replacement records, the fault log and
// the container registry. Every exported method holds the engine mutex for
// its whole duration, so concurrent callers observe whole operations only.
type Engine struct {
	mu       sync.Mutex
	opts     util.Options
	frames   *frame.Table
	policies map[replacer.Kind]replacer.Policy
	faults   *faultlog.Log
	registry *container.Registry
	journal  file.Sink
	logger   *slog.Logger
	clock    uint64
	stats    Stats
	now      func() time.Time
}

// New builds an engine from opts. When opts.JournalPath is set every fault is
// also appended to that file.
func New(opts util.Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("[engine] [New] %w", err)
	}

	e := &Engine{
		opts:     opts,
		frames:   frame.NewTable(opts.NumFrames),
		policies: make(map[replacer.Kind]replacer.Policy, len(replacer.Kinds)),
		faults:   faultlog.New(),
		registry: container.NewRegistry(),
		logger:   opts.Logger,
		now:      time.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	for _, kind := range replacer.Kinds {
		p, err := replacer.New(kind, opts.NumFrames)
		if err != nil {
			return nil, fmt.Errorf("[engine] [New] %w", err)
		}
		e.policies[kind] = p
	}

	if opts.JournalPath != "" {
		j, err := file.NewJournal(opts.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("[engine] [New] %w", err)
		}
		e.journal = j
	}

	e.logger.Info("paging engine ready",
		"frames", opts.NumFrames, "page_size_kb", opts.PageSizeKB, "journal", opts.JournalPath)
	return e, nil
}

// Close flushes and closes the fault journal, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.journal == nil {
		return nil
	}
	err := e.journal.Close()
	e.journal = nil
	return err
}

func (e *Engine) Options() util.Options { return e.opts }

/* CONTAINERS */

// CreateContainer registers a container and reserves memoryKB/PageSizeKB
// frames for its pages 0..n-1. id 0 picks the next free id. Nothing is
// registered when the reservation fails.
func (e *Engine) CreateContainer(id util.ContainerID, memoryKB int) (util.ContainerID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if memoryKB < 0 {
		return 0, fmt.Errorf("[engine] [CreateContainer] %d KB: %w", memoryKB, util.ErrInvalidMemorySize)
	}
	auto := id == 0
	if auto {
		id = e.registry.Allocate()
	}
	if err := e.registry.Check(id); err != nil {
		return 0, fmt.Errorf("[engine] [CreateContainer] %w", err)
	}

	pages := e.opts.PagesFor(memoryKB)
	reserved, err := e.frames.Reserve(id, pages)
	if err != nil {
		e.logger.Warn("container not created", "container", id, "memory_kb", memoryKB, "error", err)
		return 0, fmt.Errorf("[engine] [CreateContainer] container %d: %w", id, err)
	}
	if _, err := e.registry.Add(id, memoryKB, pages, auto); err != nil {
		e.frames.ReleaseAll(id)
		return 0, fmt.Errorf("[engine] [CreateContainer] %w", err)
	}

	// No policy is in force at creation, so both records learn the pages.
	for n := range reserved {
		vp := page.New(id, util.PageNumber(n))
		for _, kind := range replacer.Kinds {
			e.policies[kind].OnResident(vp)
		}
	}

	e.logger.Info("container created", "container", id, "memory_kb", memoryKB, "frames", reserved)
	return id, nil
}

func (e *Engine) StartContainer(id util.ContainerID) error {
	return e.setRunning(id, true)
}

func (e *Engine) StopContainer(id util.ContainerID) error {
	return e.setRunning(id, false)
}

func (e *Engine) setRunning(id util.ContainerID, running bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.SetRunning(id, running); err != nil {
		return fmt.Errorf("[engine] [setRunning] %w", err)
	}
	e.logger.Info("container state changed", "container", id, "running", running)
	return nil
}

// DestroyContainer releases every frame of id and purges its pages from both
// replacement records.
func (e *Engine) DestroyContainer(id util.ContainerID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Remove(id); err != nil {
		return fmt.Errorf("[engine] [DestroyContainer] %w", err)
	}
	freed := e.frames.ReleaseAll(id)
	for _, vp := range freed {
		e.purge(vp)
	}

	e.logger.Info("container destroyed", "container", id, "freed_frames", len(freed))
	return nil
}

func (e *Engine) Container(id util.ContainerID) (container.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.registry.Get(id)
	if err != nil {
		return container.Container{}, fmt.Errorf("[engine] [Container] %w", err)
	}
	return c, nil
}

func (e *Engine) Containers() []container.Container {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.List()
}

/* ACCESS */

// Access touches page number of container id under the given policy.
func (e *Engine) Access(id util.ContainerID, number util.PageNumber, kind replacer.Kind) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active, ok := e.policies[kind]
	if !ok {
		return Outcome{}, fmt.Errorf("[engine] [Access] %w: %q", util.ErrUnknownPolicy, string(kind))
	}
	if !e.registry.Exists(id) {
		return Outcome{}, fmt.Errorf("[engine] [Access] container %d: %w", id, util.ErrInvalidContainer)
	}
	if !number.Valid() {
		return Outcome{}, fmt.Errorf("[engine] [Access] page %d: %w", number, util.ErrInvalidPage)
	}

	e.clock++
	e.stats.Accesses++
	vp := page.New(id, number)

	if frameIdx, resident := e.frames.Lookup(vp); resident {
		active.OnAccessHit(vp)
		e.stats.Hits++
		return Outcome{Result: Hit, Frame: frameIdx, Tick: e.clock}, nil
	}

	e.stats.Faults++
	out, err := e.handleFault(vp, active)
	if err != nil {
		return Outcome{}, err
	}

	e.recordFault(vp, kind, out)
	return out, nil
}

func (e *Engine) handleFault(vp page.VirtualPage, active replacer.Policy) (Outcome, error) {
	if freeIdx, ok := e.frames.FirstFree(); ok {
		if err := e.frames.Bind(freeIdx, vp); err != nil {
			return Outcome{}, fmt.Errorf("[engine] [handleFault] %w", err)
		}
		active.OnResident(vp)
		e.logger.Debug("page fault", "page", vp.String(), "policy", active.Kind(), "frame", freeIdx)
		return Outcome{Result: FaultResolved, Frame: freeIdx, Tick: e.clock}, nil
	}

	victim, ok := e.selectVictim(active)
	if !ok {
		e.stats.Unresolved++
		e.logger.Warn("page fault unresolved", "page", vp.String(), "policy", active.Kind(), "frames", e.frames.Size())
		return Outcome{Result: FaultUnresolved, Frame: -1, Tick: e.clock}, nil
	}

	victimIdx, resident := e.frames.Lookup(victim)
	if !resident {
		e.purge(victim)
		return Outcome{}, fmt.Errorf("[engine] [handleFault] %s: %w", victim, errStaleVictim)
	}
	if err := e.frames.Bind(victimIdx, vp); err != nil {
		return Outcome{}, fmt.Errorf("[engine] [handleFault] %w", err)
	}
	e.purge(victim)
	active.OnResident(vp)
	e.stats.Evictions++

	e.logger.Debug("page fault", "page", vp.String(), "policy", active.Kind(),
		"frame", victimIdx, "evicted", victim.String())
	return Outcome{Result: FaultResolved, Frame: victimIdx, Evicted: victim.Ptr(), Tick: e.clock}, nil
}

// selectVictim asks the active policy first. Pages loaded under the other
// policy are only tracked there, so when the active record is empty the
// other one still names a resident page.
func (e *Engine) selectVictim(active replacer.Policy) (page.VirtualPage, bool) {
	if victim, ok := active.SelectVictim(); ok {
		return victim, true
	}
	for _, kind := range replacer.Kinds {
		if kind == active.Kind() {
			continue
		}
		if victim, ok := e.policies[kind].SelectVictim(); ok {
			e.logger.Debug("victim taken from other policy", "active", active.Kind(), "from", kind)
			return victim, true
		}
	}
	return page.VirtualPage{}, false
}

// purge drops vp from every replacement record.
func (e *Engine) purge(vp page.VirtualPage) {
	for _, kind := range replacer.Kinds {
		e.policies[kind].Remove(vp)
	}
}

func (e *Engine) recordFault(vp page.VirtualPage, kind replacer.Kind, out Outcome) {
	ev := e.faults.Record(faultlog.Event{
		Tick:      out.Tick,
		Time:      e.now(),
		Container: vp.Container,
		Page:      vp.Number,
		Policy:    kind,
		Evicted:   out.Evicted,
		Resolved:  out.Result == FaultResolved,
	})
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(ev); err != nil {
		e.logger.Error("fault journal append failed", "seq", ev.Seq, "error", err)
	}
}

/* VIEWS */

// MemoryState returns one slot per physical frame in index order.
func (e *Engine) MemoryState() []frame.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames.Snapshot()
}

// FaultLog returns every fault in arrival order.
func (e *Engine) FaultLog() []faultlog.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.faults.All()
}

// Resident returns the resident page numbers of id in ascending order.
func (e *Engine) Resident(id util.ContainerID) ([]util.PageNumber, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.registry.Exists(id) {
		return nil, fmt.Errorf("[engine] [Resident] container %d: %w", id, util.ErrInvalidContainer)
	}
	var out []util.PageNumber
	for _, s := range e.frames.Snapshot() {
		if s.Page != nil && s.Page.Container == id {
			out = append(out, s.Page.Number)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type ordered interface {
	Order() []page.VirtualPage
}

// EvictionOrder lists the pages tracked by kind, next victim first.
func (e *Engine) EvictionOrder(kind replacer.Kind) ([]page.VirtualPage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.policies[kind]
	if !ok {
		return nil, fmt.Errorf("[engine] [EvictionOrder] %w: %q", util.ErrUnknownPolicy, string(kind))
	}
	o, ok := p.(ordered)
	if !ok {
		return nil, nil
	}
	return o.Order(), nil
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Frames = e.frames.Size()
	s.UsedFrames = e.frames.Used()
	s.FreeFrames = e.frames.Free()
	s.Containers = e.registry.Len()
	return s
}
