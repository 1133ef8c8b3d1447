package workload

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bietkhonhungvandi212/minidock/internal/container"
	"github.com/bietkhonhungvandi212/minidock/internal/paging"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/replacer"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

// Engine is the part of the paging engine the generator drives.
type Engine interface {
	Container(id util.ContainerID) (container.Container, error)
	Access(id util.ContainerID, number util.PageNumber, kind replacer.Kind) (paging.Outcome, error)
}

// Request describes one simulated process run against a container.
type Request struct {
	Container util.ContainerID `json:"container"`
	Policy    replacer.Kind    `json:"policy"`
	Accesses  int              `json:"accesses"`
	MaxPage   int              `json:"max_page"` // 0 = the container's page count
	Delay     time.Duration    `json:"delay"`
}

// Report summarizes a run. Pages lists the accessed pages in order.
type Report struct {
	Container  util.ContainerID  `json:"container"`
	Policy     replacer.Kind     `json:"policy"`
	Pages      []util.PageNumber `json:"pages"`
	Hits       int               `json:"hits"`
	Faults     int               `json:"faults"`
	Evictions  int               `json:"evictions"`
	Unresolved int               `json:"unresolved"`
}

// Generator issues uniformly random page accesses. Safe for concurrent use;
// runs interleave on the engine's lock.
type Generator struct {
	eng    Engine
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New seeds the generator; seed 0 seeds from the clock.
func New(eng Engine, seed int64, logger *slog.Logger) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		eng:    eng,
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1)|1)),
	}
}

// Run performs req.Accesses accesses, sleeping req.Delay between them. A
// cancelled context stops the run and returns what was done so far.
func (g *Generator) Run(ctx context.Context, req Request) (Report, error) {
	report := Report{Container: req.Container, Policy: req.Policy}

	c, err := g.eng.Container(req.Container)
	if err != nil {
		return report, fmt.Errorf("[workload] [Run] %w", err)
	}
	maxPage := req.MaxPage
	if maxPage <= 0 {
		maxPage = c.Pages
	}
	if maxPage <= 0 {
		return report, fmt.Errorf("[workload] [Run] container %d: %w", req.Container, util.ErrNoPages)
	}

	g.logger.Info("workload started", "container", req.Container, "policy", req.Policy,
		"accesses", req.Accesses, "max_page", maxPage)

	for i := 0; i < req.Accesses; i++ {
		if i > 0 && req.Delay > 0 {
			if err := sleep(ctx, req.Delay); err != nil {
				return report, err
			}
		} else if err := ctx.Err(); err != nil {
			return report, err
		}

		p := g.nextPage(maxPage)
		out, err := g.eng.Access(req.Container, p, req.Policy)
		if err != nil {
			return report, fmt.Errorf("[workload] [Run] access %d: %w", i, err)
		}
		report.Pages = append(report.Pages, p)
		switch out.Result {
		case paging.Hit:
			report.Hits++
		case paging.FaultResolved:
			report.Faults++
			if out.Evicted != nil {
				report.Evictions++
			}
		case paging.FaultUnresolved:
			report.Faults++
			report.Unresolved++
		}
	}

	g.logger.Info("workload finished", "container", req.Container,
		"hits", report.Hits, "faults", report.Faults, "evictions", report.Evictions)
	return report, nil
}

func (g *Generator) nextPage(maxPage int) util.PageNumber {
	g.mu.Lock()
	defer g.mu.Unlock()
	return util.PageNumber(g.rng.IntN(maxPage))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
