package container

import (
	"fmt"
	"sort"
	"time"

	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

// Container is the metadata of one simulated container. Running is a
// cosmetic flag and never gates memory operations.
type Container struct {
	ID        util.ContainerID `json:"id"`
	MemoryKB  int              `json:"memory_kb"`
	Pages     int              `json:"pages"`
	Running   bool             `json:"running"`
	CreatedAt time.Time        `json:"created_at"`
}

// Registry tracks live containers. Not safe for concurrent use on its own.
type Registry struct {
	containers map[util.ContainerID]*Container
	nextID     util.ContainerID
	now        func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		containers: make(map[util.ContainerID]*Container),
		nextID:     1,
		now:        time.Now,
	}
}

// Allocate returns the smallest unused id at or after the auto-id counter.
// It does not register anything; the counter moves on Add.
func (r *Registry) Allocate() util.ContainerID {
	id := r.nextID
	for {
		if _, live := r.containers[id]; !live {
			return id
		}
		id++
	}
}

// Check reports whether id can be registered.
func (r *Registry) Check(id util.ContainerID) error {
	if !id.Valid() {
		return fmt.Errorf("[registry] container %d: %w", id, util.ErrInvalidContainer)
	}
	if _, live := r.containers[id]; live {
		return fmt.Errorf("[registry] container %d: %w", id, util.ErrDuplicateID)
	}
	return nil
}

// Add registers a container. auto marks ids obtained from Allocate, which
// advance the counter.
func (r *Registry) Add(id util.ContainerID, memoryKB, pages int, auto bool) (Container, error) {
	if err := r.Check(id); err != nil {
		return Container{}, err
	}
	c := &Container{ID: id, MemoryKB: memoryKB, Pages: pages, CreatedAt: r.now()}
	r.containers[id] = c
	if auto {
		r.nextID = id + 1
	}
	return *c, nil
}

func (r *Registry) Get(id util.ContainerID) (Container, error) {
	c, ok := r.containers[id]
	if !ok {
		return Container{}, fmt.Errorf("[registry] container %d: %w", id, util.ErrInvalidContainer)
	}
	return *c, nil
}

func (r *Registry) Exists(id util.ContainerID) bool {
	_, ok := r.containers[id]
	return ok
}

func (r *Registry) SetRunning(id util.ContainerID, running bool) error {
	c, ok := r.containers[id]
	if !ok {
		return fmt.Errorf("[registry] container %d: %w", id, util.ErrInvalidContainer)
	}
	c.Running = running
	return nil
}

func (r *Registry) Remove(id util.ContainerID) error {
	if _, ok := r.containers[id]; !ok {
		return fmt.Errorf("[registry] container %d: %w", id, util.ErrInvalidContainer)
	}
	delete(r.containers, id)
	return nil
}

// List returns every live container ordered by id.
func (r *Registry) List() []Container {
	out := make([]Container, 0, len(r.containers))
	for _, c := range r.containers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Len() int { return len(r.containers) }
