package util

import (
	"fmt"
	"log/slog"
)

// ContainerID identifies a live container. Valid ids are positive.
type ContainerID int

// PageNumber is a page index inside one container's address space.
type PageNumber int

// PageSizeKB is the default page (and frame) size in KB.
const PageSizeKB = 4

// DefaultFrames is the default size of the physical frame pool.
const DefaultFrames = 64

func (id ContainerID) Valid() bool { return id > 0 }

func (p PageNumber) Valid() bool { return p >= 0 }

// Options represents the paging engine configuration
type Options struct {
	NumFrames   int
	PageSizeKB  int
	JournalPath string // empty disables the fault journal
	Logger      *slog.Logger
}

// DefaultOptions returns default engine options
func DefaultOptions() Options {
	return Options{
		NumFrames:  DefaultFrames, // 256KB of 4KB frames
		PageSizeKB: PageSizeKB,
	}
}

func (o Options) Validate() error {
	if o.NumFrames < 0 {
		return fmt.Errorf("%w: %d frames", ErrInvalidPoolSize, o.NumFrames)
	}
	if o.PageSizeKB <= 0 {
		return fmt.Errorf("%w: %d KB", ErrInvalidPageSize, o.PageSizeKB)
	}
	return nil
}

// PagesFor converts a memory request into whole pages, rounding down.
func (o Options) PagesFor(memoryKB int) int {
	return memoryKB / o.PageSizeKB
}
