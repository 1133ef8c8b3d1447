package util

import "errors"

var (
	ErrInvalidPoolSize     = errors.New("invalid pool size")
	ErrInvalidPageSize     = errors.New("invalid page size")
	ErrInvalidFrame        = errors.New("frame idx out of bound")
	ErrInvalidContainer    = errors.New("invalid container")
	ErrInvalidPage         = errors.New("invalid page number")
	ErrInvalidMemorySize   = errors.New("invalid memory size")
	ErrInsufficientMemory  = errors.New("insufficient memory")
	ErrDuplicateID         = errors.New("container id already in use")
	ErrPageAlreadyResident = errors.New("page is already resident")
	ErrUnknownPolicy       = errors.New("unknown replacement policy")
	ErrUnknownFormat       = errors.New("unknown export format")
	ErrNoPages             = errors.New("container has no pages")
	ErrJournalClosed       = errors.New("journal is closed")
)

// ErrOutOfMemory is the name callers of CreateContainer know the reservation
// failure by.
var ErrOutOfMemory = ErrInsufficientMemory
