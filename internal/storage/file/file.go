package file

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
)

/**
* Journal appends one JSON document per line to a file. It is an export of
* events as they happen; nothing ever reads it back into the simulator.
**/
type Journal struct {
	File *os.File
	w    *bufio.Writer
	enc  *json.Encoder
	mu   sync.Mutex
}

func NewJournal(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("open journal: empty path")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	w := bufio.NewWriter(f)
	return &Journal{File: f, w: w, enc: json.NewEncoder(w)}, nil
}

/* APPEND */
func (j *Journal) Append(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.File == nil {
		return util.ErrJournalClosed
	}
	if err := j.enc.Encode(v); err != nil {
		return fmt.Errorf("[journal] [Append] encode: %w", err)
	}
	if err := j.w.Flush(); err != nil {
		return fmt.Errorf("[journal] [Append] flush: %w", err)
	}
	return nil
}

/**
* CLOSE FUNCTION
**/
func (j *Journal) Close() error {
	if j == nil {
		return nil // Idempotent
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.File == nil {
		return nil
	}
	var err error
	if e := j.w.Flush(); e != nil {
		err = errors.Join(err, fmt.Errorf("flush journal: %w", e))
	}
	if e := j.File.Sync(); e != nil {
		err = errors.Join(err, fmt.Errorf("sync file: %w", e))
	}
	if e := j.File.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close file: %w", e))
	}
	j.File = nil
	return err
}
