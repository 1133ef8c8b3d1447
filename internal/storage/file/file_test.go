package file

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func readLines(t *testing.T, path string) []record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestNewJournal(t *testing.T) {
	tests := []struct {
		name          string
		path          func(t *testing.T) string
		shouldSucceed bool
	}{
		{
			name: "Valid temp file",
			path: func(t *testing.T) string {
				p, _ := util.CreateTempFile(t)
				return p
			},
			shouldSucceed: true,
		},
		{
			name:          "Empty path",
			path:          func(*testing.T) string { return "" },
			shouldSucceed: false,
		},
		{
			name: "Missing directory",
			path: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "no", "such", "dir.jsonl")
			},
			shouldSucceed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewJournal(tt.path(t))
			if !tt.shouldSucceed {
				assert.Error(t, err)
				assert.Nil(t, j)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, j.Close())
		})
	}
}

func TestJournalAppend(t *testing.T) {
	path, cleanup := util.CreateTempFile(t)
	defer cleanup()

	j, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(record{Seq: 1, Note: "first"}))
	require.NoError(t, j.Append(record{Seq: 2, Note: "second"}))

	// lines are flushed on every append
	assert.Equal(t, []record{{1, "first"}, {2, "second"}}, readLines(t, path))
	require.NoError(t, j.Close())

	t.Run("Reopen appends", func(t *testing.T) {
		j, err := NewJournal(path)
		require.NoError(t, err)
		require.NoError(t, j.Append(record{Seq: 3}))
		require.NoError(t, j.Close())
		assert.Len(t, readLines(t, path), 3)
	})

	t.Run("Append after close", func(t *testing.T) {
		assert.ErrorIs(t, j.Append(record{Seq: 4}), util.ErrJournalClosed)
	})

	t.Run("Close idempotent", func(t *testing.T) {
		assert.NoError(t, j.Close())
		var nilJournal *Journal
		assert.NoError(t, nilJournal.Close())
	})

	t.Run("Encode error", func(t *testing.T) {
		j, err := NewJournal(path)
		require.NoError(t, err)
		defer j.Close()
		assert.Error(t, j.Append(make(chan int)))
	})
}
