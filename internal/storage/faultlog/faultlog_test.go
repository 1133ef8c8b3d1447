package faultlog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bietkhonhungvandi212/minidock/internal/storage/page"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/replacer"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleLog() *Log {
	l := New()
	l.Record(Event{Tick: 1, Time: t0, Container: 1, Page: 4, Policy: replacer.FIFO, Resolved: true})
	l.Record(Event{Tick: 3, Time: t0.Add(time.Second), Container: 2, Page: 0, Policy: replacer.LRU,
		Evicted: page.New(1, 4).Ptr(), Resolved: true})
	l.Record(Event{Tick: 4, Time: t0.Add(2 * time.Second), Container: 2, Page: 1, Policy: replacer.LRU})
	return l
}

func TestLog(t *testing.T) {
	t.Run("ArrivalOrder", func(t *testing.T) {
		l := sampleLog()
		events := l.All()
		require.Len(t, events, 3)
		for i, e := range events {
			assert.Equal(t, uint64(i+1), e.Seq)
		}
		assert.Equal(t, util.ContainerID(2), events[1].Container)
	})

	t.Run("NoDeduplication", func(t *testing.T) {
		l := New()
		e := Event{Container: 1, Page: 1, Policy: replacer.FIFO}
		l.Record(e)
		l.Record(e)
		assert.Equal(t, 2, l.Len())
	})

	t.Run("AllIsCopy", func(t *testing.T) {
		l := sampleLog()
		events := l.All()
		events[0].Page = 99
		assert.Equal(t, util.PageNumber(4), l.All()[0].Page)
	})
}

func TestFields(t *testing.T) {
	e := sampleLog().All()[1]
	fields := e.Fields()
	assert.Len(t, fields, len(Columns))
	assert.Equal(t, "C1_P4", fields["evicted"])
	assert.Equal(t, "LRU", fields["policy"])
	assert.Equal(t, 2, fields["container"])
	assert.Equal(t, "", sampleLog().All()[0].Fields()["evicted"])
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": CSV, "JSON": JSON, "jsonl": JSONL, "MsgPack": MsgPack, "": JSON} {
		got, err := ParseFormat(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, util.ErrUnknownFormat)
}

func TestExport(t *testing.T) {
	events := sampleLog().All()

	t.Run("CSV", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, events, CSV))
		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, Columns, rows[0])
		assert.Equal(t, []string{"2", "3", t0.Add(time.Second).Format(time.RFC3339Nano), "2", "0", "LRU", "C1_P4", "true"}, rows[2])
		assert.Equal(t, "false", rows[3][7])
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, events, JSON))
		var got []Event
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, events, got)
	})

	t.Run("JSONEmpty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, nil, JSON))
		assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
	})

	t.Run("JSONL", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, events, JSONL))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		var e Event
		require.NoError(t, json.Unmarshal([]byte(lines[2]), &e))
		assert.Equal(t, uint64(3), e.Seq)
		assert.False(t, e.Resolved)
	})

	t.Run("MsgPack", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, events, MsgPack))
		var got []Event
		require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 3)
		assert.Equal(t, page.New(1, 4), *got[1].Evicted)
		assert.Nil(t, got[0].Evicted)
		assert.True(t, events[2].Time.Equal(got[2].Time))
	})

	t.Run("Unknown", func(t *testing.T) {
		assert.ErrorIs(t, Export(&bytes.Buffer{}, events, Format("xml")), util.ErrUnknownFormat)
	})
}
