package faultlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
	"github.com/vmihailenco/msgpack/v5"
)

type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	JSONL   Format = "jsonl"
	MsgPack Format = "msgpack"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, JSONL, MsgPack:
		return f, nil
	case "":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: %q", util.ErrUnknownFormat, s)
	}
}

// ContentType is the media type served for f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case JSONL:
		return "application/x-ndjson"
	case MsgPack:
		return "application/msgpack"
	default:
		return "application/json"
	}
}

// Export writes events to w in the given format.
func Export(w io.Writer, events []Event, f Format) error {
	switch f {
	case CSV:
		return exportCSV(w, events)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if events == nil {
			events = []Event{}
		}
		return enc.Encode(events)
	case JSONL:
		enc := json.NewEncoder(w)
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("[faultlog] [Export] event %d: %w", e.Seq, err)
			}
		}
		return nil
	case MsgPack:
		return msgpack.NewEncoder(w).Encode(events)
	default:
		return fmt.Errorf("[faultlog] [Export] %w: %q", util.ErrUnknownFormat, string(f))
	}
}

func exportCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	row := make([]string, len(Columns))
	for _, e := range events {
		fields := e.Fields()
		for i, col := range Columns {
			row[i] = fmt.Sprint(fields[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("[faultlog] [Export] event %d: %w", e.Seq, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
