package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bietkhonhungvandi212/minidock/internal/paging"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/faultlog"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/frame"
	"github.com/bietkhonhungvandi212/minidock/internal/storage/replacer"
	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
	"github.com/bietkhonhungvandi212/minidock/internal/workload"
)

const helpText = `Commands:
  create [memory_kb] [id]             - Create container (memory defaults to %d KB)
  start <container_id>                - Mark container running
  stop <container_id>                 - Mark container stopped
  destroy <container_id>              - Destroy container and free its frames
  access <container_id> <page> <algo> - Access page in container (algo: FIFO or LRU)
  simulate <container_id> <algo> [n]  - Run n random accesses (default %d)
  mem                                 - Show memory frames
  ps                                  - List containers
  faults                              - Show page fault log
  export <csv|json|jsonl|msgpack> <path> - Write page fault log to file
  stats                               - Show counters
  help                                - Show this help
  exit                                - Exit
`

var errExit = errors.New("exit")

// Settings are the shell defaults taken from the config file.
type Settings struct {
	DefaultMemoryKB int
	Accesses        int
	Delay           time.Duration
}

// Shell is the line-mode front end of the engine.
type Shell struct {
	eng      *paging.Engine
	gen      *workload.Generator
	settings Settings
	out      io.Writer
}

func New(eng *paging.Engine, gen *workload.Generator, settings Settings, out io.Writer) *Shell {
	return &Shell{eng: eng, gen: gen, settings: settings, out: out}
}

// Run reads commands from in until exit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "minidock shell started. Type 'help' for commands.")
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, ">> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Exec(ctx, sc.Text())
		if errors.Is(err, errExit) {
			fmt.Fprintln(s.out, "Exiting minidock shell.")
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

// Exec runs one command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	switch cmd, args := strings.ToLower(args[0]), args[1:]; cmd {
	case "create":
		return s.create(args)
	case "start", "stop", "destroy", "terminate":
		return s.lifecycle(cmd, args)
	case "access":
		return s.access(args)
	case "simulate":
		return s.simulate(ctx, args)
	case "mem":
		s.printMemory(s.eng.MemoryState())
	case "ps":
		s.printContainers()
	case "faults":
		return faultlog.Export(s.out, s.eng.FaultLog(), faultlog.CSV)
	case "export":
		return s.export(args)
	case "stats":
		s.printStats()
	case "help":
		fmt.Fprintf(s.out, helpText, s.settings.DefaultMemoryKB, s.settings.Accesses)
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %q, type 'help' for commands", cmd)
	}
	return nil
}

func (s *Shell) create(args []string) error {
	mem := s.settings.DefaultMemoryKB
	var id util.ContainerID
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("memory_kb: %w", err)
		}
		mem = n
	}
	if len(args) > 1 {
		n, err := parseID(args[1])
		if err != nil {
			return err
		}
		id = n
	}

	cid, err := s.eng.CreateContainer(id, mem)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Created container %d with %d KB memory.\n", cid, mem)
	return nil
}

func (s *Shell) lifecycle(cmd string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <container_id>", cmd)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	switch cmd {
	case "start":
		err = s.eng.StartContainer(id)
	case "stop":
		err = s.eng.StopContainer(id)
	default:
		err = s.eng.DestroyContainer(id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Container %d: %s done.\n", id, cmd)
	return nil
}

func (s *Shell) access(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: access <container_id> <page_number> <algorithm>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("page_number: %w", err)
	}
	kind, err := replacer.ParseKind(args[2])
	if err != nil {
		return err
	}

	out, err := s.eng.Access(id, util.PageNumber(p), kind)
	if err != nil {
		return err
	}
	switch {
	case out.Result == paging.FaultUnresolved:
		fmt.Fprintf(s.out, "%s: no frame available for C%d_P%d\n", out.Result, id, p)
	case out.Evicted != nil:
		fmt.Fprintf(s.out, "%s: frame %d, evicted %s\n", out.Result, out.Frame, out.Evicted)
	default:
		fmt.Fprintf(s.out, "%s: frame %d\n", out.Result, out.Frame)
	}
	return nil
}

func (s *Shell) simulate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: simulate <container_id> <algorithm> [count]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	kind, err := replacer.ParseKind(args[1])
	if err != nil {
		return err
	}
	count := s.settings.Accesses
	if len(args) > 2 {
		if count, err = strconv.Atoi(args[2]); err != nil || count < 0 {
			return fmt.Errorf("count: invalid %q", args[2])
		}
	}

	report, err := s.gen.Run(ctx, workload.Request{Container: id, Policy: kind, Accesses: count, Delay: s.settings.Delay})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Simulated %d accesses on container %d (%s): %d hits, %d faults, %d evictions.\n",
		len(report.Pages), id, kind, report.Hits, report.Faults, report.Evictions)
	return nil
}

func (s *Shell) export(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: export <csv|json|jsonl|msgpack> <path>")
	}
	format, err := faultlog.ParseFormat(args[0])
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	events := s.eng.FaultLog()
	if err := faultlog.Export(f, events, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Exported %d page faults to %s.\n", len(events), args[1])
	return nil
}

// printMemory renders eight frames per row.
func (s *Shell) printMemory(slots []frame.Slot) {
	fmt.Fprintln(s.out, "Memory Frames:")
	for _, slot := range slots {
		status := "Free"
		if slot.Page != nil {
			status = slot.Page.String()
		}
		fmt.Fprintf(s.out, "[%d]: %s  ", slot.Index, status)
		if (slot.Index+1)%8 == 0 {
			fmt.Fprintln(s.out)
		}
	}
	if len(slots)%8 != 0 {
		fmt.Fprintln(s.out)
	}
}

func (s *Shell) printContainers() {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMEMORY_KB\tPAGES\tRUNNING")
	for _, c := range s.eng.Containers() {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%t\n", c.ID, c.MemoryKB, c.Pages, c.Running)
	}
	tw.Flush()
}

func (s *Shell) printStats() {
	st := s.eng.Stats()
	fmt.Fprintf(s.out, "accesses=%d hits=%d faults=%d evictions=%d unresolved=%d hit_ratio=%.2f\n",
		st.Accesses, st.Hits, st.Faults, st.Evictions, st.Unresolved, st.HitRatio())
	fmt.Fprintf(s.out, "frames=%d used=%d free=%d containers=%d\n",
		st.Frames, st.UsedFrames, st.FreeFrames, st.Containers)
}

func parseID(s string) (util.ContainerID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("container_id: %w", err)
	}
	return util.ContainerID(n), nil
}
