// Package instrcount implements the trace-wide instruction-reference
// counting tool: per-shard accumulation with a mutex-protected registry but
// lock-free per-shard updates, deterministic reduction, and a top-K
// referenced-instruction report.
package instrcount

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/minglechen/dynamorio/csvtable"
	"github.com/minglechen/dynamorio/dlog"
	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/topk"
)

type shardData struct {
	id       xid.ID
	instrMap map[uint64]uint64
}

// ShardHandle is the opaque token ParallelShardInit returns. It carries no
// exported state; holders can only pass it back into ParallelShardMemref
// and ParallelShardExit.
type ShardHandle struct {
	data *shardData
}

// Tool accumulates per-PC instruction-fetch counts across one or more
// shards and reduces them into a single trace-wide map.
type Tool struct {
	mu     sync.Mutex
	shards []*shardData
	serial *shardData

	reduced   map[uint64]uint64
	reducedOk bool

	topK          int
	addr2LinePath string
	addr2Line     *csvtable.Addr2LineTable
	loadAttempted bool
	outputDir     string
	logger        dlog.Logger
}

// NewTool creates an empty Tool.
func NewTool(opts ...Option) *Tool {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Tool{
		topK:          cfg.topK,
		addr2LinePath: cfg.addr2LinePath,
		addr2Line:     csvtable.NewAddr2LineTable(),
		outputDir:     cfg.outputDir,
		logger:        cfg.logger,
	}
}

// ParallelShardInit registers a new shard under the registry lock and
// returns its opaque handle.
func (t *Tool) ParallelShardInit(shardIndex int) ShardHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &shardData{id: xid.New(), instrMap: make(map[uint64]uint64)}
	t.shards = append(t.shards, s)
	return ShardHandle{data: s}
}

// ParallelShardMemref records one reference against shard, incrementing its
// PC count when the reference is an instruction fetch. No lock: each shard
// is touched by exactly one worker.
func (t *Tool) ParallelShardMemref(shard ShardHandle, ref memref.Reference) {
	if !ref.Kind.IsInstr() {
		return
	}
	shard.data.instrMap[ref.Addr]++
}

// ParallelShardExit is a no-op; ReduceResults reads shard state later.
func (t *Tool) ParallelShardExit(shard ShardHandle) {}

// ProcessMemref is the serial path: it lazily creates a single shard and
// delegates to ParallelShardMemref.
func (t *Tool) ProcessMemref(ref memref.Reference) {
	t.mu.Lock()
	if t.serial == nil {
		t.serial = &shardData{id: xid.New(), instrMap: make(map[uint64]uint64)}
	}
	serial := t.serial
	t.mu.Unlock()

	t.ParallelShardMemref(ShardHandle{data: serial}, ref)
}

// ReduceResults sums every registered shard's map into one trace-wide
// result. If no shards were registered via ParallelShardInit, the serial
// shard (if any) is aliased as the result directly.
func (t *Tool) ReduceResults() map[uint64]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.shards) == 0 {
		if t.serial != nil {
			t.reduced = t.serial.instrMap
		} else {
			t.reduced = map[uint64]uint64{}
		}
		t.reducedOk = true
		return t.reduced
	}

	reduced := make(map[uint64]uint64)
	for _, s := range t.shards {
		for addr, count := range s.instrMap {
			reduced[addr] += count
		}
	}
	t.reduced = reduced
	t.reducedOk = true
	return reduced
}

func (t *Tool) ensureAddr2Line() bool {
	if t.addr2LinePath == "" {
		return false
	}
	if t.loadAttempted {
		return t.addr2Line.Loaded()
	}
	t.loadAttempted = true
	if err := t.addr2Line.Load(t.addr2LinePath); err != nil {
		t.logger.Warningf("instrcount: symbolization disabled: %v", err)
		return false
	}
	return true
}

// PrintResults reduces the shards, then renders the unique
// instruction count and the top-K referenced PCs to w, symbolized if an
// Addr2LineTable path was supplied. If an output directory was configured,
// it also writes instr_counts.csv there.
func (t *Tool) PrintResults(w io.Writer) error {
	reduced := t.ReduceResults()
	symbolize := t.ensureAddr2Line()

	fmt.Fprintf(w, "%d unique instructions\n", len(reduced))
	for _, entry := range topk.Top(reduced, t.topK) {
		fmt.Fprintf(w, "  0x%x %d\n", entry.Addr, entry.Count)
		if symbolize {
			if info, ok := t.addr2Line.Lookup(entry.Addr); ok {
				fmt.Fprintf(w, "    %s:%d %s\n", info.Path, info.Line, info.Symbol)
			}
		}
	}

	if t.outputDir == "" {
		return nil
	}
	return t.writeInstrCountsCSV(reduced)
}

func (t *Tool) writeInstrCountsCSV(reduced map[uint64]uint64) error {
	path := filepath.Join(t.outputDir, "instr_counts.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("instrcount: %s: %w", path, err)
	}
	defer f.Close()

	rows := make([]csvtable.InstrCountRow, 0, len(reduced))
	for addr, count := range reduced {
		rows = append(rows, csvtable.InstrCountRow{Addr: addr, Count: count})
	}

	var table *csvtable.Addr2LineTable
	if t.addr2Line.Loaded() {
		table = t.addr2Line
	}
	return csvtable.WriteInstrCountsCSV(f, rows, table)
}

// RunSharded partitions refs into numShards contiguous chunks and runs each
// through the shard lifecycle on its own goroutine, exercising the full
// shard-creation-under-lock / lock-free-update / post-hoc-reduce contract
// end to end.
func (t *Tool) RunSharded(ctx context.Context, refs []memref.Reference, numShards int) error {
	if numShards < 1 {
		numShards = 1
	}
	g, ctx := errgroup.WithContext(ctx)

	chunk := (len(refs) + numShards - 1) / numShards
	for i := 0; i < numShards; i++ {
		start := i * chunk
		if start >= len(refs) {
			break
		}
		end := start + chunk
		if end > len(refs) {
			end = len(refs)
		}
		shardIndex, slice := i, refs[start:end]

		g.Go(func() error {
			handle := t.ParallelShardInit(shardIndex)
			for _, ref := range slice {
				if err := ctx.Err(); err != nil {
					return err
				}
				t.ParallelShardMemref(handle, ref)
			}
			t.ParallelShardExit(handle)
			return nil
		})
	}
	return g.Wait()
}
