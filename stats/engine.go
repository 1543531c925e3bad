// Package stats implements the per-cache statistics and accounting core: hit
// and miss counters, the compulsory-miss detector, child-hit and invalidation
// accounting, an optional per-PC miss histogram, an optional working-set
// sampler, and a formatted end-of-run report.
package stats

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/minglechen/dynamorio/csvtable"
	"github.com/minglechen/dynamorio/dlog"
	"github.com/minglechen/dynamorio/interval"
	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/workingset"
)

// InvalidateKind distinguishes the two invalidation counters.
type InvalidateKind int

const (
	// InvalidateInclusive is an invalidation due to cache inclusion.
	InvalidateInclusive InvalidateKind = iota
	// InvalidateCoherence is an invalidation due to an external write.
	InvalidateCoherence
)

// StatsCounters is a read-only snapshot of an Engine's counters.
type StatsCounters struct {
	Hits, HitsAtReset           uint64
	Misses, MissesAtReset       uint64
	CompulsoryMisses            uint64
	ChildHits, ChildHitsAtReset uint64
	InclusiveInvalidates        uint64
	CoherenceInvalidates        uint64
	PrefetchHits, PrefetchMisses uint64
	Flushes                      uint64
}

// Engine is the stats engine owned by a single caching device. It is not
// safe for concurrent use; the owning cache must serialize calls to it with
// respect to the reference stream it is fed.
type Engine struct {
	compulsory *interval.BlockSet

	counters StatsCounters
	hasReset bool

	warmupEnabled bool
	coherent      bool

	recordInstrAccessMisses bool
	instrAccessHist         map[uint64]uint64

	missDump    io.WriteCloser
	missDumpRaw *os.File
	missDumpOk  bool

	addr2LinePath          string
	addr2Line              *csvtable.Addr2LineTable
	addr2LineLoadAttempted bool

	workingSet *workingset.Sampler

	topK   int
	logger dlog.Logger
}

// New creates an Engine tracking compulsory misses at the given block size,
// which must be a power of two.
func New(blockSize uint64, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	compulsory, err := interval.New(blockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	e := &Engine{
		compulsory:              compulsory,
		warmupEnabled:            cfg.warmupEnabled,
		coherent:                cfg.coherent,
		recordInstrAccessMisses: cfg.recordInstrAccessMisses,
		instrAccessHist:         make(map[uint64]uint64),
		addr2LinePath:           cfg.addr2LinePath,
		addr2Line:               csvtable.NewAddr2LineTable(),
		topK:                    cfg.topK,
		logger:                  cfg.logger,
		missDumpOk:              true,
	}

	if cfg.workingSetLineSize != 0 {
		ws, err := workingset.NewSampler(cfg.workingSetLineSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		e.workingSet = ws
	}

	if cfg.missDumpPath != "" {
		e.openMissDump(cfg.missDumpPath, cfg.missDumpCompress)
	}

	return e, nil
}

func (e *Engine) openMissDump(path string, compress bool) {
	f, err := os.Create(path)
	if err != nil {
		e.logger.Warningf("%v: %s: %v", ErrIoOpenFailed, path, err)
		e.missDumpOk = false
		return
	}
	if compress {
		e.missDump = gzip.NewWriter(f)
		e.missDumpRaw = f
	} else {
		e.missDump = f
	}
}

// IsOk reports whether the engine's configured capabilities (currently just
// the miss-dump sink) are live. An engine with IsOk() == false still
// functions, with the offending capability silently disabled.
func (e *Engine) IsOk() bool {
	return e.missDumpOk
}

// Close releases the miss-dump sink, if any.
func (e *Engine) Close() error {
	if e.missDump == nil {
		return nil
	}
	err := e.missDump.Close()
	if e.missDumpRaw != nil {
		if cerr := e.missDumpRaw.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Access records one reference against this device, given whether it hit.
func (e *Engine) Access(ref memref.Reference, hit bool) {
	if hit {
		e.counters.Hits++
		if ref.Kind.IsPrefetch() {
			e.counters.PrefetchHits++
		}
	} else {
		e.counters.Misses++
		if ref.Kind.IsPrefetch() {
			e.counters.PrefetchMisses++
		}
		e.dumpMiss(ref)

		if e.recordInstrAccessMisses && !ref.Kind.IsInstr() {
			e.instrAccessHist[ref.PC]++
		}

		found, hint := e.compulsory.Lookup(ref.Addr)
		if !found {
			e.counters.CompulsoryMisses++
			e.compulsory.Insert(hint)
		}
	}

	if e.workingSet != nil {
		e.workingSet.Touch(ref.Addr)
	}
}

func (e *Engine) dumpMiss(ref memref.Reference) {
	if e.missDump == nil {
		return
	}
	fmt.Fprintf(e.missDump, "0x%x,0x%x\n", ref.PC, ref.Addr)
}

// ChildAccess records one access made at a child (closer-to-core) cache of
// this device, given whether the child hit. Only child hits affect
// counters; a child miss reaches this device through its own Access call.
func (e *Engine) ChildAccess(ref memref.Reference, hit bool) {
	if hit {
		e.counters.ChildHits++
	}
}

// Invalidate records one invalidation event of the given kind.
func (e *Engine) Invalidate(kind InvalidateKind) {
	switch kind {
	case InvalidateInclusive:
		e.counters.InclusiveInvalidates++
	case InvalidateCoherence:
		e.counters.CoherenceInvalidates++
	}
}

// FlushWorkingSet stores the current working-set window's size at
// instrCount and clears it. A no-op if the working-set sampler is disabled.
func (e *Engine) FlushWorkingSet(instrCount uint64) {
	if e.workingSet == nil {
		return
	}
	e.workingSet.Flush(instrCount)
	e.counters.Flushes++
}

// Reset snapshots the live hit/miss/child-hit counters into their
// at-reset twins and zeros them. The compulsory-miss set and the
// instruction-miss histogram are deliberately left untouched: first-touch
// is a trace-wide property, not a warmup property.
func (e *Engine) Reset() {
	e.counters.HitsAtReset = e.counters.Hits
	e.counters.MissesAtReset = e.counters.Misses
	e.counters.ChildHitsAtReset = e.counters.ChildHits

	e.counters.Hits = 0
	e.counters.Misses = 0
	e.counters.CompulsoryMisses = 0
	e.counters.ChildHits = 0
	e.counters.InclusiveInvalidates = 0
	e.counters.CoherenceInvalidates = 0

	e.hasReset = true
}

// Stats returns a snapshot of the current counters.
func (e *Engine) Stats() StatsCounters {
	return e.counters
}

// MissHistogram returns the per-PC data-miss histogram backing the miss
// histogram report. Empty if WithRecordInstrAccessMisses was not given.
func (e *Engine) MissHistogram() map[uint64]uint64 {
	return e.instrAccessHist
}

// GetMetric returns the current value of the named metric, or 0 and a
// logged diagnostic if name is not one of the fixed metric names.
func (e *Engine) GetMetric(name string) uint64 {
	switch name {
	case "Hits":
		return e.counters.Hits
	case "Misses":
		return e.counters.Misses
	case "HitsAtReset":
		return e.counters.HitsAtReset
	case "MissesAtReset":
		return e.counters.MissesAtReset
	case "CompulsoryMisses":
		return e.counters.CompulsoryMisses
	case "ChildHits":
		return e.counters.ChildHits
	case "ChildHitsAtReset":
		return e.counters.ChildHitsAtReset
	case "InclusiveInvalidates":
		return e.counters.InclusiveInvalidates
	case "CoherenceInvalidates":
		return e.counters.CoherenceInvalidates
	case "PrefetchHits":
		return e.counters.PrefetchHits
	case "PrefetchMisses":
		return e.counters.PrefetchMisses
	case "Flushes":
		return e.counters.Flushes
	default:
		e.logger.Warningf("%v: %q", ErrUnknownMetric, name)
		return 0
	}
}

func (e *Engine) ensureAddr2Line() bool {
	if e.addr2LinePath == "" {
		return false
	}
	if e.addr2LineLoadAttempted {
		return e.addr2Line.Loaded()
	}
	e.addr2LineLoadAttempted = true
	if err := e.addr2Line.Load(e.addr2LinePath); err != nil {
		switch {
		case errors.Is(err, csvtable.ErrMissingColumn):
			err = fmt.Errorf("%w: %v", ErrCsvMissingColumn, err)
		case errors.Is(err, csvtable.ErrParseFailed):
			err = fmt.Errorf("%w: %v", ErrCsvParseFailed, err)
		default:
			err = fmt.Errorf("%w: %v", ErrIoOpenFailed, err)
		}
		e.logger.Warningf("stats: symbolization disabled: %v", err)
		return false
	}
	return true
}
