// Package workingset implements the working-set sampler: a periodic
// snapshot of the number of distinct cache-line-aligned addresses touched
// within a window of instruction count. A prior implementation duplicated
// this logic once for the in-cache sampler and once for the standalone
// tool; this package is the single, variant-parameterized replacement.
package workingset

import (
	"errors"
	"fmt"

	"github.com/minglechen/dynamorio/memref"
)

// ErrConfig is returned when a line size is not a power of two.
var ErrConfig = errors.New("workingset: line size must be a power of two")

// DefaultResetInterval is the default number of instructions between
// automatic flushes of the standalone tool's sampler, matching
// working_set_t::default_working_set_reset_interval.
const DefaultResetInterval uint64 = 100_000_000

// Sampler is the in-cache, unified variant used by stats.Engine: every
// access (hit or miss) is a touch, regardless of kind, and flushing is
// driven externally by the owning engine's print_stats / periodic driver.
type Sampler struct {
	lineSize uint64
	window   *blockWindow
	history  *history
}

// NewSampler creates a unified working-set sampler with the given
// cache-line size, which must be a power of two.
func NewSampler(lineSize uint64) (*Sampler, error) {
	w, err := newBlockWindow(lineSize)
	if err != nil {
		return nil, fmt.Errorf("%w: got %d", ErrConfig, lineSize)
	}
	return &Sampler{lineSize: lineSize, window: w, history: newHistory()}, nil
}

// Touch records addr as observed in the current window.
func (s *Sampler) Touch(addr uint64) {
	s.window.touch(addr)
}

// WindowSize returns the number of distinct addresses in the current
// window.
func (s *Sampler) WindowSize() int {
	return s.window.size()
}

// Flush stores the current window's cardinality at instrCount and clears
// the window. If instrCount already has a
// recorded entry, Flush is a no-op (matches
// caching_device_stats.cpp::flush_working_set, which guards against being
// invoked twice at the same instruction count).
func (s *Sampler) Flush(instrCount uint64) {
	if s.history.Has(instrCount) {
		return
	}
	s.history.Set(instrCount, s.window.size())
	s.window.clear()
}

// FinalizeAt ensures instrCount has a recorded entry, adding the current
// window's cardinality if it does not. Call this once at end-of-run before
// reading History.
func (s *Sampler) FinalizeAt(instrCount uint64) {
	if !s.history.Has(instrCount) {
		s.history.Set(instrCount, s.window.size())
	}
}

// History returns the instruction_count -> distinct_count time series in
// ascending instruction-count order.
func (s *Sampler) History() []HistoryEntry {
	return s.history.Entries()
}

// ToolSampler is the standalone working-set tool: separate instruction and
// data variants, with a self-triggered periodic flush every ResetInterval
// ticks of its flush clock, which instruction fetches and references of
// other (non-instruction, non-data) kinds advance (matching working_set_t).
type ToolSampler struct {
	lineSize      uint64
	resetInterval uint64

	instrWindow *hashWindow
	dataWindow  *hashWindow

	instructionCount  uint64
	samplesSinceFlush uint64

	instrHistory *history
	dataHistory  *history
}

// NewToolSampler creates a standalone working-set sampler. resetInterval of
// 0 uses DefaultResetInterval.
func NewToolSampler(lineSize uint64, resetInterval uint64) (*ToolSampler, error) {
	if lineSize == 0 || lineSize&(lineSize-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrConfig, lineSize)
	}
	if resetInterval == 0 {
		resetInterval = DefaultResetInterval
	}
	return &ToolSampler{
		lineSize:      lineSize,
		resetInterval: resetInterval,
		instrWindow:   newHashWindow(),
		dataWindow:    newHashWindow(),
		instrHistory:  newHistory(),
		dataHistory:   newHistory(),
	}, nil
}

// InstructionCount returns the number of instruction-fetch references seen
// so far.
func (t *ToolSampler) InstructionCount() uint64 {
	return t.instructionCount
}

// Process applies the touch policy to one reference: instruction fetches
// and prefetch-instr references populate
// the instruction variant; data reads/writes/prefetches populate the data
// variant; any other kind only advances the flush clock. Only true
// instruction fetches (not prefetch-instr) advance the instruction count.
func (t *ToolSampler) Process(ref memref.Reference) {
	if ref.Kind.IsInstr() {
		t.instructionCount++
		t.samplesSinceFlush++
	}

	switch {
	case ref.Kind.IsInstr() || ref.Kind == memref.KindPrefetchInstr:
		t.recordLines(t.instrWindow, ref.Addr, ref.Size)
	case ref.Kind == memref.KindDataRead || ref.Kind == memref.KindDataWrite || ref.Kind.IsPrefetch():
		t.recordLines(t.dataWindow, ref.Addr, ref.Size)
	default:
		t.samplesSinceFlush++
	}

	if t.samplesSinceFlush >= t.resetInterval {
		t.flush()
	}
}

func (t *ToolSampler) recordLines(w *hashWindow, start, size uint64) {
	aligned := start &^ (t.lineSize - 1)
	for addr := aligned; addr < start+size && addr < addr+t.lineSize; addr += t.lineSize {
		w.touch(addr)
	}
}

func (t *ToolSampler) flush() {
	t.instrHistory.Set(t.instructionCount, t.instrWindow.size())
	t.dataHistory.Set(t.instructionCount, t.dataWindow.size())
	t.instrWindow.clear()
	t.dataWindow.clear()
	t.samplesSinceFlush = 0
}

// Finalize ensures the current instruction count has a recorded entry in
// both histories, for use at end-of-run before reading InstructionHistory /
// DataHistory.
func (t *ToolSampler) Finalize() {
	if !t.instrHistory.Has(t.instructionCount) {
		t.instrHistory.Set(t.instructionCount, t.instrWindow.size())
	}
	if !t.dataHistory.Has(t.instructionCount) {
		t.dataHistory.Set(t.instructionCount, t.dataWindow.size())
	}
}

// InstructionHistory returns the instruction-variant time series.
func (t *ToolSampler) InstructionHistory() []HistoryEntry {
	return t.instrHistory.Entries()
}

// DataHistory returns the data-variant time series.
func (t *ToolSampler) DataHistory() []HistoryEntry {
	return t.dataHistory.Entries()
}
