package workingset

import "sort"

// HistoryEntry is one (instruction_count_at_flush, window_cardinality) pair.
type HistoryEntry struct {
	InstrCount uint64
	WindowSize int
}

// history is the ordered instruction_count -> distinct_count mapping,
// backed by a slice + index for O(1) membership checks. Entries() always
// returns instruction-count order, matching an ordered-map's key
// ordering.
type history struct {
	entries []HistoryEntry
	index   map[uint64]int
}

func newHistory() *history {
	return &history{index: make(map[uint64]int)}
}

// Has reports whether instrCount already has a recorded entry.
func (h *history) Has(instrCount uint64) bool {
	_, ok := h.index[instrCount]
	return ok
}

// Set records or overwrites the window size at instrCount.
func (h *history) Set(instrCount uint64, size int) {
	if idx, ok := h.index[instrCount]; ok {
		h.entries[idx].WindowSize = size
		return
	}
	h.index[instrCount] = len(h.entries)
	h.entries = append(h.entries, HistoryEntry{InstrCount: instrCount, WindowSize: size})
}

// Entries returns all recorded entries ordered by ascending instruction
// count.
func (h *history) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].InstrCount < out[j].InstrCount })
	return out
}
