// Package topk implements the partial top-K selection shared by
// stats.Engine's miss histogram report and instrcount.Tool's instruction
// report, a single implementation standing in for the near-identical
// top-K loops previously duplicated across the two report paths.
package topk

import "sort"

// Entry is one (address, count) pair from a histogram.
type Entry struct {
	Addr  uint64
	Count uint64
}

// Top returns the k entries of hist with the largest counts, ties broken by
// ascending address. If len(hist) < k, the result is padded with
// (0, 0) entries so callers always see a slice of length k.
func Top(hist map[uint64]uint64, k int) []Entry {
	entries := make([]Entry, 0, len(hist))
	for addr, count := range hist {
		entries = append(entries, Entry{Addr: addr, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Addr < entries[j].Addr
	})

	if len(entries) > k {
		entries = entries[:k]
	}
	for len(entries) < k {
		entries = append(entries, Entry{})
	}
	return entries
}
