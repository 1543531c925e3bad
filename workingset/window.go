package workingset

import "github.com/minglechen/dynamorio/interval"

// window is the distinct-address set backing one sampling window. The
// in-cache (unified) sampler backs it with an interval.BlockSet (matching
// caching_device_stats.cpp's working_set_access_count_, itself an
// access_count_t); the standalone tool's instruction/data variants back it
// with a plain hash set of line-aligned addresses (matching working_set.cpp's
// icache_map/dcache_map unordered_map, used here only for its key set).
type window interface {
	touch(addr uint64)
	size() int
	clear()
}

type blockWindow struct {
	set   *interval.BlockSet
	count int
}

func newBlockWindow(lineSize uint64) (*blockWindow, error) {
	set, err := interval.New(lineSize)
	if err != nil {
		return nil, err
	}
	return &blockWindow{set: set}, nil
}

// touch counts first-touches of a block, not coalesced intervals: two
// adjacent blocks merge into one interval in the set but are still two
// distinct addresses in the working set.
func (w *blockWindow) touch(addr uint64) {
	found, hint := w.set.Lookup(addr)
	if !found {
		w.set.Insert(hint)
		w.count++
	}
}

func (w *blockWindow) size() int { return w.count }
func (w *blockWindow) clear() {
	w.set.Clear()
	w.count = 0
}

type hashWindow struct {
	m map[uint64]struct{}
}

func newHashWindow() *hashWindow {
	return &hashWindow{m: make(map[uint64]struct{})}
}

func (w *hashWindow) touch(addr uint64)     { w.m[addr] = struct{}{} }
func (w *hashWindow) size() int             { return len(w.m) }
func (w *hashWindow) clear()                { w.m = make(map[uint64]struct{}) }
