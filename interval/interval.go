// Package interval implements the compulsory-miss / first-touch detector:
// a block-aligned address interval set that coalesces adjacent blocks on
// insert and answers membership queries in O(log n).
package interval

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/btree"
)

// ErrConfig is returned by New when blockSize is not a power of two. A
// prior implementation left the object half-built and still usable in
// that case; New refuses to run instead.
var ErrConfig = errors.New("interval: block size must be a power of two")

const btreeDegree = 32

// bound is one [Beg, End) entry, ordered by Beg in the backing btree.
type bound struct {
	beg, end uint64
}

func (b bound) Less(than btree.Item) bool {
	return b.beg < than.(bound).beg
}

// BlockSet is an ordered set of disjoint, non-adjacent, block-aligned
// address intervals. It answers "has this address ever been observed?" and
// remembers the answer, coalescing runs of adjacent blocks to keep memory
// bounded by the number of distinct runs rather than the number of
// distinct blocks.
type BlockSet struct {
	blockSize     uint64
	blockSizeMask uint64
	tree          *btree.BTree
	count         int
}

// Hint is the opaque result of a Lookup that found found=false. It must be
// passed back to Insert for the same address with no intervening insert, or
// Insert's behavior is undefined (this mirrors the original's iterator-hint
// contract, which has the same precondition).
type Hint struct {
	addr    uint64
	prevOK  bool
	prev    bound
	nextOK  bool
	next    bound
}

// New creates a BlockSet tracking blocks of the given size, which must be a
// power of two.
func New(blockSize uint64) (*BlockSet, error) {
	if blockSize == 0 || blockSize&(blockSize-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrConfig, blockSize)
	}
	return &BlockSet{
		blockSize:     blockSize,
		blockSizeMask: ^(blockSize - 1),
		tree:          btree.New(btreeDegree),
	}, nil
}

// BlockSize returns the configured block size.
func (s *BlockSet) BlockSize() uint64 {
	return s.blockSize
}

// Count returns the number of disjoint intervals currently tracked. An
// Insert that joins two intervals (two-sided coalesce) lowers it by one.
func (s *BlockSet) Count() int {
	return s.count
}

// Lookup reports whether addr has ever been observed. When found is false,
// hint must be passed to Insert to record addr.
func (s *BlockSet) Lookup(addr uint64) (found bool, hint Hint) {
	hint.addr = addr

	s.tree.DescendLessOrEqual(bound{beg: addr}, func(i btree.Item) bool {
		hint.prev = i.(bound)
		hint.prevOK = true
		return false
	})
	if addr != math.MaxUint64 {
		s.tree.AscendGreaterOrEqual(bound{beg: addr + 1}, func(i btree.Item) bool {
			hint.next = i.(bound)
			hint.nextOK = true
			return false
		})
	}

	if hint.prevOK && addr >= hint.prev.beg && addr < hint.prev.end {
		return true, hint
	}
	return false, hint
}

// Insert records addr's block, given a Hint obtained from a prior Lookup(addr)
// that returned found=false. It applies the four coalescing rules in
// order: two-sided, left, right, plain insert.
func (s *BlockSet) Insert(hint Hint) {
	b := hint.addr & s.blockSizeMask
	e := b + s.blockSize
	if e < b { // overflow
		e = math.MaxUint64
	}

	switch {
	case hint.prevOK && hint.prev.end == b && hint.nextOK && hint.next.beg == e:
		s.tree.Delete(bound{beg: hint.next.beg})
		s.tree.Delete(bound{beg: hint.prev.beg})
		s.tree.ReplaceOrInsert(bound{beg: hint.prev.beg, end: hint.next.end})
		s.count--
	case hint.prevOK && hint.prev.end == b:
		s.tree.ReplaceOrInsert(bound{beg: hint.prev.beg, end: e})
	case hint.nextOK && hint.next.beg == e:
		s.tree.Delete(bound{beg: hint.next.beg})
		s.tree.ReplaceOrInsert(bound{beg: b, end: hint.next.end})
	default:
		s.tree.ReplaceOrInsert(bound{beg: b, end: e})
		s.count++
	}
}

// Clear drops all tracked intervals.
func (s *BlockSet) Clear() {
	s.tree.Clear(false)
	s.count = 0
}

// Intervals returns the tracked intervals in ascending order, as
// [Beg, End) pairs. Intended for tests and debugging.
func (s *BlockSet) Intervals() [][2]uint64 {
	out := make([][2]uint64, 0, s.tree.Len())
	s.tree.Ascend(func(i btree.Item) bool {
		b := i.(bound)
		out = append(out, [2]uint64{b.beg, b.end})
		return true
	})
	return out
}
