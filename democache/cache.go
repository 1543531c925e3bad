// Package democache provides a minimal set-associative cache, built on
// akita's directory and LRU victim finder, whose only job is to generate a
// believable hit/miss stream and drive a stats.Engine. It is the "owning
// cache instance" the stats core assumes exists but never specifies:
// replacement policy is the bare minimum needed for that stream, not a
// tuned or pluggable policy framework, and there is no backing store or
// latency model behind it.
package democache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/stats"
)

// Config describes a cache's geometry.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity is the number of ways per set.
	Associativity int
	// BlockSize in bytes.
	BlockSize int
}

// Cache is a set-associative directory with one stats.Engine wired to its
// access points. It holds no data and no backing store: it exists only to
// produce a hit/miss/dirty stream realistic enough to drive the engine.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	engine    *stats.Engine
}

// New creates a Cache of the given geometry, backed by engine.
func New(config Config, engine *stats.Engine) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		engine: engine,
	}
}

// Config returns the cache's geometry.
func (c *Cache) Config() Config {
	return c.config
}

// Engine returns the stats.Engine this cache drives.
func (c *Cache) Engine() *stats.Engine {
	return c.engine
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Access looks ref up in the directory, allocates on miss, and reports the
// outcome to the wired stats.Engine. It returns whether the access hit.
func (c *Cache) Access(ref memref.Reference) bool {
	blockAddr := c.blockAddr(ref.Addr)
	block := c.directory.Lookup(0, blockAddr)
	hit := block != nil && block.IsValid

	if hit {
		c.directory.Visit(block)
	} else {
		c.allocate(ref, blockAddr)
	}

	c.engine.Access(ref, hit)
	return hit
}

func (c *Cache) allocate(ref memref.Reference, blockAddr uint64) {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return
	}
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = ref.Kind == memref.KindDataWrite
	c.directory.Visit(victim)
}

// Invalidate drops the block covering addr, if present, and reports kind to
// the stats.Engine.
func (c *Cache) Invalidate(addr uint64, kind stats.InvalidateKind) {
	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block == nil || !block.IsValid {
		return
	}
	block.IsValid = false
	block.IsDirty = false
	c.engine.Invalidate(kind)
}

// Reset invalidates every line and resets the wired stats.Engine.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.engine.Reset()
}
