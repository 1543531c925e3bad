package stats

import "github.com/minglechen/dynamorio/dlog"

// DefaultTopK is the number of histogram entries print_stats renders when no
// WithTopK option is given.
const DefaultTopK = 10

type config struct {
	missDumpPath            string
	missDumpCompress        bool
	addr2LinePath           string
	recordInstrAccessMisses bool
	warmupEnabled           bool
	coherent                bool
	workingSetLineSize      uint64
	topK                    int
	logger                  dlog.Logger
}

func defaultConfig() config {
	return config{
		missDumpCompress: true,
		topK:             DefaultTopK,
		logger:           dlog.Nop,
	}
}

// Option configures an Engine at construction time.
type Option func(*config)

// WithMissDumpPath enables the miss-dump sink at path. An empty path (the
// default) disables it.
func WithMissDumpPath(path string) Option {
	return func(c *config) { c.missDumpPath = path }
}

// WithMissDumpCompression toggles gzip compression of the miss-dump sink.
// Enabled by default.
func WithMissDumpCompression(enabled bool) Option {
	return func(c *config) { c.missDumpCompress = enabled }
}

// WithAddr2LineTable sets the side-car CSV path symbolizing the miss
// histogram. It is loaded lazily, on the first report that needs it.
func WithAddr2LineTable(path string) Option {
	return func(c *config) { c.addr2LinePath = path }
}

// WithRecordInstrAccessMisses enables the per-PC miss histogram for data
// references.
func WithRecordInstrAccessMisses() Option {
	return func(c *config) { c.recordInstrAccessMisses = true }
}

// WithWarmup marks the engine as having a warmup phase, so PrintStats
// renders the warmup snapshot block.
func WithWarmup() Option {
	return func(c *config) { c.warmupEnabled = true }
}

// WithCoherent marks the owning cache as coherent, changing the
// invalidation labels PrintStats renders.
func WithCoherent() Option {
	return func(c *config) { c.coherent = true }
}

// WithWorkingSet enables the in-cache working-set sampler at the given line
// size, which must be a power of two.
func WithWorkingSet(lineSize uint64) Option {
	return func(c *config) { c.workingSetLineSize = lineSize }
}

// WithTopK overrides the number of entries rendered by the miss histogram
// report.
func WithTopK(k int) Option {
	return func(c *config) { c.topK = k }
}

// WithLogger overrides the diagnostic logger. Defaults to dlog.Nop.
func WithLogger(l dlog.Logger) Option {
	return func(c *config) { c.logger = l }
}
