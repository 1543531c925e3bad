package instrcount

import "github.com/minglechen/dynamorio/dlog"

// DefaultTopK is the number of histogram entries PrintResults renders when
// no WithTopK option is given.
const DefaultTopK = 10

type config struct {
	topK          int
	addr2LinePath string
	outputDir     string
	logger        dlog.Logger
}

func defaultConfig() config {
	return config{topK: DefaultTopK, logger: dlog.Nop}
}

// Option configures a Tool at construction time.
type Option func(*config)

// WithTopK overrides the number of instructions PrintResults renders.
func WithTopK(k int) Option {
	return func(c *config) { c.topK = k }
}

// WithAddr2LineTable sets the side-car CSV symbolizing reported addresses,
// loaded lazily on first use.
func WithAddr2LineTable(path string) Option {
	return func(c *config) { c.addr2LinePath = path }
}

// WithOutputDir enables writing instr_counts.csv under dir when
// PrintResults runs.
func WithOutputDir(dir string) Option {
	return func(c *config) { c.outputDir = dir }
}

// WithLogger overrides the diagnostic logger. Defaults to dlog.Nop.
func WithLogger(l dlog.Logger) Option {
	return func(c *config) { c.logger = l }
}
