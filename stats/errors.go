package stats

import "errors"

// The error kind enumeration is a stable external contract: callers may
// test against these with errors.Is.
var (
	// ErrConfig is returned by New when the block size is not a power of two.
	ErrConfig = errors.New("stats: block size must be a power of two")
	// ErrIoOpenFailed is reported (never returned from New) when the
	// miss-dump sink or the Addr2LineTable side-car fails to open.
	ErrIoOpenFailed = errors.New("stats: failed to open file")
	// ErrCsvMissingColumn mirrors csvtable.ErrMissingColumn for diagnostics
	// emitted by this package when Addr2LineTable loading is degraded.
	ErrCsvMissingColumn = errors.New("stats: csv missing required column")
	// ErrCsvParseFailed mirrors csvtable.ErrParseFailed for diagnostics
	// emitted by this package when Addr2LineTable loading is degraded.
	ErrCsvParseFailed = errors.New("stats: csv field failed to parse")
	// ErrUnknownMetric is reported (GetMetric still returns 0) when the
	// requested metric name is not in the fixed name set.
	ErrUnknownMetric = errors.New("stats: unknown metric name")
)
