package logi

import "io"

type config struct {
	heapLimit  int
	trailLimit int
	detLimit   int
	nondLimit  int
	stepLimit  int
	debugOut   io.Writer
	debugFlags []DebugFlag
}

var defaultConfig = config{
	heapLimit:  1 << 20,
	trailLimit: 1 << 20,
	detLimit:   1 << 16,
	nondLimit:  1 << 16,
}

// Option configures a machine at initialization.
type Option func(*config)

// WithHeapLimit sets the heap capacity in cells. Allocating past it is a
// fatal engine error.
func WithHeapLimit(n int) Option {
	return func(cfg *config) {
		cfg.heapLimit = n
	}
}

// WithTrailLimit sets the trail capacity in entries.
func WithTrailLimit(n int) Option {
	return func(cfg *config) {
		cfg.trailLimit = n
	}
}

// WithDetStackLimit sets the deterministic stack capacity in slots.
func WithDetStackLimit(n int) Option {
	return func(cfg *config) {
		cfg.detLimit = n
	}
}

// WithNondStackLimit sets the nondeterministic stack capacity in
// choicepoints.
func WithNondStackLimit(n int) Option {
	return func(cfg *config) {
		cfg.nondLimit = n
	}
}

// WithStepLimit aborts execution after n dispatch steps. Zero means no limit.
func WithStepLimit(n int) Option {
	return func(cfg *config) {
		cfg.stepLimit = n
	}
}

// WithDebugOut redirects diagnostic emission. The default is stderr.
func WithDebugOut(w io.Writer) Option {
	return func(cfg *config) {
		cfg.debugOut = w
	}
}

// WithDebugFlags turns the given debug flags on at startup.
func WithDebugFlags(flags ...DebugFlag) Option {
	return func(cfg *config) {
		cfg.debugFlags = append(cfg.debugFlags, flags...)
	}
}
