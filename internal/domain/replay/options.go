package replay

// Option applies a configuration option to the guard.
type Option func(*inMemoryGuard)

// WithMaxSize bounds the number of keys kept in memory. Zero or negative
// disables eviction.
func WithMaxSize(size int) Option {
	return func(g *inMemoryGuard) {
		g.maxSize = size
	}
}
