package queue

// settings holds construction-time configuration shared by all queue
// instantiations.
type settings struct {
	capacity int
}

// Option applies a configuration option to a queue under construction.
type Option func(*settings)

// WithCapacity sets the maximum number of buffered items.
func WithCapacity(capacity int) Option {
	return func(s *settings) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}
