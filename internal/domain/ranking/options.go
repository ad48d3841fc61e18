package ranking

import "time"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock injects the time source used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDomainKeywords replaces the category -> department keyword table.
func WithDomainKeywords(table map[string][]string) Option {
	return func(e *Engine) {
		if len(table) == 0 {
			return
		}
		// Copy so callers cannot mutate the engine afterwards.
		copied := make(map[string][]string, len(table))
		for category, keywords := range table {
			copied[category] = append([]string(nil), keywords...)
		}
		e.domainKeywords = copied
	}
}
