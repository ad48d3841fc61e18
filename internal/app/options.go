package app

import (
	"time"

	"github.com/okian/huddle/internal/adapters/store"
	"github.com/okian/huddle/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuthSecret injects the connection token secret and issuer.
func WithAuthSecret(secret, issuer string) Option {
	return func(s *Service) {
		s.authSecret = secret
		if issuer != "" {
			s.authIssuer = issuer
		}
	}
}

// WithSendBuffer sets the per-connection outbound buffer.
func WithSendBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.sendBuffer = size
		}
	}
}

// WithAssignQueueSize bounds the assignment task queue.
func WithAssignQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithAssignWorkerCount sets the number of assignment workers.
func WithAssignWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithSuggestionLimit caps ranked suggestion responses.
func WithSuggestionLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.suggestionLimit = limit
		}
	}
}

// WithReplayCacheSize bounds the duplicate-response guard.
func WithReplayCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.replayCacheSize = size
		}
	}
}

// WithHelpRequestTTL expires unanswered help requests; zero disables
// expiry.
func WithHelpRequestTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.helpRequestTTL = ttl
		}
	}
}

// WithIssueStore wires an external issue store implementation.
func WithIssueStore(issues store.IssueStore) Option {
	return func(s *Service) {
		if issues != nil {
			s.issues = issues
		}
	}
}

// WithIdentityStore wires an external identity store implementation.
func WithIdentityStore(identities store.IdentityStore) Option {
	return func(s *Service) {
		if identities != nil {
			s.identities = identities
		}
	}
}
