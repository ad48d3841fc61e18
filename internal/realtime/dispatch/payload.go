package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for dispatch errors.
var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
)

func isMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}

// payload wraps the raw inbound map with typed accessors. A missing or
// mistyped required key is a malformed-payload error.
type payload map[string]any

func (p payload) str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing %s: %w", key, ErrMalformedPayload)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s must be a non-empty string: %w", key, ErrMalformedPayload)
	}
	return s, nil
}

func (p payload) strOr(key, fallback string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return fallback
}

func (p payload) boolean(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, fmt.Errorf("missing %s: %w", key, ErrMalformedPayload)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean: %w", key, ErrMalformedPayload)
	}
	return b, nil
}

func (p payload) object(key string) (map[string]any, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing %s: %w", key, ErrMalformedPayload)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object: %w", key, ErrMalformedPayload)
	}
	return m, nil
}

// intOr tolerates the JSON number decoding quirk: numbers arrive as
// float64.
func (p payload) intOr(key string, fallback int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
