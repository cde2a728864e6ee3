package gemini

import (
	"context"
	"errors"
)

// ErrNoAPIKey is reported by the health check when no key is configured.
var ErrNoAPIKey = errors.New("no Gemini API key configured")

// HealthCheck reports whether requests can be attempted. It checks
// configuration only and never calls the provider.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.apiKey() == "" {
		return ErrNoAPIKey
	}
	return nil
}
