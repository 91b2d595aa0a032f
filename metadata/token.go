package metadata

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ddevcap/blog-metadata/backend"
)

// ensureToken returns an analytics token that passed verification, logging in
// again when the held token is missing or rejected. The only state it touches
// is c.token. Callers must hold c.mu.
func (c *Cache) ensureToken(ctx context.Context) (string, error) {
	token, err := c.analytics.Verify(ctx, c.token)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, backend.ErrUnauthorized) {
		return "", unavailable("verify token", err)
	}

	c.token = ""
	resp, err := c.analytics.Login(ctx, c.credentials)
	if err != nil {
		return "", unavailable("login", err)
	}
	c.token = resp.Token
	slog.Info("obtained analytics token", "username", resp.User.Username)
	return c.token, nil
}
