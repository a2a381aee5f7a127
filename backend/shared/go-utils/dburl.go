package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// WithRole swaps the user of a postgres URL for role, keeping the password.
// Used when each test run owns an isolated schema behind its own role.
func WithRole(baseURL, role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "", fmt.Errorf("role must be non-empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DB URL: %w", err)
	}

	password, _ := u.User.Password()
	u.User = url.UserPassword(role, password)

	return u.String(), nil
}
