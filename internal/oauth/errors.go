package oauth

import (
	"fmt"

	"github.com/mailpeek/mailpeek/internal/account"
)

// ConfigError indicates missing OAuth client credential configuration.
type ConfigError struct {
	Provider account.Provider
	Missing  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s OAuth not configured: missing %s", e.Provider, e.Missing)
}

// AuthError indicates the provider rejected or failed a token operation:
// transport failure, non-success status, or a malformed token response.
type AuthError struct {
	Provider account.Provider
	Op       string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
