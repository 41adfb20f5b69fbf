// Package account defines the mail provider and stored account types shared
// by the credential store, token refresh, and IMAP session packages.
package account

import (
	"fmt"
	"strings"
)

// Provider identifies a supported mail provider.
type Provider string

const (
	Gmail   Provider = "gmail"
	Outlook Provider = "outlook"
)

// ParseProvider normalizes and validates a provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case Gmail, Outlook:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported provider %q (expected gmail or outlook)", s)
	}
}

// Account is one stored mail account. Exactly one of RefreshToken (OAuth2)
// or Password (app-password login) is set.
type Account struct {
	Provider     Provider `json:"provider"`
	Email        string   `json:"email"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	Password     string   `json:"password,omitempty"`
}

// UsesOAuth reports whether the account authenticates with XOAUTH2.
func (a Account) UsesOAuth() bool {
	return a.RefreshToken != ""
}
