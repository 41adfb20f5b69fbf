package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mailpeek/mailpeek/internal/account"
)

// identityClaims lists the JWT claims checked for an Outlook account email,
// in priority order.
var identityClaims = []string{
	"preferred_username",
	"email",
	"upn",
	"unique_name",
	"userPrincipalName",
}

// ResolveIdentity returns the email address behind an access token. Gmail
// asks the profile endpoint; Outlook reads the unverified JWT payload. The
// JWT signature is never checked, so the result is an identity hint only and
// must not drive authorization decisions. On any failure it reports
// ok=false rather than an error, since callers often already know the
// address through other means.
func (m *Manager) ResolveIdentity(ctx context.Context, provider account.Provider, accessToken string) (string, bool) {
	if accessToken == "" {
		return "", false
	}
	switch provider {
	case account.Gmail:
		return m.gmailProfileEmail(ctx, accessToken)
	case account.Outlook:
		return emailFromJWT(accessToken)
	default:
		return "", false
	}
}

// gmailProfileEmail fetches the Gmail profile with the bearer token and
// returns its emailAddress field.
func (m *Manager) gmailProfileEmail(ctx context.Context, accessToken string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.gmailProfileURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var profile struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", false
	}
	return profile.EmailAddress, profile.EmailAddress != ""
}

// emailFromJWT extracts an email claim from the payload segment of a JWT
// without verifying the signature.
func emailFromJWT(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return "", false
	}

	payload := parts[1]
	if rem := len(payload) % 4; rem != 0 {
		payload += strings.Repeat("=", 4-rem)
	}
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}

	var claims map[string]any
	if err := json.Unmarshal(data, &claims); err != nil {
		return "", false
	}

	for _, key := range identityClaims {
		if v, ok := claims[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
