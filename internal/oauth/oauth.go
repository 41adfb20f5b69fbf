// Package oauth exchanges long-lived refresh credentials for short-lived
// bearer access tokens against the Gmail and Outlook OAuth2 endpoints.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mailpeek/mailpeek/internal/account"
)

const (
	gmailTokenURL   = "https://oauth2.googleapis.com/token"
	gmailProfileURL = "https://www.googleapis.com/gmail/v1/users/me/profile"

	outlookTokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	outlookIMAPScope      = "https://outlook.office.com/IMAP.AccessAsUser.All offline_access"

	defaultTenant = "common"

	// Token exchanges carry a short fixed timeout; nothing else does.
	exchangeTimeout = 10 * time.Second
)

// GmailCredentials is the OAuth2 client registration for Gmail.
type GmailCredentials struct {
	ClientID     string
	ClientSecret string
}

// OutlookCredentials is the OAuth2 client registration for Outlook.
// Public clients refresh without a secret; TenantID defaults to "common".
type OutlookCredentials struct {
	ClientID string
	TenantID string
}

// CredentialStore receives refresh-token rotations so the stored long-lived
// credential always matches what the provider expects next.
type CredentialStore interface {
	Rotate(provider account.Provider, oldToken, newToken string) error
}

// Option is a functional option for Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithHTTPClient overrides the HTTP client used for token and profile calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.client = client }
}

// Manager performs OAuth2 token refresh and identity resolution. It holds no
// per-call state; concurrent calls for different credentials are safe.
// Concurrent refreshes of the same refresh token are not deduplicated.
type Manager struct {
	gmail   GmailCredentials
	outlook OutlookCredentials
	store   CredentialStore
	client  *http.Client
	logger  *slog.Logger

	// Endpoint fields exist so tests can point at a local server.
	gmailTokenURL   string
	gmailProfileURL string
	outlookTokenURL string
}

// NewManager creates a token manager. store receives rotated refresh tokens;
// passing nil drops rotations, which is only acceptable in throwaway use.
func NewManager(gmail GmailCredentials, outlook OutlookCredentials, store CredentialStore, opts ...Option) *Manager {
	if store == nil {
		store = nopStore{}
	}
	tenant := outlook.TenantID
	if tenant == "" {
		tenant = defaultTenant
	}
	m := &Manager{
		gmail:           gmail,
		outlook:         outlook,
		store:           store,
		client:          &http.Client{Timeout: exchangeTimeout},
		logger:          slog.Default(),
		gmailTokenURL:   gmailTokenURL,
		gmailProfileURL: gmailProfileURL,
		outlookTokenURL: fmt.Sprintf(outlookTokenURLFormat, tenant),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// tokenResponse is the subset of the token endpoint reply we care about.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a fresh access token. When the
// provider rotates the refresh token, the new value is handed to the
// credential store before returning; it is never silently discarded.
func (m *Manager) Refresh(ctx context.Context, provider account.Provider, refreshToken string) (string, error) {
	var endpoint string
	form := url.Values{}

	switch provider {
	case account.Gmail:
		if m.gmail.ClientID == "" || m.gmail.ClientSecret == "" {
			return "", &ConfigError{Provider: provider, Missing: "gmail client_id/client_secret"}
		}
		endpoint = m.gmailTokenURL
		form.Set("client_id", m.gmail.ClientID)
		form.Set("client_secret", m.gmail.ClientSecret)
	case account.Outlook:
		if m.outlook.ClientID == "" {
			return "", &ConfigError{Provider: provider, Missing: "outlook client_id"}
		}
		endpoint = m.outlookTokenURL
		form.Set("client_id", m.outlook.ClientID)
		form.Set("scope", outlookIMAPScope)
	default:
		return "", &AuthError{Provider: provider, Op: "refresh", Err: fmt.Errorf("unsupported provider %q", provider)}
	}

	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	body, err := m.postForm(ctx, endpoint, form)
	if err != nil {
		return "", &AuthError{Provider: provider, Op: "refresh", Err: err}
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &AuthError{Provider: provider, Op: "refresh", Err: fmt.Errorf("parse token response: %w", err)}
	}
	if resp.AccessToken == "" {
		return "", &AuthError{Provider: provider, Op: "refresh", Err: errors.New("token response missing access_token")}
	}

	if resp.RefreshToken != "" && resp.RefreshToken != refreshToken {
		m.logger.Debug("refresh token rotated", "provider", provider)
		if err := m.store.Rotate(provider, refreshToken, resp.RefreshToken); err != nil {
			m.logger.Error("failed to persist rotated refresh token",
				"provider", provider, "error", err)
		}
	}

	return resp.AccessToken, nil
}

// postForm sends a form POST and returns the body of a 200 reply.
func (m *Manager) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %s: %s", resp.Status, firstLine(string(body)))
	}
	return body, nil
}

// firstLine trims a possibly multi-line response body down to its first line
// so error messages stay readable.
func firstLine(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// nopStore discards rotations.
type nopStore struct{}

func (nopStore) Rotate(account.Provider, string, string) error { return nil }
