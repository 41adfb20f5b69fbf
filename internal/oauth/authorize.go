package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/mailpeek/mailpeek/internal/account"
)

const (
	callbackAddr = "localhost:8089"
	callbackPath = "/callback"
)

var gmailScopes = []string{"https://mail.google.com/"}

var outlookScopes = []string{
	"https://outlook.office.com/IMAP.AccessAsUser.All",
	"offline_access",
}

// Authorize runs the browser-based authorization code flow and returns the
// granted refresh token. It opens the system browser, waits on a localhost
// callback for the code, then exchanges it. Blocks until the user completes
// or cancels the flow, or ctx is done.
func (m *Manager) Authorize(ctx context.Context, provider account.Provider) (string, error) {
	conf, err := m.oauthConfig(provider)
	if err != nil {
		return "", err
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	ln, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return "", fmt.Errorf("start callback listener on %s: %w", callbackAddr, err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- errors.New("authorization callback state mismatch")
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			http.Error(w, "authorization failed", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", errMsg)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- errors.New("authorization callback missing code")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		codeCh <- code
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	m.logger.Info("opening browser for authorization", "provider", provider)
	if err := openBrowser(authURL); err != nil {
		m.logger.Warn("could not open browser, visit the URL manually", "url", authURL)
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return "", &AuthError{Provider: provider, Op: "authorize", Err: err}
	case <-ctx.Done():
		return "", ctx.Err()
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, m.client)

	tok, err := conf.Exchange(exchangeCtx, code)
	if err != nil {
		return "", &AuthError{Provider: provider, Op: "authorize", Err: err}
	}
	if tok.RefreshToken == "" {
		return "", &AuthError{Provider: provider, Op: "authorize",
			Err: errors.New("provider granted no refresh token; revoke prior consent and retry")}
	}
	return tok.RefreshToken, nil
}

func (m *Manager) oauthConfig(provider account.Provider) (*oauth2.Config, error) {
	redirect := "http://" + callbackAddr + callbackPath
	switch provider {
	case account.Gmail:
		if m.gmail.ClientID == "" || m.gmail.ClientSecret == "" {
			return nil, &ConfigError{Provider: provider, Missing: "gmail client_id/client_secret"}
		}
		return &oauth2.Config{
			ClientID:     m.gmail.ClientID,
			ClientSecret: m.gmail.ClientSecret,
			Endpoint:     endpoints.Google,
			RedirectURL:  redirect,
			Scopes:       gmailScopes,
		}, nil
	case account.Outlook:
		if m.outlook.ClientID == "" {
			return nil, &ConfigError{Provider: provider, Missing: "outlook client_id"}
		}
		tenant := m.outlook.TenantID
		if tenant == "" {
			tenant = defaultTenant
		}
		return &oauth2.Config{
			ClientID:    m.outlook.ClientID,
			Endpoint:    endpoints.AzureAD(tenant),
			RedirectURL: redirect,
			Scopes:      outlookScopes,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
