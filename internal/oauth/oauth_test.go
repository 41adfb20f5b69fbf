package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mailpeek/mailpeek/internal/account"
)

var testGmail = GmailCredentials{ClientID: "gid", ClientSecret: "gsecret"}
var testOutlook = OutlookCredentials{ClientID: "oid"}

// recordingStore counts rotations so tests can assert exactly-once behavior.
type recordingStore struct {
	calls []struct {
		provider account.Provider
		oldTok   string
		newTok   string
	}
	err error
}

func (s *recordingStore) Rotate(provider account.Provider, oldTok, newTok string) error {
	s.calls = append(s.calls, struct {
		provider account.Provider
		oldTok   string
		newTok   string
	}{provider, oldTok, newTok})
	return s.err
}

// tokenServer returns an httptest server that captures the posted form and
// replies with the given status and JSON body.
func tokenServer(t *testing.T, status int, body map[string]string, gotForm *url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token endpoint got method %s, want POST", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if gotForm != nil {
			*gotForm = form
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
}

func newTestManager(store CredentialStore) *Manager {
	return NewManager(testGmail, testOutlook, store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestRefresh_Gmail(t *testing.T) {
	var form url.Values
	srv := tokenServer(t, http.StatusOK, map[string]string{"access_token": "at-1"}, &form)
	defer srv.Close()

	store := &recordingStore{}
	m := newTestManager(store)
	m.gmailTokenURL = srv.URL

	got, err := m.Refresh(context.Background(), account.Gmail, "rt-1")
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got != "at-1" {
		t.Errorf("Refresh() = %q, want at-1", got)
	}

	for key, want := range map[string]string{
		"client_id":     "gid",
		"client_secret": "gsecret",
		"refresh_token": "rt-1",
		"grant_type":    "refresh_token",
	} {
		if form.Get(key) != want {
			t.Errorf("form[%s] = %q, want %q", key, form.Get(key), want)
		}
	}
	if len(store.calls) != 0 {
		t.Errorf("got %d rotations, want none when no new token issued", len(store.calls))
	}
}

func TestRefresh_OutlookFormShape(t *testing.T) {
	var form url.Values
	srv := tokenServer(t, http.StatusOK, map[string]string{"access_token": "at-2"}, &form)
	defer srv.Close()

	m := newTestManager(nil)
	m.outlookTokenURL = srv.URL

	if _, err := m.Refresh(context.Background(), account.Outlook, "rt-2"); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	if got := form.Get("scope"); got != outlookIMAPScope {
		t.Errorf("form[scope] = %q, want IMAP scope", got)
	}
	if form.Has("client_secret") {
		t.Error("outlook refresh must not send client_secret")
	}
	if got := form.Get("client_id"); got != "oid" {
		t.Errorf("form[client_id] = %q, want oid", got)
	}
}

func TestRefresh_RotationPersistedOnce(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, map[string]string{
		"access_token":  "at-3",
		"refresh_token": "rt-new",
	}, nil)
	defer srv.Close()

	store := &recordingStore{}
	m := newTestManager(store)
	m.gmailTokenURL = srv.URL

	got, err := m.Refresh(context.Background(), account.Gmail, "rt-old")
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got != "at-3" {
		t.Errorf("Refresh() = %q, want at-3", got)
	}

	if len(store.calls) != 1 {
		t.Fatalf("got %d rotations, want exactly 1", len(store.calls))
	}
	call := store.calls[0]
	if call.provider != account.Gmail || call.oldTok != "rt-old" || call.newTok != "rt-new" {
		t.Errorf("Rotate(%v, %q, %q), want (gmail, rt-old, rt-new)",
			call.provider, call.oldTok, call.newTok)
	}
}

func TestRefresh_SameTokenEchoedNoRotation(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, map[string]string{
		"access_token":  "at-4",
		"refresh_token": "rt-same",
	}, nil)
	defer srv.Close()

	store := &recordingStore{}
	m := newTestManager(store)
	m.gmailTokenURL = srv.URL

	if _, err := m.Refresh(context.Background(), account.Gmail, "rt-same"); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("got %d rotations, want none when token unchanged", len(store.calls))
	}
}

func TestRefresh_RotationStoreFailureStillReturnsToken(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, map[string]string{
		"access_token":  "at-5",
		"refresh_token": "rt-new",
	}, nil)
	defer srv.Close()

	store := &recordingStore{err: errors.New("disk full")}
	m := newTestManager(store)
	m.gmailTokenURL = srv.URL

	got, err := m.Refresh(context.Background(), account.Gmail, "rt-old")
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got != "at-5" {
		t.Errorf("Refresh() = %q, want token despite store failure", got)
	}
}

func TestRefresh_RejectedIsAuthError(t *testing.T) {
	srv := tokenServer(t, http.StatusUnauthorized, map[string]string{"error": "invalid_grant"}, nil)
	defer srv.Close()

	m := newTestManager(nil)
	m.gmailTokenURL = srv.URL

	_, err := m.Refresh(context.Background(), account.Gmail, "rt-bad")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Refresh() error = %v, want *AuthError", err)
	}
	if authErr.Provider != account.Gmail || authErr.Op != "refresh" {
		t.Errorf("AuthError = {%v, %s}, want {gmail, refresh}", authErr.Provider, authErr.Op)
	}
}

func TestRefresh_MissingAccessTokenIsAuthError(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, map[string]string{"token_type": "Bearer"}, nil)
	defer srv.Close()

	m := newTestManager(nil)
	m.gmailTokenURL = srv.URL

	_, err := m.Refresh(context.Background(), account.Gmail, "rt-1")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Refresh() error = %v, want *AuthError", err)
	}
}

func TestRefresh_MissingClientConfig(t *testing.T) {
	m := NewManager(GmailCredentials{}, OutlookCredentials{}, nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	for _, provider := range []account.Provider{account.Gmail, account.Outlook} {
		_, err := m.Refresh(context.Background(), provider, "rt")
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Refresh(%v) error = %v, want *ConfigError", provider, err)
		}
	}
}

func TestRefresh_UnsupportedProvider(t *testing.T) {
	m := newTestManager(nil)
	if _, err := m.Refresh(context.Background(), account.Provider("aol"), "rt"); err == nil {
		t.Error("Refresh(unsupported) = nil error, want failure")
	}
}

func TestNewManager_OutlookTenantDefault(t *testing.T) {
	m := NewManager(testGmail, OutlookCredentials{ClientID: "oid"}, nil)
	want := "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	if m.outlookTokenURL != want {
		t.Errorf("outlookTokenURL = %q, want %q", m.outlookTokenURL, want)
	}

	m = NewManager(testGmail, OutlookCredentials{ClientID: "oid", TenantID: "contoso"}, nil)
	want = "https://login.microsoftonline.com/contoso/oauth2/v2.0/token"
	if m.outlookTokenURL != want {
		t.Errorf("outlookTokenURL = %q, want %q", m.outlookTokenURL, want)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"single", "single"},
		{"first\nsecond", "first"},
		{"\n\nleading blank\nmore", "leading blank"},
		{"  padded  \nrest", "padded"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := firstLine(tc.input); got != tc.want {
			t.Errorf("firstLine(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
