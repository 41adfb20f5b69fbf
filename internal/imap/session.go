// Package imap connects to a provider mailbox over IMAP and fetches raw
// messages, authenticating with XOAUTH2 or an app password.
package imap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	imap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mailpeek/mailpeek/internal/account"
)

const (
	gmailAddr   = "imap.gmail.com:993"
	outlookAddr = "outlook.office365.com:993"
)

// serverAddr maps a provider to its IMAP endpoint.
func serverAddr(provider account.Provider) (string, error) {
	switch provider {
	case account.Gmail:
		return gmailAddr, nil
	case account.Outlook:
		return outlookAddr, nil
	default:
		return "", fmt.Errorf("no IMAP server known for provider %q", provider)
	}
}

// Option is a functional option for Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithPasswordLogin switches the session from XOAUTH2 to plain LOGIN with
// the given app password.
func WithPasswordLogin(password string) Option {
	return func(s *Session) { s.password = password }
}

// Session is one authenticated IMAP connection to a single mailbox. A
// session serializes its own operations; separate accounts get separate
// sessions and proceed independently.
type Session struct {
	provider   account.Provider
	email      string
	credential string // access token, or unused when password is set
	password   string
	logger     *slog.Logger

	// Dial target overrides so tests can point at a local server.
	addr     string
	insecure bool

	mu   sync.Mutex
	conn *imapclient.Client
}

// NewSession creates a session for the given account. credential is the
// bearer access token; use WithPasswordLogin for app-password accounts. The
// connection is not opened until Connect.
func NewSession(provider account.Provider, email, credential string, opts ...Option) *Session {
	s := &Session{
		provider:   provider,
		email:      email,
		credential: credential,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials the provider's IMAP endpoint over TLS, authenticates, and
// selects INBOX. Calling Connect on a connected session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

// connectLocked does the dial/auth/select work. Caller must hold mu.
func (s *Session) connectLocked(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := s.addr
	if addr == "" {
		var err error
		addr, err = serverAddr(s.provider)
		if err != nil {
			return &ConnectError{Provider: s.provider, Err: err}
		}
	}

	s.logger.Debug("connecting to IMAP server", "addr", addr, "user", s.email)
	var (
		conn *imapclient.Client
		err  error
	)
	if s.insecure {
		conn, err = imapclient.DialInsecure(addr, &imapclient.Options{})
	} else {
		conn, err = imapclient.DialTLS(addr, &imapclient.Options{})
	}
	if err != nil {
		return &ConnectError{Provider: s.provider, Err: fmt.Errorf("dial %s: %w", addr, err)}
	}

	if s.password != "" {
		err = conn.Login(s.email, s.password).Wait()
	} else {
		err = conn.Authenticate(newXOAuth2Client(s.email, s.credential))
	}
	if err != nil {
		_ = conn.Close()
		return &ConnectError{Provider: s.provider, Err: fmt.Errorf("authenticate %s: %w", s.email, err)}
	}

	if _, err := conn.Select("INBOX", nil).Wait(); err != nil {
		_ = conn.Close()
		return &ConnectError{Provider: s.provider, Err: fmt.Errorf("select INBOX: %w", err)}
	}

	s.conn = conn
	s.logger.Debug("connected and authenticated", "user", s.email)
	return nil
}

// FetchLatest returns the raw bytes of the most recent limit messages in
// INBOX, oldest of the batch first. A mailbox with fewer messages returns
// them all; an empty mailbox returns an empty slice.
func (s *Session) FetchLatest(ctx context.Context, limit int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return [][]byte{}, nil
	}

	searchData, err := s.conn.Search(&imap.SearchCriteria{}, &imap.SearchOptions{ReturnAll: true}).Wait()
	if err != nil {
		return nil, &FetchError{Op: "search", Err: err}
	}
	seqNums := tailSeqNums(searchData.AllSeqNums(), limit)
	if len(seqNums) == 0 {
		return [][]byte{}, nil
	}

	seqSet := imap.SeqSetNum(seqNums...)
	fetchOpts := &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{{}},
	}
	msgs, err := s.conn.Fetch(seqSet, fetchOpts).Collect()
	if err != nil {
		return nil, &FetchError{Op: "fetch", Err: err}
	}

	raw := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		if len(msg.BodySection) > 0 {
			raw = append(raw, msg.BodySection[0].Bytes)
		}
	}
	s.logger.Debug("fetched messages", "user", s.email, "count", len(raw))
	return raw, nil
}

// Close logs out and drops the connection. Safe to call multiple times or on
// a never-connected session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil

	// LOGOUT tears the connection down; Close is only needed when it fails.
	if err := conn.Logout().Wait(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// tailSeqNums keeps the last limit sequence numbers, which the server
// assigns in mailbox order so the tail is the most recent mail.
func tailSeqNums(nums []uint32, limit int) []uint32 {
	if limit >= len(nums) {
		return nums
	}
	return nums[len(nums)-limit:]
}
