package imap

import (
	"fmt"

	"github.com/mailpeek/mailpeek/internal/account"
)

// ConnectError indicates the session could not reach an authenticated,
// INBOX-selected state: dial, TLS, authentication, or mailbox selection.
type ConnectError struct {
	Provider account.Provider
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Provider, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// FetchError indicates a SEARCH or FETCH command failed on an established
// connection.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
