// Package creds persists mail account credentials as per-account JSON files.
package creds

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mailpeek/mailpeek/internal/account"
)

// Store keeps one JSON file per account under a single directory. Files are
// named by a hash of the provider and email so addresses never appear in
// directory listings.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(provider account.Provider, email string) string {
	hash := sha256.Sum256([]byte(string(provider) + ":" + strings.ToLower(email)))
	return filepath.Join(s.dir, fmt.Sprintf("acct_%x.json", hash[:8]))
}

// Save writes the account, replacing any previous entry for the same
// provider and email.
func (s *Store) Save(acct account.Account) error {
	if acct.Email == "" {
		return fmt.Errorf("account email is empty")
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create accounts dir: %w", err)
	}
	data, err := json.MarshalIndent(acct, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(acct.Provider, acct.Email), data, 0600); err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}

// Load returns the stored account for the given provider and email.
func (s *Store) Load(provider account.Provider, email string) (account.Account, error) {
	data, err := os.ReadFile(s.path(provider, email))
	if err != nil {
		if os.IsNotExist(err) {
			return account.Account{}, fmt.Errorf("no credentials for %s account %s (run 'add-account' first)", provider, email)
		}
		return account.Account{}, fmt.Errorf("read account: %w", err)
	}
	var acct account.Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return account.Account{}, fmt.Errorf("parse account file: %w", err)
	}
	return acct, nil
}

// List returns all stored accounts sorted by email. Unreadable or malformed
// files are skipped.
func (s *Store) List() ([]account.Account, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read accounts dir: %w", err)
	}

	var accounts []account.Account
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "acct_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var acct account.Account
		if err := json.Unmarshal(data, &acct); err != nil || acct.Email == "" {
			continue
		}
		accounts = append(accounts, acct)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Email < accounts[j].Email
	})
	return accounts, nil
}

// Delete removes the stored account. Deleting a missing account is not an
// error.
func (s *Store) Delete(provider account.Provider, email string) error {
	err := os.Remove(s.path(provider, email))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Rotate replaces oldToken with newToken on the matching stored account.
// It satisfies the token manager's credential store interface.
func (s *Store) Rotate(provider account.Provider, oldToken, newToken string) error {
	accounts, err := s.List()
	if err != nil {
		return err
	}
	for _, acct := range accounts {
		if acct.Provider != provider || acct.RefreshToken != oldToken {
			continue
		}
		acct.RefreshToken = newToken
		return s.Save(acct)
	}
	return fmt.Errorf("no stored %s account matches the rotated token", provider)
}
