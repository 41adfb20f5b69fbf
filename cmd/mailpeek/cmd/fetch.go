package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mailpeek/mailpeek/internal/account"
	"github.com/mailpeek/mailpeek/internal/mime"
	"github.com/mailpeek/mailpeek/internal/oauth"
)

var (
	fetchLimit      int
	saveAttachments string
	previewChars    int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [email...]",
	Short: "Fetch and print the latest inbox messages",
	Long: `Fetch the most recent messages from each account's inbox and print
decoded summaries. With no arguments, all stored accounts are fetched
concurrently.

Examples:
  mailpeek fetch
  mailpeek fetch you@gmail.com
  mailpeek fetch --limit 10 --save-attachments ./attachments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openStore()
		accounts, err := selectAccounts(store.List, args)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts stored. Use 'mailpeek add-account <provider>' to add one.")
			return nil
		}

		limit := fetchLimit
		if limit <= 0 {
			limit = cfg.Fetch.Limit
		}

		mgr := newOAuthManager(store)

		results := fetchAll(cmd.Context(), accounts, func(ctx context.Context, acct account.Account) ([]*mime.Message, error) {
			return fetchAccount(ctx, mgr, acct, limit)
		})

		var failed int
		for _, res := range results {
			if res.err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", res.account.Email, res.err)
				continue
			}
			renderAccount(res)
		}
		if failed == len(results) {
			return fmt.Errorf("all %d account(s) failed", failed)
		}
		return nil
	},
}

type accountResult struct {
	account  account.Account
	messages []*mime.Message
	err      error
}

// fetchAll runs fetch for every account concurrently. Each account gets its
// own result slot so one failure never hides another account's messages;
// errors travel in the results, not through the group.
func fetchAll(ctx context.Context, accounts []account.Account, fetch func(context.Context, account.Account) ([]*mime.Message, error)) []accountResult {
	results := make([]accountResult, len(accounts))
	var g errgroup.Group
	for i, acct := range accounts {
		i, acct := i, acct
		g.Go(func() error {
			msgs, err := fetch(ctx, acct)
			results[i] = accountResult{account: acct, messages: msgs, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// selectAccounts resolves the address arguments against the stored accounts,
// or returns all of them when no arguments are given.
func selectAccounts(list func() ([]account.Account, error), args []string) ([]account.Account, error) {
	stored, err := list()
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(args) == 0 {
		return stored, nil
	}

	byEmail := make(map[string]account.Account, len(stored))
	for _, acct := range stored {
		byEmail[strings.ToLower(acct.Email)] = acct
	}

	var selected []account.Account
	for _, arg := range args {
		acct, ok := byEmail[strings.ToLower(arg)]
		if !ok {
			return nil, fmt.Errorf("no stored account for %q", arg)
		}
		selected = append(selected, acct)
	}
	return selected, nil
}

// fetchAccount connects, pulls the latest raw messages, and decodes them.
// Messages that fail to decode are skipped with a warning rather than
// failing the account.
func fetchAccount(ctx context.Context, mgr *oauth.Manager, acct account.Account, limit int) ([]*mime.Message, error) {
	session, err := sessionFor(ctx, mgr, acct)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	raws, err := session.FetchLatest(ctx, limit)
	if err != nil {
		return nil, err
	}

	msgs := make([]*mime.Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := mime.Parse(raw)
		if err != nil {
			logger.Warn("skipping unreadable message", "account", acct.Email, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// renderAccount prints one account's messages, newest last.
func renderAccount(res accountResult) {
	fmt.Printf("=== %s (%s) — %d message(s) ===\n", res.account.Email, res.account.Provider, len(res.messages))
	for _, msg := range res.messages {
		fmt.Printf("\nFrom:    %s\n", msg.From)
		fmt.Printf("Date:    %s\n", msg.Date)
		fmt.Printf("Subject: %s\n", msg.Subject)
		if preview := truncate(msg.Preview(), previewChars); preview != "" {
			fmt.Printf("\n%s\n", preview)
		}
		for _, att := range msg.Attachments {
			fmt.Printf("  [attachment] %s (%.2f KB)\n", att.Filename, att.SizeKB)
			if saveAttachments != "" {
				if path, err := saveAttachment(saveAttachments, att); err != nil {
					fmt.Fprintf(os.Stderr, "  save %s: %v\n", att.Filename, err)
				} else {
					fmt.Printf("  saved to %s\n", path)
				}
			}
		}
	}
	fmt.Println()
}

// saveAttachment writes the attachment under dir, never overwriting: a
// numeric suffix is added when the name is taken.
func saveAttachment(dir string, att mime.Attachment) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	name := filepath.Base(att.Filename)
	path := filepath.Join(dir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(name)
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i, ext))
	}

	if err := os.WriteFile(path, att.Content, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().IntVarP(&fetchLimit, "limit", "n", 0, "Messages per account (default from config)")
	fetchCmd.Flags().StringVar(&saveAttachments, "save-attachments", "", "Directory to save attachments into")
	fetchCmd.Flags().IntVar(&previewChars, "preview", 400, "Preview length in characters (0 = full body)")
}
