package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailpeek/mailpeek/internal/account"
	"github.com/mailpeek/mailpeek/internal/config"
	"github.com/mailpeek/mailpeek/internal/creds"
	"github.com/mailpeek/mailpeek/internal/imap"
	"github.com/mailpeek/mailpeek/internal/oauth"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailpeek",
	Short: "Peek at recent mail over IMAP",
	Long: `mailpeek fetches and prints the most recent messages from Gmail and
Outlook inboxes over IMAP, authenticating with OAuth2 (XOAUTH2) or an
app password.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openStore returns the credential store under the configured home.
func openStore() *creds.Store {
	return creds.NewStore(cfg.AccountsDir())
}

// newOAuthManager builds a token manager from the loaded config, wired to
// the given store for refresh-token rotation.
func newOAuthManager(store oauth.CredentialStore) *oauth.Manager {
	return oauth.NewManager(
		oauth.GmailCredentials{
			ClientID:     cfg.Gmail.ClientID,
			ClientSecret: cfg.Gmail.ClientSecret,
		},
		oauth.OutlookCredentials{
			ClientID: cfg.Outlook.ClientID,
			TenantID: cfg.Outlook.TenantID,
		},
		store,
		oauth.WithLogger(logger),
	)
}

// sessionFor refreshes the account's credential as needed and returns an
// unconnected IMAP session for it.
func sessionFor(ctx context.Context, mgr *oauth.Manager, acct account.Account) (*imap.Session, error) {
	if !acct.UsesOAuth() {
		return imap.NewSession(acct.Provider, acct.Email, "",
			imap.WithPasswordLogin(acct.Password),
			imap.WithLogger(logger)), nil
	}

	accessToken, err := mgr.Refresh(ctx, acct.Provider, acct.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token for %s: %w", acct.Email, err)
	}
	return imap.NewSession(acct.Provider, acct.Email, accessToken,
		imap.WithLogger(logger)), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: <home>/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "mailpeek home directory (default: ~/.mailpeek or MAILPEEK_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
