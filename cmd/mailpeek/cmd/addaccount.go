package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailpeek/mailpeek/internal/account"
)

var (
	addEmail        string
	addPassword     string
	addRefreshToken string
)

var addAccountCmd = &cobra.Command{
	Use:   "add-account <provider>",
	Short: "Add a Gmail or Outlook account",
	Long: `Add an account by completing the OAuth2 authorization flow in a
browser. The granted refresh token is stored locally.

Alternatively, pass an existing refresh token with --refresh-token, or an
app password with --password (requires --email).

Examples:
  mailpeek add-account gmail
  mailpeek add-account outlook --refresh-token <token>
  mailpeek add-account gmail --email you@gmail.com --password <app-password>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := account.ParseProvider(args[0])
		if err != nil {
			return err
		}

		store := openStore()
		mgr := newOAuthManager(store)
		ctx := cmd.Context()

		if addPassword != "" {
			if addEmail == "" {
				return fmt.Errorf("--password requires --email")
			}
			acct := account.Account{Provider: provider, Email: addEmail, Password: addPassword}
			if err := store.Save(acct); err != nil {
				return err
			}
			fmt.Printf("Added %s account %s (app password).\n", provider, addEmail)
			return nil
		}

		refreshToken := addRefreshToken
		if refreshToken == "" {
			fmt.Println("Starting browser authorization...")
			refreshToken, err = mgr.Authorize(ctx, provider)
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
		}

		// Prove the token works and learn the address behind it.
		accessToken, err := mgr.Refresh(ctx, provider, refreshToken)
		if err != nil {
			return fmt.Errorf("verify refresh token: %w", err)
		}

		email := addEmail
		if resolved, ok := mgr.ResolveIdentity(ctx, provider, accessToken); ok {
			email = resolved
		}
		if email == "" {
			return fmt.Errorf("could not determine the account address; pass --email")
		}

		acct := account.Account{Provider: provider, Email: email, RefreshToken: refreshToken}
		if err := store.Save(acct); err != nil {
			return err
		}
		fmt.Printf("Added %s account %s.\n", provider, email)
		fmt.Println("Next step: mailpeek fetch", email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addAccountCmd)
	addAccountCmd.Flags().StringVar(&addEmail, "email", "", "Account address (resolved automatically when possible)")
	addAccountCmd.Flags().StringVar(&addPassword, "password", "", "App password instead of OAuth")
	addAccountCmd.Flags().StringVar(&addRefreshToken, "refresh-token", "", "Existing refresh token instead of browser authorization")
}
