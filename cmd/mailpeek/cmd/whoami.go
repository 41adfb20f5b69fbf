package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailpeek/mailpeek/internal/account"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami <provider> <email>",
	Short: "Verify a stored account's credentials",
	Long: `Refresh the stored token for an account and report the address the
provider says it belongs to. Useful for checking that a token still works
and is bound to the expected mailbox.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := account.ParseProvider(args[0])
		if err != nil {
			return err
		}

		store := openStore()
		acct, err := store.Load(provider, args[1])
		if err != nil {
			return err
		}
		if !acct.UsesOAuth() {
			fmt.Printf("%s uses an app password; nothing to verify offline.\n", acct.Email)
			return nil
		}

		mgr := newOAuthManager(store)
		ctx := cmd.Context()

		accessToken, err := mgr.Refresh(ctx, acct.Provider, acct.RefreshToken)
		if err != nil {
			return err
		}
		fmt.Println("Token refresh: OK")

		if resolved, ok := mgr.ResolveIdentity(ctx, acct.Provider, accessToken); ok {
			fmt.Printf("Provider reports: %s\n", resolved)
			if resolved != acct.Email {
				fmt.Printf("Warning: stored address is %s\n", acct.Email)
			}
		} else {
			fmt.Println("Provider identity: unavailable")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
