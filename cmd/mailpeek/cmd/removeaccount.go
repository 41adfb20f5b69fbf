package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailpeek/mailpeek/internal/account"
)

var removeAccountCmd = &cobra.Command{
	Use:   "remove-account <provider> <email>",
	Short: "Remove a stored account",
	Long: `Remove the locally stored credentials for an account. The provider
side is untouched; revoke access there separately if the token should stop
working entirely.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := account.ParseProvider(args[0])
		if err != nil {
			return err
		}
		email := args[1]

		if err := openStore().Delete(provider, email); err != nil {
			return err
		}
		fmt.Printf("Removed %s account %s.\n", provider, email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeAccountCmd)
}
