package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listAccountsCmd = &cobra.Command{
	Use:   "list-accounts",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := openStore().List()
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts stored. Use 'mailpeek add-account <provider>' to add one.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "EMAIL\tPROVIDER\tAUTH")
		for _, acct := range accounts {
			auth := "oauth"
			if !acct.UsesOAuth() {
				auth = "password"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", acct.Email, acct.Provider, auth)
		}
		w.Flush()
		fmt.Printf("\n%d account(s)\n", len(accounts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listAccountsCmd)
}
