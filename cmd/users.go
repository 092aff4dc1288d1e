package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"Bpsb/core/account"
	"Bpsb/repository"
	"Bpsb/server"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "列出账户目录",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		kv, _, err := server.OpenKVStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer kv.Close()

		store := account.New(ctx, repository.NewKVAccountRepository(kv, cfg.UsersKey, cfg.SessionKey))
		accounts, err := store.Accounts(ctx)
		if err != nil {
			return err
		}

		current := ""
		if acc, ok := store.Current(); ok {
			current = acc.Username
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "USERNAME\tEMAIL\tTHEME\tCREATED\tACTIVE")
		for _, a := range accounts {
			active := ""
			if a.Username == current {
				active = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Username, a.Email, a.Theme, a.CreatedAt.Format(time.RFC3339), active)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
}
