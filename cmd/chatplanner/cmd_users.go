package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var usersLimit int

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered users of the configured store",
	RunE:  runUsers,
}

func init() {
	usersCmd.Flags().IntVarP(&usersLimit, "limit", "n", 50, "Maximum number of users to print (0 for all)")
}

func runUsers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d := &deps{cfg: cfg}
	if err := d.buildStores(ctx); err != nil {
		return err
	}
	defer d.Close()

	users, err := d.users.ListUsers(ctx, usersLimit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tCALENDAR\tTASKS\tREGISTERED")
	for _, u := range users {
		tasks := "-"
		if u.TaskToken != "" {
			tasks = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ClientID, u.CalendarID, tasks, u.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}
