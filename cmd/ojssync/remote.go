package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users <journal-id>",
	Short: "List the user accounts visible on the journal's OJS install",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		client, err := a.client(ctx, args[0])
		if err != nil {
			return err
		}
		users, err := client.ListUsers(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(users)
		}
		for _, u := range users {
			name := u.FullName
			if name == "" {
				name = u.UserName
			}
			fmt.Printf("%6d  %-30s  %s\n", u.ID, name, u.Email)
		}
		fmt.Printf("%d users\n", len(users))
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping <journal-id>",
	Short: "Check that the journal's OJS API is reachable with its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		client, err := a.client(ctx, args[0])
		if err != nil {
			return err
		}

		start := time.Now()
		total, err := client.Ping(ctx)
		if err != nil {
			return fmt.Errorf("ping %s: %w", client.BaseURL(), err)
		}
		fmt.Printf("OK %s (%d submissions, %s)\n", client.BaseURL(), total, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Issue an access token for calling the sync API from scripts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		token, expiresAt, err := a.auth.IssueAccessToken(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"access_token": token, "expires_at": expiresAt})
		}
		fmt.Println(token)
		return nil
	},
}
