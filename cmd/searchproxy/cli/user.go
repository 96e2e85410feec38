package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hackclub/searchproxy/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Ban or unban users and manage identity-verification exemptions.",
	}

	cmd.AddCommand(newUserBanCmd())
	cmd.AddCommand(newUserUnbanCmd())
	cmd.AddCommand(newUserSkipIDVCmd())
	cmd.AddCommand(newUserShowCmd())

	return cmd
}

func newUserBanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ban <slack-id>",
		Short: "Ban a user",
		Long:  "Ban a user. Their sessions and API keys stop working immediately; key rows are kept for the audit trail.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserFlag(args[0], "ban")
		},
	}
	return cmd
}

func newUserUnbanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unban <slack-id>",
		Short: "Lift a user's ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserFlag(args[0], "unban")
		},
	}
	return cmd
}

func newUserSkipIDVCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "skip-idv <slack-id>",
		Short: "Exempt a user from identity verification",
		Long:  "Mark a user as exempt from identity-verification enforcement. Use --clear to remove the exemption.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				return runUserFlag(args[0], "clear-skip-idv")
			}
			return runUserFlag(args[0], "skip-idv")
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the exemption instead of granting it")

	return cmd
}

func runUserFlag(slackID, action string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	switch action {
	case "ban":
		err = st.SetUserBanned(ctx, slackID, true)
	case "unban":
		err = st.SetUserBanned(ctx, slackID, false)
	case "skip-idv":
		err = st.SetUserSkipIdv(ctx, slackID, true)
	case "clear-skip-idv":
		err = st.SetUserSkipIdv(ctx, slackID, false)
	}

	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no user with slack ID %q", slackID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Done: %s %s\n", action, slackID)
	return nil
}

func newUserShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <slack-id>",
		Short: "Show a user's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserShow(args[0])
		},
	}
	return cmd
}

func runUserShow(slackID string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	user, err := st.GetUserBySlackID(ctx, slackID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no user with slack ID %q", slackID)
	}
	if err != nil {
		return err
	}

	requests, err := st.CountRequestsByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	fmt.Printf("  ID:        %s\n", user.ID)
	fmt.Printf("  Slack ID:  %s\n", user.SlackID)
	fmt.Printf("  Email:     %s\n", user.Email)
	fmt.Printf("  Name:      %s\n", user.Name)
	fmt.Printf("  Banned:    %t\n", user.IsBanned)
	fmt.Printf("  Verified:  %t\n", user.IsIdvVerified)
	fmt.Printf("  Skip IDV:  %t\n", user.SkipIdv)
	fmt.Printf("  Requests:  %d\n", requests)
	fmt.Printf("  Joined:    %s\n", user.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}
