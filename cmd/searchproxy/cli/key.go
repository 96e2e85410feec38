package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hackclub/searchproxy/internal/service"
	"github.com/hackclub/searchproxy/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke API keys without going through the dashboard.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		slackID string
		name    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key for a user",
		Long:  "Generate a new API key for an existing user. The raw key is shown once and cannot be retrieved again.",
		Example: `  searchproxy key create --slack-id U0123ABCD --name "CLI testing"
  searchproxy key create --slack-id U0123ABCD`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(slackID, name)
		},
	}

	cmd.Flags().StringVar(&slackID, "slack-id", "", "Slack ID of the owning user (required)")
	cmd.Flags().StringVar(&name, "name", "API Key", "Human-readable name for the key")
	cmd.MarkFlagRequired("slack-id")

	return cmd
}

func runKeyCreate(slackID, name string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	user, err := st.GetUserBySlackID(ctx, slackID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no user with slack ID %q; they must log in once first", slackID)
	}
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}

	token, err := service.NewAPIKeyToken()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	key, err := st.CreateAPIKey(ctx, user.ID, token, name)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:   %s\n", key.Key)
	fmt.Printf("  Owner: %s (%s)\n", user.Name, user.SlackID)
	fmt.Printf("  Name:  %s\n", key.Name)
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		slackID    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a user's active API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(slackID, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&slackID, "slack-id", "", "Slack ID of the owning user (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("slack-id")

	return cmd
}

func runKeyList(slackID string, jsonOutput bool) error {
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
		return fmt.Errorf("look up user: %w", err)
	}

	keys, err := st.ListActiveAPIKeys(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	type keyRow struct {
		ID      string `json:"id"`
		Preview string `json:"preview"`
		Name    string `json:"name"`
		Created string `json:"created"`
	}

	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		rows[i] = keyRow{
			ID:      k.ID,
			Preview: k.Preview(),
			Name:    k.Name,
			Created: k.CreatedAt.Format("2006-01-02 15:04"),
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No active API keys. Use 'searchproxy key create' to create one.")
		return nil
	}

	fmt.Printf("%-38s %-28s %-24s %-18s\n", "ID", "PREVIEW", "NAME", "CREATED")
	fmt.Printf("%-38s %-28s %-24s %-18s\n", "--", "-------", "----", "-------")
	for _, k := range rows {
		fmt.Printf("%-38s %-28s %-24s %-18s\n", k.ID, k.Preview, k.Name, k.Created)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API key by its raw token",
		Long: `Deactivate an API key. The token is read from a masked terminal prompt so
it never lands in shell history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke()
		},
	}

	return cmd
}

func runKeyRevoke() error {
	fmt.Print("API key token: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return fmt.Errorf("no token entered")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	key, user, err := st.GetAPIKeyByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no API key matches that token")
	}
	if err != nil {
		return fmt.Errorf("look up key: %w", err)
	}
	if key.RevokedAt != nil {
		fmt.Printf("Key %q is already revoked\n", key.Name)
		return nil
	}

	if err := st.RevokeAPIKeyByID(ctx, key.ID); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked key %q owned by %s\n", key.Name, user.Email)
	return nil
}
