package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewise/tidewise/internal/auth"
)

func newTokenCommand(root *rootOptions) *cobra.Command {
	var (
		subject string
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the configured key",
		Long: `Issue a bearer token for the Tidewise API, signed with auth.signing_key.
Catalog writes need the catalog:write scope.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load(cmd)
			if err != nil {
				return err
			}

			token, expiresAt, err := auth.NewJWTService(cfg.Auth).GenerateAccessToken(subject, scopes...)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (required)")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeCatalogWrite}, "Scopes to grant")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
