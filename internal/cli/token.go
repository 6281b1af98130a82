package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"crm-workflow/internal/config"
	"crm-workflow/pkg/utils"

	"github.com/spf13/cobra"
)

// TokenOptions configures a locally signed API token.
type TokenOptions struct {
	UserID string
	Roles  []string
	TTL    time.Duration
	Secret string
}

// NewTokenCommand signs a JWT with JWT_SECRET so operators can call the API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.UserID) == "" {
				return NewExitError(ExitCommandError, "--user is required")
			}

			secret := opts.Secret
			if secret == "" {
				cfg, err := config.LoadConfig()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				secret = cfg.JWTSecret
			}
			utils.SetSecret(secret)

			token, err := utils.GenerateToken(opts.UserID, opts.Roles, opts.TTL)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to sign token", err)
			}

			out := formatter{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.success(map[string]string{"token": token}, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id placed in the token")
	cmd.Flags().StringSliceVar(&opts.Roles, "roles", []string{"admin"}, "roles placed in the token")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "signing secret (default JWT_SECRET)")
	return cmd
}
