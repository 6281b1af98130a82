package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSweepCommand runs one expired-lease sweep, the same one the server runs on its schedule.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Return transitions with expired leases to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
				n, err := env.Repo.RequeueExpired(ctx, time.Now().UTC())
				if err != nil {
					return WrapExitError(ExitCommandError, "sweep failed", err)
				}
				env.Logger.Info("Expired leases requeued", zap.Int64("count", n))

				out := formatter{format: rootOpts.Format, w: cmd.OutOrStdout()}
				return out.success(map[string]int64{"requeued": n}, func(w io.Writer) {
					fmt.Fprintf(w, "Requeued %d expired lease(s)\n", n)
				})
			})
		},
	}
}
