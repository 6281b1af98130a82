package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"crm-workflow/internal/features/transition"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListOptions are the queue view filters.
type ListOptions struct {
	Status     string
	EntityType string
	EntityID   string
	WorkflowID string
	Since      time.Duration
	Limit      int64
	Page       int64
}

func (o ListOptions) filter(now time.Time) (transition.Filter, error) {
	var f transition.Filter
	if o.Status != "" {
		status, err := transition.ParseStatus(o.Status)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	if o.WorkflowID != "" {
		oid, err := primitive.ObjectIDFromHex(o.WorkflowID)
		if err != nil {
			return f, fmt.Errorf("invalid workflow id %q", o.WorkflowID)
		}
		f.WorkflowID = oid
	}
	if o.Since > 0 {
		f.From = now.Add(-o.Since)
	}
	f.EntityType = o.EntityType
	f.EntityID = o.EntityID

	// export passes no paging; the service applies its own row cap
	if o.Limit == 0 {
		return f, nil
	}
	offset, size, err := transition.PageOffset(o.Page, o.Limit)
	if err != nil {
		return f, err
	}
	f.Limit = size
	f.Offset = offset
	return f, nil
}

func addFilterFlags(cmd *cobra.Command, o *ListOptions) {
	cmd.Flags().StringVar(&o.Status, "status", "", "pending, processing, success, failed or dead")
	cmd.Flags().StringVar(&o.EntityType, "entity-type", "", "entity type")
	cmd.Flags().StringVar(&o.EntityID, "entity-id", "", "entity id")
	cmd.Flags().StringVar(&o.WorkflowID, "workflow", "", "workflow id")
	cmd.Flags().DurationVar(&o.Since, "since", 0, "only transitions created within this window")
}

// NewTransitionsCommand groups the queue subcommands.
func NewTransitionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transitions",
		Aliases: []string{"tx"},
		Short:   "Inspect and repair queued transitions",
	}

	cmd.AddCommand(newListCommand(rootOpts))
	cmd.AddCommand(newRequeueCommand(rootOpts))
	cmd.AddCommand(newExportCommand(rootOpts))
	return cmd
}

func newListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transitions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, opts)
		},
	}

	addFilterFlags(cmd, opts)
	cmd.Flags().Int64Var(&opts.Limit, "limit", 20, "page size")
	cmd.Flags().Int64Var(&opts.Page, "page", 1, "page number")
	return cmd
}

func runList(cmd *cobra.Command, rootOpts *RootOptions, opts *ListOptions) error {
	filter, err := opts.filter(time.Now().UTC())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
		page, err := env.Transitions.List(ctx, filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list transitions", err)
		}

		out := formatter{format: rootOpts.Format, w: cmd.OutOrStdout()}
		return out.success(page, func(w io.Writer) {
			writeTable(w, page.Items)
			fmt.Fprintf(w, "\n%d of %d transition(s)\n", len(page.Items), page.Total)
		})
	})
}

func writeTable(w io.Writer, items []transition.Transition) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tENTITY\tFROM\tTO\tATTEMPTS\tCREATED\tERROR")
	for _, t := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%d\t%s\t%s\n",
			t.ID.Hex(), t.Status, t.EntityType, t.EntityID,
			t.SourceUserGroupID, t.TargetUserGroupID, t.AttemptCount,
			t.CreatedAt.Format(time.RFC3339), t.ErrorMessage)
	}
	_ = tw.Flush()
}

func newRequeueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <transition-id>",
		Short: "Return a dead transition to pending with a fresh attempt budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
				t, err := env.Transitions.Requeue(ctx, args[0])
				switch {
				case errors.Is(err, transition.ErrNotFound),
					errors.Is(err, transition.ErrInvalidState),
					errors.Is(err, transition.ErrOpenTransitionExists):
					return WrapExitError(ExitFailure, "requeue refused", err)
				case err != nil:
					return WrapExitError(ExitCommandError, "failed to requeue", err)
				}

				out := formatter{format: rootOpts.Format, w: cmd.OutOrStdout()}
				return out.success(t, func(w io.Writer) {
					fmt.Fprintf(w, "Requeued %s (%s/%s -> %s)\n", t.ID.Hex(), t.EntityType, t.EntityID, t.TargetUserGroupID)
				})
			})
		},
	}
}

func newExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered queue view to an xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter(time.Now().UTC())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}
			if outPath == "" {
				outPath = fmt.Sprintf("transitions_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
			}

			return withEnv(cmd, rootOpts, func(ctx context.Context, env *Env) error {
				data, err := env.Transitions.Export(ctx, filter)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to export transitions", err)
				}
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write export", err)
				}

				out := formatter{format: rootOpts.Format, w: cmd.OutOrStdout()}
				result := map[string]interface{}{"path": outPath, "bytes": len(data)}
				return out.success(result, func(w io.Writer) {
					fmt.Fprintf(w, "Wrote %s (%d bytes)\n", outPath, len(data))
				})
			})
		},
	}

	addFilterFlags(cmd, opts)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default transitions_<timestamp>.xlsx)")
	return cmd
}

// withEnv opens the stores for one command run and closes them afterwards.
func withEnv(cmd *cobra.Command, rootOpts *RootOptions, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := rootOpts.env(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if env.Close != nil {
			_ = env.Close(context.Background())
		}
	}()

	return fn(ctx, env)
}
