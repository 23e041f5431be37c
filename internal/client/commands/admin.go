package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"scriptdex/internal/client"
)

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the server to reload its index from disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *client.Client) (interface{}, error) {
				return c.Reload(ctx)
			})
		},
	}
}

// newWaitCmd blocks until the server serves a snapshot other than --since. Progress
// lines go to stderr so stdout holds only the final envelope.
func newWaitCmd() *cobra.Command {
	var since string
	var interval, maxWait time.Duration
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the server serves a new snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := newClient(cmd)
			if err != nil {
				return client.WriteError(cmd.OutOrStdout(), errCodeInvalidConfig, err.Error(), nil)
			}
			p, err := client.NewPoller(c, &client.PollerConfig{Interval: interval, MaxWait: maxWait})
			if err != nil {
				return client.WriteError(cmd.OutOrStdout(), errCodeInvalidConfig, err.Error(), nil)
			}
			health, err := p.WaitForSnapshot(cmd.Context(), since, cmd.ErrOrStderr())
			if err != nil {
				return writeFailure(cmd, err)
			}
			return client.WriteSuccess(cmd.OutOrStdout(), health)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Snapshot id to wait past")
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "Time between health checks")
	cmd.Flags().DurationVar(&maxWait, "max-wait", client.DefaultMaxWait, "Give up after this long")
	return cmd
}
