package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"scriptdex/internal/client"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *client.Client) (interface{}, error) {
				return c.Health(ctx)
			})
		},
	}
}

func newMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta",
		Short: "Describe the snapshot the server is serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *client.Client) (interface{}, error) {
				return c.Meta(ctx)
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return call(cmd, func(ctx context.Context, c *client.Client) (interface{}, error) {
				return c.Search(ctx, q, offset, limit)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "Result offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (server default when 0)")
	return cmd
}

func newItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "item <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, func(ctx context.Context, c *client.Client) (interface{}, error) {
				return c.Item(ctx, args[0])
			})
		},
	}
}

func newTraceCmd() *cobra.Command {
	var prefix bool
	var limit int
	cmd := &cobra.Command{
		Use:   "trace <key>",
		Short: "Show how a tuning value was derived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" && !prefix {
				return client.WriteError(cmd.OutOrStdout(), errCodeInvalidArgument, "trace key cannot be empty", nil)
			}
			return call(cmd, func(ctx context.Context, c *client.Client) (interface{}, error) {
				if prefix {
					return c.TracePrefix(ctx, args[0], limit)
				}
				return c.Trace(ctx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&prefix, "prefix", false, "Treat the argument as a key prefix")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum traces with --prefix")
	return cmd
}
