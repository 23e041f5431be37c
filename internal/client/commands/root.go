// Package commands holds the `scriptdex client` command group, which queries a running
// scriptdex API server and prints JSON envelopes.
package commands

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scriptdex/internal/client"
)

const (
	flagAPIURL  = "api-url"
	flagTimeout = "timeout"
)

// Error codes written when a command fails before or outside the server.
const (
	errCodeInvalidConfig   = "INVALID_CONFIG"
	errCodeInvalidArgument = "INVALID_ARGUMENT"
	errCodeConnectionError = "CONNECTION_ERROR"
	errCodeTimeoutError    = "TIMEOUT_ERROR"
	errCodeAPIError        = "API_ERROR"
)

// NewClientCmd returns the client command group. --api-url and --timeout default to
// SCRIPTDEX_CLIENT_API_URL and SCRIPTDEX_CLIENT_TIMEOUT when those are set.
func NewClientCmd() *cobra.Command {
	defaults := client.DefaultConfig()
	if cfg, err := client.LoadConfig(); err == nil {
		defaults = *cfg
	}

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Query a running scriptdex API server",
	}
	cmd.PersistentFlags().String(flagAPIURL, defaults.APIURL, "API server URL")
	cmd.PersistentFlags().Duration(flagTimeout, defaults.Timeout, "Request timeout")

	cmd.AddCommand(
		newHealthCmd(),
		newMetaCmd(),
		newSearchCmd(),
		newItemCmd(),
		newTraceCmd(),
		newReloadCmd(),
		newWaitCmd(),
	)
	return cmd
}

// call builds a client from the persistent flags, runs fn under the request timeout and
// writes the result envelope. Failures are reported in the envelope, so call returns
// only output errors.
func call(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) (interface{}, error)) error {
	c, timeout, err := newClient(cmd)
	if err != nil {
		return client.WriteError(cmd.OutOrStdout(), errCodeInvalidConfig, err.Error(), nil)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	data, err := fn(ctx, c)
	if err != nil {
		return writeFailure(cmd, err)
	}
	return client.WriteSuccess(cmd.OutOrStdout(), data)
}

func newClient(cmd *cobra.Command) (*client.Client, time.Duration, error) {
	apiURL, _ := cmd.Flags().GetString(flagAPIURL)
	timeout, _ := cmd.Flags().GetDuration(flagTimeout)
	c, err := client.NewClient(&client.Config{APIURL: apiURL, Timeout: timeout})
	return c, timeout, err
}

func writeFailure(cmd *cobra.Command, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Body.Error != "" {
		return client.WriteError(cmd.OutOrStdout(), apiErr.Body.Error, apiErr.Body.Message, apiErr.Body.Details)
	}
	return client.WriteError(cmd.OutOrStdout(), errorCode(err), err.Error(), nil)
}

// errorCode classifies failures that carry no server error envelope.
func errorCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, client.ErrPollingTimeout) {
		return errCodeTimeoutError
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errCodeTimeoutError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) || strings.Contains(err.Error(), "connection refused") {
		return errCodeConnectionError
	}
	return errCodeAPIError
}
