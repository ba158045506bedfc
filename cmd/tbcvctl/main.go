// tbcvctl is a thin cobra CLI over TBCV's RPC registry (§6). Every leaf
// command builds a params map, calls the in-process dispatcher built by
// the same server.New construction path the server binary uses — there
// is no network hop, no separate transport to keep in sync.
//
// # File index
//
//   - main.go              - entry point, rootCmd, global flags, runRPC helper
//   - cmd_validate.go      - validate-content, validate-file, validate-folder, validations subtree
//   - cmd_recommend.go     - recommendations subtree
//   - cmd_enhance.go       - enhance, enhance-preview, enhance-auto-apply, rollback
//   - cmd_workflow.go      - workflows subtree
//   - cmd_admin.go         - admin subtree
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/babar-raza/tbcv/internal/rpc"
	"github.com/babar-raza/tbcv/pkg/server"

	"github.com/spf13/cobra"
)

var outputFormat string

var rootCmd = &cobra.Command{
	Use:   "tbcvctl",
	Short: "Command-line client for the TBCV validation and enhancement pipeline",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table|json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if _, ok := err.(usageError); ok {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// usageError marks a command-line misuse (bad flags/args) so main can
// exit(2) instead of exit(1), per §6's exit-code contract.
type usageError struct{ error }

func newUsageError(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// rpcClient lazily builds the full server (store, cache, rule loader,
// truth index, registry) on first use; most commands need it, a couple
// (help, version) don't, so it isn't built in a PersistentPreRun.
type rpcClient struct {
	srv *server.Server
}

func newRPCClient(ctx context.Context) (*rpcClient, error) {
	srv, err := server.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize tbcv: %w", err)
	}
	return &rpcClient{srv: srv}, nil
}

func (c *rpcClient) close() {
	c.srv.Store.Close()
}

// call dispatches method with params in-process and returns either the
// result or the RPC error, formatted so Cobra's error path drives the §6
// exit code.
func (c *rpcClient) call(ctx context.Context, method string, params map[string]any) (any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	resp := c.srv.Dispatcher.Dispatch(ctx, rpc.Request{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
	if resp.Error != nil {
		return nil, fmt.Errorf("%s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	return resp.Result, nil
}

// printResult writes result to stdout as indented JSON. The "table" and
// "json" formats produce the same output; no tabular rendering is done.
func printResult(result any) error {
	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// runRPC is the common body of every leaf command: build the client, make
// the call, print the result, close the client.
func runRPC(cmd *cobra.Command, method string, params map[string]any) error {
	ctx := cmd.Context()
	client, err := newRPCClient(ctx)
	if err != nil {
		return err
	}
	defer client.close()

	result, err := client.call(ctx, method, params)
	if err != nil {
		return err
	}
	return printResult(result)
}
