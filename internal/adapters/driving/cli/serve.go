package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora/internal/adapters/driving/rpc"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON-RPC search server",
	Long: `Starts an HTTP server exposing search over JSON-RPC 2.0 at /rpc.

Example request:
  {"jsonrpc":"2.0","id":1,"method":"search","params":{"query":"deployment"}}`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":7700", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	server, err := rpc.NewServer(searchService)
	if err != nil {
		return err
	}

	cmd.Printf("JSON-RPC server listening on %s\n", serveAddr)
	return server.Run(cmd.Context(), serveAddr)
}
