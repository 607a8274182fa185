// Package cli provides the corpora command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/core/ports/driving"
	"github.com/custodia-labs/corpora/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Injected services. Commands check for nil and fail with a clear message
// so the CLI stays testable without a full wiring.
var (
	searchService driving.SearchService
	ingestService driving.Ingestor
	connectors    []driven.Connector
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Hybrid search over your document sources",
	Long: `Corpora indexes documents from configured sources into a vector store
and serves hybrid (semantic + keyword) search over them, locally or to
AI assistants via MCP and JSON-RPC.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	// The config file is loaded before command dispatch; the flag is declared
	// here so it appears in help output and passes validation.
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.corpora/config.toml)")
}

// Services bundles everything the commands need.
type Services struct {
	Search     driving.SearchService
	Ingest     driving.Ingestor
	Connectors []driven.Connector
}

// SetServices injects the wired services into the command tree.
func SetServices(s Services) {
	searchService = s.Search
	ingestService = s.Ingest
	connectors = s.Connectors
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
