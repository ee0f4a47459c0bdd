// Package cli implements the quarry command-line interface using cobra.
// Commands are registered in init functions; services are injected once
// at startup via SetServices.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/quarrydocs/quarry/internal/cache"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/core/ports/driving"
	"github.com/quarrydocs/quarry/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected services. Commands check for nil and fail with a clear
// message instead of panicking.
var (
	retrievalService driving.RetrievalService
	indexingService  driving.IndexingService
	lifecycleService driving.LifecycleService
	settingsService  driving.SettingsService
	embeddingCache   *cache.Cache
	vectorStore      driven.VectorStore
	sparseIndex      driven.SparseIndex
)

// Services bundles everything the CLI needs.
type Services struct {
	Retrieval   driving.RetrievalService
	Indexing    driving.IndexingService
	Lifecycle   driving.LifecycleService
	Settings    driving.SettingsService
	Cache       *cache.Cache
	VectorStore driven.VectorStore
	SparseIndex driven.SparseIndex
}

// SetServices injects the service implementations used by all commands.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	indexingService = s.Indexing
	lifecycleService = s.Lifecycle
	settingsService = s.Settings
	embeddingCache = s.Cache
	vectorStore = s.VectorStore
	sparseIndex = s.SparseIndex
}

// SetVersion overrides the build version string.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Local document retrieval with hybrid ranking",
	Long: `Quarry indexes documents into dense and sparse indexes and serves
ranked passage retrieval over them.

Queries can run dense (vector), sparse (BM25) or hybrid, with optional
cross-encoder reranking and MMR diversification.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
