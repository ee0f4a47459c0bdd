package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydocs/quarry/internal/adapters/driven/ai"
	"github.com/quarrydocs/quarry/internal/core/domain"
)

var (
	setEmbeddingProvider string
	setEmbeddingModel    string
	setEmbeddingBaseURL  string
	setEmbeddingAPIKey   string
	setRelevanceProvider string
	setRelevanceModel    string
	setRelevanceAPIKey   string
	setTopK              int
	setStrategy          string
	setThreshold         float64
	setVectorProvider    string
	setVectorURL         string
	setValidate          bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change configuration",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	Long: `Changes configuration values and writes them to the config file.
Only flags that are set are changed; everything else keeps its value.

With --validate, AI provider changes are checked for connectivity
before being saved.`,
	Args: cobra.NoArgs,
	RunE: runSettingsSet,
}

func init() {
	flags := settingsSetCmd.Flags()
	flags.StringVar(&setEmbeddingProvider, "embedding-provider", "", "embedding provider: ollama, openai")
	flags.StringVar(&setEmbeddingModel, "embedding-model", "", "embedding model name")
	flags.StringVar(&setEmbeddingBaseURL, "embedding-url", "", "embedding API base URL")
	flags.StringVar(&setEmbeddingAPIKey, "embedding-api-key", "", "embedding API key")
	flags.StringVar(&setRelevanceProvider, "relevance-provider", "", "relevance provider: ollama, openai")
	flags.StringVar(&setRelevanceModel, "relevance-model", "", "relevance model name")
	flags.StringVar(&setRelevanceAPIKey, "relevance-api-key", "", "relevance API key")
	flags.IntVar(&setTopK, "top-k", 0, "default result count")
	flags.StringVar(&setStrategy, "strategy", "", "default retrieval strategy: dense, sparse, hybrid")
	flags.Float64Var(&setThreshold, "threshold", 0, "default similarity threshold")
	flags.StringVar(&setVectorProvider, "vector-provider", "", "vector store: memory, qdrant")
	flags.StringVar(&setVectorURL, "vector-url", "", "vector store URL")
	flags.BoolVar(&setValidate, "validate", false, "ping AI providers before saving")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cmd.Println("Embedding:")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider)
	cmd.Printf("  Model:    %s\n", settings.Embedding.Model)
	cmd.Printf("  API key:  %s\n", maskKey(settings.Embedding.APIKey))
	cmd.Println("Relevance:")
	cmd.Printf("  Provider: %s\n", settings.Relevance.Provider)
	cmd.Printf("  Model:    %s\n", settings.Relevance.Model)
	cmd.Printf("  API key:  %s\n", maskKey(settings.Relevance.APIKey))
	cmd.Println("Retrieval:")
	cmd.Printf("  Strategy:  %s\n", settings.Retrieval.Strategy)
	cmd.Printf("  Top K:     %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Threshold: %.2f\n", settings.Retrieval.SimilarityThreshold)
	cmd.Println("Vector store:")
	cmd.Printf("  Provider:   %s\n", settings.VectorStore.Provider)
	cmd.Printf("  Collection: %s\n", settings.VectorStore.Collection)
	return nil
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("embedding-provider") {
		settings.Embedding.Provider = domain.AIProvider(setEmbeddingProvider)
	}
	if flags.Changed("embedding-model") {
		settings.Embedding.Model = setEmbeddingModel
	}
	if flags.Changed("embedding-url") {
		settings.Embedding.BaseURL = setEmbeddingBaseURL
	}
	if flags.Changed("embedding-api-key") {
		settings.Embedding.APIKey = setEmbeddingAPIKey
	}
	if flags.Changed("relevance-provider") {
		settings.Relevance.Provider = domain.AIProvider(setRelevanceProvider)
	}
	if flags.Changed("relevance-model") {
		settings.Relevance.Model = setRelevanceModel
	}
	if flags.Changed("relevance-api-key") {
		settings.Relevance.APIKey = setRelevanceAPIKey
	}
	if flags.Changed("top-k") {
		settings.Retrieval.TopK = setTopK
	}
	if flags.Changed("strategy") {
		settings.Retrieval.Strategy = domain.RetrievalStrategy(setStrategy)
	}
	if flags.Changed("threshold") {
		settings.Retrieval.SimilarityThreshold = setThreshold
	}
	if flags.Changed("vector-provider") {
		settings.VectorStore.Provider = domain.VectorStoreProvider(setVectorProvider)
	}
	if flags.Changed("vector-url") {
		settings.VectorStore.URL = setVectorURL
	}

	if setValidate {
		if err := ai.ValidateEmbeddingConfig(&settings.Embedding); err != nil {
			return fmt.Errorf("embedding config rejected: %w", err)
		}
		if err := ai.ValidateRelevanceConfig(&settings.Relevance); err != nil {
			return fmt.Errorf("relevance config rejected: %w", err)
		}
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Settings saved.")
	return nil
}

// maskKey hides all but the last four characters of an API key.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
