package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

var (
	retrieveTopK      int
	retrieveStrategy  string
	retrieveThreshold float64
	retrieveRerank    bool
	retrieveDiversify bool
	retrieveLambda    float64
	retrieveJSON      bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve ranked passages for a query",
	Long: `Runs a retrieval query against the indexed corpus.

The strategy flag selects dense (vector), sparse (BM25) or hybrid
retrieval; hybrid fuses both ranked lists with reciprocal rank fusion.
Reranking rescores a widened candidate pool with the relevance model,
and --diversify applies MMR re-ordering to reduce redundancy.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "n", 0, "maximum number of results (0 = configured default)")
	retrieveCmd.Flags().StringVar(&retrieveStrategy, "strategy", "", "retrieval strategy: dense, sparse, hybrid (default from settings)")
	retrieveCmd.Flags().Float64Var(&retrieveThreshold, "threshold", 0, "minimum similarity score (0 = no filter)")
	retrieveCmd.Flags().BoolVar(&retrieveRerank, "rerank", false, "rescore candidates with the relevance model")
	retrieveCmd.Flags().BoolVar(&retrieveDiversify, "diversify", false, "apply MMR diversification")
	retrieveCmd.Flags().Float64Var(&retrieveLambda, "lambda", 0, "MMR relevance/diversity trade-off (0 = default)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.RetrieveOptions{
		TopK:                retrieveTopK,
		SimilarityThreshold: retrieveThreshold,
		Strategy:            domain.RetrievalStrategy(retrieveStrategy),
		Rerank:              retrieveRerank,
		Diversify:           retrieveDiversify,
		MMRLambda:           retrieveLambda,
	}
	applyRetrievalDefaults(&opts)

	candidates, err := retrievalService.Retrieve(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		return outputCandidatesJSON(cmd, candidates)
	}
	return outputCandidatesTable(cmd, candidates)
}

// applyRetrievalDefaults fills unset options from configuration, falling
// back to built-in defaults when settings are unavailable.
func applyRetrievalDefaults(opts *domain.RetrieveOptions) {
	settings := domain.DefaultAppSettings()
	if settingsService != nil {
		if configured, err := settingsService.Get(); err == nil {
			settings = configured
		}
	}

	if opts.TopK <= 0 {
		opts.TopK = settings.Retrieval.TopK
	}
	if opts.Strategy == "" {
		opts.Strategy = settings.Retrieval.Strategy
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = settings.Retrieval.SimilarityThreshold
	}
	if opts.Diversify && opts.MMRLambda <= 0 {
		opts.MMRLambda = settings.Retrieval.MMRLambda
	}
}

func outputCandidatesJSON(cmd *cobra.Command, candidates []domain.RetrievalCandidate) error {
	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputCandidatesTable(cmd *cobra.Command, candidates []domain.RetrievalCandidate) error {
	if len(candidates) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, c := range candidates {
		location := c.DocumentName
		if c.PageNumber > 0 {
			location = fmt.Sprintf("%s p.%d", location, c.PageNumber)
		}
		cmd.Printf("[%d] %s (%.3f)\n", i+1, location, c.SimilarityScore)
		cmd.Printf("    %s\n", snippet(c.Text, 160))
	}
	return nil
}

// snippet truncates text to max runes with an ellipsis.
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
