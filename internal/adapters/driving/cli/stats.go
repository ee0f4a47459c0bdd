package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if vectorStore == nil && sparseIndex == nil && embeddingCache == nil {
		return errors.New("no services configured")
	}

	if vectorStore != nil {
		count, err := vectorStore.Count(cmd.Context())
		if err != nil {
			cmd.Printf("Corpus:            unavailable (%v)\n", err)
		} else {
			cmd.Printf("Corpus:            %d chunks\n", count)
		}
	}
	if sparseIndex != nil {
		cmd.Printf("Sparse index:      %d chunks\n", sparseIndex.Size())
	}
	if embeddingCache != nil {
		stats := embeddingCache.Stats()
		cmd.Printf("Cache entries:     %d (%s)\n", stats.Entries, formatBytes(stats.SizeBytes))
		cmd.Printf("Cache hit rate:    %.1f%%\n", stats.HitRate*100)
	}
	return nil
}
