package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the embedding cache",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if embeddingCache == nil {
		return errors.New("embedding cache not configured")
	}

	stats := embeddingCache.Stats()
	cmd.Println("Embedding cache:")
	cmd.Printf("  Entries:   %d\n", stats.Entries)
	cmd.Printf("  Size:      %s\n", formatBytes(stats.SizeBytes))
	cmd.Printf("  Hits:      %d\n", stats.Hits)
	cmd.Printf("  Misses:    %d\n", stats.Misses)
	cmd.Printf("  Evictions: %d\n", stats.Evictions)
	cmd.Printf("  Hit rate:  %.1f%%\n", stats.HitRate*100)
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if embeddingCache == nil {
		return errors.New("embedding cache not configured")
	}

	if err := embeddingCache.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	cmd.Println("Cache cleared.")
	return nil
}

// formatBytes renders a byte count in human-readable units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
