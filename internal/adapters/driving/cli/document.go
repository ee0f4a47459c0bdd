package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

var (
	documentVersion int
	documentReason  string
	documentActor   string
	documentAsOf    string
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage document versions",
	Long: `Manage the lifecycle of indexed documents.

Every ingest registers a new version; versions transition to obsolete or
invalid but are never deleted. The event log records every transition.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active document versions",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentHistoryCmd = &cobra.Command{
	Use:   "history [doc-id]",
	Short: "Show all versions of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentHistory,
}

var documentEventsCmd = &cobra.Command{
	Use:   "events [doc-id]",
	Short: "Show the transition log of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentEvents,
}

var documentObsoleteCmd = &cobra.Command{
	Use:   "obsolete [doc-id]",
	Short: "Mark a document version obsolete",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentObsolete,
}

var documentInvalidateCmd = &cobra.Command{
	Use:   "invalidate [doc-id]",
	Short: "Mark a document version invalid",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentInvalidate,
}

var documentCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Obsolete versions whose validity window has passed",
	Args:  cobra.NoArgs,
	RunE:  runDocumentCleanup,
}

var documentRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a document's chunks from the indexes",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRemove,
}

func init() {
	documentListCmd.Flags().StringVar(&documentAsOf, "as-of", "", "point in time (RFC 3339, default now)")
	documentObsoleteCmd.Flags().IntVar(&documentVersion, "version", 0, "version number (0 = latest active)")
	documentObsoleteCmd.Flags().StringVar(&documentReason, "reason", "obsoleted manually", "transition reason")
	documentObsoleteCmd.Flags().StringVar(&documentActor, "actor", "cli", "actor recorded in the event log")
	documentInvalidateCmd.Flags().IntVar(&documentVersion, "version", 0, "version number (0 = latest active)")
	documentInvalidateCmd.Flags().StringVar(&documentReason, "reason", "invalidated manually", "transition reason")
	documentInvalidateCmd.Flags().StringVar(&documentActor, "actor", "cli", "actor recorded in the event log")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentHistoryCmd)
	documentCmd.AddCommand(documentEventsCmd)
	documentCmd.AddCommand(documentObsoleteCmd)
	documentCmd.AddCommand(documentInvalidateCmd)
	documentCmd.AddCommand(documentCleanupCmd)
	documentCmd.AddCommand(documentRemoveCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	var asOf *time.Time
	if documentAsOf != "" {
		t, err := time.Parse(time.RFC3339, documentAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of time: %w", err)
		}
		asOf = &t
	}

	versions, err := lifecycleService.ActiveDocuments(cmd.Context(), asOf)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(versions) == 0 {
		cmd.Println("No active documents.")
		return nil
	}

	cmd.Println("Active documents:")
	for _, v := range versions {
		cmd.Printf("  %s v%d  %s\n", v.DocumentID, v.Version, formatWindow(&v))
	}
	return nil
}

func runDocumentHistory(cmd *cobra.Command, args []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	versions, err := lifecycleService.History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	cmd.Printf("History for %s:\n", args[0])
	for _, v := range versions {
		cmd.Printf("  v%d  %-8s  registered %s  %s\n",
			v.Version, v.Status, v.CreatedAt.Format(time.RFC3339), formatWindow(&v))
	}
	return nil
}

func runDocumentEvents(cmd *cobra.Command, args []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	events, err := lifecycleService.Events(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	if len(events) == 0 {
		cmd.Println("No events.")
		return nil
	}

	cmd.Printf("Events for %s:\n", args[0])
	for _, e := range events {
		cmd.Printf("  %s  v%d  %s (%s)\n",
			e.ObsoletedAt.Format(time.RFC3339), e.Version, e.Reason, e.ObsoletedBy)
	}
	return nil
}

func runDocumentObsolete(cmd *cobra.Command, args []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	err := lifecycleService.Obsolete(cmd.Context(), args[0], documentVersion, documentReason, documentActor)
	if err != nil {
		return fmt.Errorf("failed to obsolete: %w", err)
	}
	cmd.Printf("Obsoleted %s\n", args[0])
	return nil
}

func runDocumentInvalidate(cmd *cobra.Command, args []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	err := lifecycleService.Invalidate(cmd.Context(), args[0], documentVersion, documentReason, documentActor)
	if err != nil {
		return fmt.Errorf("failed to invalidate: %w", err)
	}
	cmd.Printf("Invalidated %s\n", args[0])
	return nil
}

func runDocumentCleanup(cmd *cobra.Command, _ []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	count, err := lifecycleService.CleanupExpired(cmd.Context())
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	cmd.Printf("Obsoleted %d expired version(s)\n", count)
	return nil
}

func runDocumentRemove(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	if err := indexingService.RemoveDocument(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed %s from the indexes\n", args[0])
	return nil
}

// formatWindow renders a version's validity window.
func formatWindow(v *domain.DocumentVersion) string {
	from := v.ValidFrom.Format(time.RFC3339)
	if v.ValidUntil == nil {
		return fmt.Sprintf("valid from %s", from)
	}
	return fmt.Sprintf("valid %s to %s", from, v.ValidUntil.Format(time.RFC3339))
}
