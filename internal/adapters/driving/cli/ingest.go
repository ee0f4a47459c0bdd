package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

var (
	ingestID   string
	ingestName string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Index a document into the retrieval corpus",
	Long: `Reads a plain-text document, chunks it, embeds the chunks and
upserts them into the vector store. Form-feed characters (\f) split the
file into pages; without them the whole file is a single page.

Each ingest registers a new lifecycle version of the document and marks
the prior active version obsolete.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document ID (default: file base name)")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document display name (default: file base name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	filePath := args[0]
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	documentID := ingestID
	if documentID == "" {
		documentID = filepath.Base(filePath)
	}
	documentName := ingestName
	if documentName == "" {
		documentName = filepath.Base(filePath)
	}

	pages := splitPages(string(data))
	count, err := indexingService.IngestDocument(cmd.Context(), documentID, documentName, filePath, pages)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Indexed %s: %d chunks from %d pages\n", documentName, count, len(pages))
	return nil
}

// splitPages splits text into pages on form feeds, keeping 1-based page
// numbers stable even for blank pages.
func splitPages(text string) []domain.PageText {
	parts := strings.Split(text, "\f")
	pages := make([]domain.PageText, len(parts))
	for i, part := range parts {
		pages[i] = domain.PageText{
			PageNumber: i + 1,
			Text:       part,
		}
	}
	return pages
}
