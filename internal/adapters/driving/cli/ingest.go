package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source]",
	Short: "Ingest documents from configured sources",
	Long: `Fetches documents from configured sources, detects changes against the
last run, and indexes new and updated documents into the vector store.
If a source name is provided, only that source is ingested.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if len(connectors) == 0 {
		return errors.New("no sources configured")
	}

	ctx := context.Background()

	selected := connectors
	if len(args) > 0 {
		selected = nil
		for _, c := range connectors {
			if c.Source() == args[0] {
				selected = append(selected, c)
			}
		}
		if len(selected) == 0 {
			return fmt.Errorf("unknown source: %s", args[0])
		}
	}

	for _, c := range selected {
		cmd.Printf("Ingesting %s (%s)...\n", c.Source(), c.Type())

		result, err := ingestWithProgress(ctx, cmd, c)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", c.Source(), err)
		}

		cmd.Printf("Done: %d processed, %d succeeded, %d failed, %d deleted, %d chunks\n",
			result.Processed, result.Succeeded, result.Failed, result.Deleted,
			result.ChunksUpserted)
		for _, msg := range result.Errors {
			cmd.Printf("  error: %s\n", msg)
		}
	}

	return nil
}

// ingestWithProgress runs ingestion while polling status for progress output.
func ingestWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	connector driven.Connector,
) (*domain.IngestResult, error) {
	docs, err := collectDocuments(ctx, connector)
	if err != nil {
		return nil, err
	}
	cmd.Printf("Fetched %d documents\n", len(docs))

	type ingestOutcome struct {
		result *domain.IngestResult
		err    error
	}
	outcomeCh := make(chan ingestOutcome, 1)
	go func() {
		result, err := ingestService.Ingest(ctx, connector.Type(), connector.Source(), docs)
		outcomeCh <- ingestOutcome{result, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case outcome := <-outcomeCh:
			return outcome.result, outcome.err
		case <-ticker.C:
			// Best effort progress; status errors are ignored.
			status, err := ingestService.Status(ctx, connector.Type(), connector.Source())
			if err == nil && status != nil && status.DocumentsProcessed > lastCount {
				cmd.Printf("\rProcessing... %d documents", status.DocumentsProcessed)
				lastCount = status.DocumentsProcessed
			}
		}
	}
}

// collectDocuments drains a connector's fetch stream into a batch.
func collectDocuments(ctx context.Context, connector driven.Connector) ([]domain.Document, error) {
	docCh, errCh := connector.Fetch(ctx)

	var docs []domain.Document
	for doc := range docCh {
		docs = append(docs, doc)
	}
	for err := range errCh {
		logger.Warn("Fetch: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
