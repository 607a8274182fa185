package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [source]", ingestCmd.Use)
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	oldService := ingestService
	ingestService = nil
	defer func() {
		ingestService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}

func TestIngestCmd_NoSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no sources configured")
}

func TestIngestCmd_IngestsConfiguredSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	connectors = append(connectors, &mockConnector{
		source: "/srv/docs",
		docs: []domain.Document{
			{ID: "a.md", Content: "alpha"},
			{ID: "b.md", Content: "beta"},
		},
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Fetched 2 documents")
	assert.Contains(t, buf.String(), "2 processed")
	assert.Contains(t, buf.String(), "2 succeeded")
}

func TestIngestCmd_UnknownSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	connectors = append(connectors, &mockConnector{source: "/srv/docs"})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "/other/place"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestIngestCmd_ReportsDocumentErrors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	ingestService = &mockIngestor{
		result: &domain.IngestResult{
			Processed: 2,
			Succeeded: 1,
			Failed:    1,
			Errors:    []string{"bad.md: embedding failed"},
		},
	}
	connectors = append(connectors, &mockConnector{
		source: "/srv/docs",
		docs:   []domain.Document{{ID: "a.md"}, {ID: "bad.md"}},
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 failed")
	assert.Contains(t, buf.String(), "bad.md: embedding failed")
}
