package driven

import (
	"context"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// Connector produces documents from an external source system. Connector
// authentication and API polling live entirely behind this port.
type Connector interface {
	// Type returns the source type this connector serves.
	Type() domain.SourceType

	// Source returns the origin identifier (directory, repo URL, space key).
	Source() string

	// Fetch streams the current full document listing. Both channels are
	// closed when the listing is complete; errors on the error channel do
	// not terminate the stream.
	Fetch(ctx context.Context) (<-chan domain.Document, <-chan error)

	// Watch streams documents as they change at the source. Optional;
	// connectors without change feeds return domain.ErrInvalidInput.
	Watch(ctx context.Context) (<-chan domain.Document, error)

	// Close releases resources.
	Close() error
}

// FileConverter converts a binary source file to markdown text. Conversion
// failures are typed (*domain.ConversionError) so connectors can fall back to
// a placeholder document.
type FileConverter interface {
	// Convert reads the file at path and returns markdown text.
	Convert(ctx context.Context, path string) (string, error)
}
