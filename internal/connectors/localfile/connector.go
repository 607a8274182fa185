// Package localfile provides a connector that ingests documents from a local
// directory tree. File paths relative to the root serve as stable document
// IDs, so moves are deletions plus additions.
package localfile

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// contentTypes maps file extensions to chunker content types.
var contentTypes = map[string]string{
	".md":       "markdown",
	".markdown": "markdown",
	".json":     "json",
	".txt":      "text",
	".text":     "text",
	".html":     "html",
	".htm":      "html",
}

// Connector reads documents from a directory tree.
type Connector struct {
	root      string
	converter driven.FileConverter
	watcher   *fsnotify.Watcher
}

// New creates a localfile connector rooted at dir. The converter handles
// HTML files; it may be nil, in which case HTML files are ingested raw.
func New(dir string, converter driven.FileConverter) (*Connector, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, abs)
	}

	return &Connector{root: abs, converter: converter}, nil
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceLocalFile
}

// Source returns the root directory.
func (c *Connector) Source() string {
	return c.root
}

// Fetch streams all ingestible files under the root. Unreadable files are
// reported on the error channel and skipped.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.Document, <-chan error) {
	docs := make(chan domain.Document)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		err := filepath.WalkDir(c.root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			name := entry.Name()
			if entry.IsDir() {
				// Hidden directories (.git, .cache) are never sources.
				if strings.HasPrefix(name, ".") && path != c.root {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return nil
			}
			if _, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; !ok {
				return nil
			}

			doc, err := c.buildDocument(ctx, path)
			if err != nil {
				select {
				case errs <- err:
				default:
				}
				return nil
			}

			select {
			case docs <- *doc:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			select {
			case errs <- fmt.Errorf("walking %s: %w", c.root, err):
			default:
			}
		}
	}()

	return docs, errs
}

// buildDocument reads one file into a document.
func (c *Connector) buildDocument(ctx context.Context, path string) (*domain.Document, error) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return nil, fmt.Errorf("relative path for %s: %w", path, err)
	}
	rel = filepath.ToSlash(rel)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	contentType := contentTypes[strings.ToLower(filepath.Ext(path))]

	var content string
	if contentType == "html" && c.converter != nil {
		content, err = c.converter.Convert(ctx, path)
		if err != nil {
			// Conversion failures yield a placeholder so the file stays
			// tracked and is retried when its content changes.
			logger.Warn("Conversion failed for %s: %v", rel, err)
			content = fmt.Sprintf("[unconvertible file: %s]", rel)
		}
		contentType = "text"
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		content = string(raw)
	}

	doc := &domain.Document{
		ID:          rel,
		Source:      c.root,
		SourceType:  domain.SourceLocalFile,
		URL:         "file://" + path,
		Title:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Content:     content,
		ContentType: contentType,
		Metadata: map[string]any{
			"file_size": info.Size(),
		},
		CreatedAt: info.ModTime(),
		UpdatedAt: info.ModTime(),
	}
	doc.EnsureHash()
	return doc, nil
}

// Watch streams documents for files created or modified under the root.
// Deletions do not appear on the stream; a full Fetch pass reconciles them.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.Document, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	c.watcher = watcher

	// Watch every directory in the tree; fsnotify is not recursive.
	err = filepath.WalkDir(c.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != c.root {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", c.root, err)
	}

	docs := make(chan domain.Document)
	go func() {
		defer close(docs)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}

				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if event.Has(fsnotify.Create) {
						_ = watcher.Add(event.Name)
					}
					continue
				}
				if _, ok := contentTypes[strings.ToLower(filepath.Ext(event.Name))]; !ok {
					continue
				}

				doc, err := c.buildDocument(ctx, event.Name)
				if err != nil {
					logger.Warn("Watch: skipping %s: %v", event.Name, err)
					continue
				}
				select {
				case docs <- *doc:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watch error: %v", err)
			}
		}
	}()

	return docs, nil
}

// Close releases the watcher if one is running.
func (c *Connector) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
