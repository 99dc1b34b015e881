package rag

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"servicedesk/internal/logging"
)

// IndexerConfig holds indexing configuration.
type IndexerConfig struct {
	// DataDir contains one "<domain>_docs" subdirectory per domain.
	DataDir     string
	Extensions  []string // indexable file extensions, default .md/.txt
	ChunkConfig ChunkerConfig
}

// IndexStats summarizes one reindex pass.
type IndexStats struct {
	Files  int
	Chunks int
	Errors int
}

// Indexer rebuilds domain retrieval corpora from their docs directories.
type Indexer struct {
	config  IndexerConfig
	chunker Chunker
	store   VectorStore
	logger  logging.Logger
}

// NewIndexer creates an indexer over the vector store.
func NewIndexer(config IndexerConfig, chunker Chunker, store VectorStore) *Indexer {
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".md", ".txt"}
	}
	return &Indexer{
		config:  config,
		chunker: chunker,
		store:   store,
		logger:  logging.NewComponentLogger("Indexer"),
	}
}

// DocsDir returns the documents directory for a domain.
func (idx *Indexer) DocsDir(domain string) string {
	return filepath.Join(idx.config.DataDir, strings.ToLower(domain)+"_docs")
}

// Reindex drops a domain's collection and rebuilds it from the domain docs
// directory. A missing or empty directory leaves the domain with an empty
// collection; retrieval then serves its placeholder.
func (idx *Indexer) Reindex(ctx context.Context, domain string) (*IndexStats, error) {
	if err := idx.store.Reset(domain); err != nil {
		return nil, fmt.Errorf("reset %s: %w", domain, err)
	}

	stats := &IndexStats{}
	dir := idx.DocsDir(domain)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			idx.logger.Info("no docs directory for domain %s, leaving corpus empty", domain)
			return stats, nil
		}
		return nil, fmt.Errorf("read docs dir: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !idx.indexable(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			idx.logger.Warn("skipping %s: %v", path, err)
			stats.Errors++
			continue
		}
		stats.Files++

		chunks, err := idx.chunker.ChunkText(string(content), map[string]string{
			"source": entry.Name(),
			"domain": strings.ToLower(domain),
		})
		if err != nil {
			idx.logger.Warn("chunking %s failed: %v", path, err)
			stats.Errors++
			continue
		}
		for i, chunk := range chunks {
			docs = append(docs, Document{
				ID:       chunkID(entry.Name(), i, chunk.Text),
				Content:  chunk.Text,
				Metadata: chunk.Metadata,
			})
		}
		stats.Chunks += len(chunks)
	}

	if err := idx.store.Add(ctx, domain, docs); err != nil {
		return nil, fmt.Errorf("index %s: %w", domain, err)
	}
	idx.logger.Info("reindexed domain %s: %d files, %d chunks", domain, stats.Files, stats.Chunks)
	return stats, nil
}

func (idx *Indexer) indexable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range idx.config.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func chunkID(file string, ordinal int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s-%d-%x", file, ordinal, sum[:6])
}
