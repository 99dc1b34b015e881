package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	PersistPath string // directory to persist data; empty means in-memory
}

// Document is a stored retrieval document.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SearchResult is one similarity hit.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// VectorStore manages per-domain collections of embedded documents.
type VectorStore interface {
	// Add adds documents to a domain collection.
	Add(ctx context.Context, domain string, docs []Document) error

	// Search performs similarity search within a domain collection.
	Search(ctx context.Context, domain, query string, topK int) ([]SearchResult, error)

	// Reset drops and recreates a domain collection.
	Reset(domain string) error

	// Count returns the document count for a domain.
	Count(domain string) int
}

// chromemStore implements VectorStore using chromem-go, one collection per
// domain.
type chromemStore struct {
	mu          sync.RWMutex
	db          *chromem.DB
	collections map[string]*chromem.Collection
	embedder    Embedder
}

// NewVectorStore creates a vector store persisted under config.PersistPath.
func NewVectorStore(config StoreConfig, embedder Embedder) (VectorStore, error) {
	var db *chromem.DB
	var err error
	if config.PersistPath != "" {
		if err := checkEmbeddingDims(config.PersistPath, embedder.Dimensions()); err != nil {
			return nil, err
		}
		db, err = chromem.NewPersistentDB(filepath.Join(config.PersistPath, "chromem.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &chromemStore{
		db:          db,
		collections: make(map[string]*chromem.Collection),
		embedder:    embedder,
	}, nil
}

// checkEmbeddingDims guards a persisted store against being reopened with an
// embedder of a different dimensionality, which would make every query fail
// at runtime. The active dimension is recorded next to the database on first
// open.
func checkEmbeddingDims(dir string, dims int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create vector dir: %w", err)
	}
	marker := filepath.Join(dir, "embedding_dims")
	data, err := os.ReadFile(marker)
	if os.IsNotExist(err) {
		return os.WriteFile(marker, []byte(strconv.Itoa(dims)), 0644)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", marker, err)
	}
	stored, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || stored <= 0 {
		return os.WriteFile(marker, []byte(strconv.Itoa(dims)), 0644)
	}
	if stored != dims {
		return fmt.Errorf("persisted vectors in %s use %d dimensions but the configured embedder produces %d; clear the directory and reindex, or restore the original embedder", dir, stored, dims)
	}
	return nil
}

func (s *chromemStore) collection(domain string) (*chromem.Collection, error) {
	name := strings.ToLower(strings.TrimSpace(domain))
	if name == "" {
		return nil, fmt.Errorf("empty domain")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		return col, nil
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
	col, err := s.db.GetOrCreateCollection(name, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

func (s *chromemStore) Add(ctx context.Context, domain string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := s.collection(domain)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		err := col.AddDocument(ctx, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (s *chromemStore) Search(ctx context.Context, domain, query string, topK int) ([]SearchResult, error) {
	col, err := s.collection(domain)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 4
	}
	// chromem rejects queries asking for more results than stored documents.
	if count := col.Count(); count < topK {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := col.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", domain, err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func (s *chromemStore) Reset(domain string) error {
	name := strings.ToLower(strings.TrimSpace(domain))
	if name == "" {
		return fmt.Errorf("empty domain")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	delete(s.collections, name)
	return nil
}

func (s *chromemStore) Count(domain string) int {
	col, err := s.collection(domain)
	if err != nil {
		return 0
	}
	return col.Count()
}
