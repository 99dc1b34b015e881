package rag

import (
	"context"
	"fmt"
)

// Snippet is one retrieved context fragment with its source reference.
type Snippet struct {
	Text       string
	SourceRef  string
	Similarity float32
}

// Retriever is the retrieval port consumed by domain agents.
type Retriever interface {
	// Search returns up to k snippets for a domain, ordered by similarity.
	// An empty or missing domain corpus yields a single placeholder snippet
	// rather than an error.
	Search(ctx context.Context, domain, query string, k int) ([]Snippet, error)
}

// placeholderText is returned when a domain has no indexed documents, so
// agents always have something to ground on.
const placeholderText = "No domain documentation has been indexed yet."

type storeRetriever struct {
	store VectorStore
}

// NewRetriever builds a Retriever over the vector store.
func NewRetriever(store VectorStore) Retriever {
	return &storeRetriever{store: store}
}

func (r *storeRetriever) Search(ctx context.Context, domain, query string, k int) ([]Snippet, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if k <= 0 {
		k = 4
	}

	results, err := r.store.Search(ctx, domain, query, k)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []Snippet{{Text: placeholderText, SourceRef: "placeholder"}}, nil
	}

	snippets := make([]Snippet, 0, len(results))
	for _, res := range results {
		ref := res.Document.Metadata["source"]
		if ref == "" {
			ref = res.Document.ID
		}
		snippets = append(snippets, Snippet{
			Text:       res.Document.Content,
			SourceRef:  ref,
			Similarity: res.Similarity,
		})
	}
	return snippets, nil
}
