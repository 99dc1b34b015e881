package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChunkerSplitsParagraphs(t *testing.T) {
	c, err := NewChunker(ChunkerConfig{ChunkSize: 8, ChunkOverlap: 2})
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}

	text := "Employees accrue twenty days of annual leave.\n\nSick leave requires a doctor's note after three days.\n\nRemote work needs manager approval."
	chunks, err := c.ChunkText(text, map[string]string{"source": "hr.md"})
	if err != nil {
		t.Fatalf("ChunkText: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks for a tiny budget, want several", len(chunks))
	}
	for _, ch := range chunks {
		if ch.Metadata["source"] != "hr.md" {
			t.Fatalf("metadata not carried: %+v", ch.Metadata)
		}
		if strings.TrimSpace(ch.Text) == "" {
			t.Fatal("empty chunk emitted")
		}
	}
}

func TestChunkerEmptyText(t *testing.T) {
	c, err := NewChunker(ChunkerConfig{})
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}
	chunks, err := c.ChunkText("   \n\n  ", nil)
	if err != nil {
		t.Fatalf("ChunkText: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks from blank text", len(chunks))
	}
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "vacation policy for new employees")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(ctx, "vacation policy for new employees")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a) != e.Dimensions() {
		t.Fatalf("got %d dims, want %d", len(a), e.Dimensions())
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if norm < 0.99 || norm > 1.01 {
		t.Fatalf("vector not normalized: %v", norm)
	}
}

func TestVectorStoreRoundTrip(t *testing.T) {
	store, err := NewVectorStore(StoreConfig{}, NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	ctx := context.Background()

	docs := []Document{
		{ID: "1", Content: "Annual leave is twenty days per year.", Metadata: map[string]string{"source": "hr.md"}},
		{ID: "2", Content: "VPN issues are handled by the IT helpdesk.", Metadata: map[string]string{"source": "it.md"}},
	}
	if err := store.Add(ctx, "HR", docs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := store.Count("HR"); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}

	// topK above the document count must clamp, not fail.
	results, err := store.Search(ctx, "HR", "annual leave days", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if err := store.Reset("HR"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := store.Count("HR"); got != 0 {
		t.Fatalf("Count after reset = %d", got)
	}
}

type fixedDimsEmbedder struct {
	dims int
}

func (e fixedDimsEmbedder) Dimensions() int { return e.dims }

func (e fixedDimsEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, e.dims), nil
}

func TestPersistedStoreRejectsEmbedderDimsChange(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewVectorStore(StoreConfig{PersistPath: dir}, NewLocalEmbedder()); err != nil {
		t.Fatalf("first open: %v", err)
	}
	// Same dimensionality reopens fine.
	if _, err := NewVectorStore(StoreConfig{PersistPath: dir}, NewLocalEmbedder()); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	_, err := NewVectorStore(StoreConfig{PersistPath: dir}, fixedDimsEmbedder{dims: 1536})
	if err == nil {
		t.Fatal("reopening with a different embedding dimension succeeded")
	}
	if !strings.Contains(err.Error(), "dimensions") {
		t.Fatalf("err = %v", err)
	}
}

func TestRetrieverPlaceholderOnEmptyCorpus(t *testing.T) {
	store, err := NewVectorStore(StoreConfig{}, NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	r := NewRetriever(store)

	snippets, err := r.Search(context.Background(), "Finance", "reimbursement limit", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("got %d snippets, want the placeholder", len(snippets))
	}
	if snippets[0].SourceRef != "placeholder" {
		t.Fatalf("snippet = %+v", snippets[0])
	}
}

func TestIndexerReindex(t *testing.T) {
	chunker, err := NewChunker(ChunkerConfig{})
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}
	store, err := NewVectorStore(StoreConfig{}, NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}

	dataDir := t.TempDir()
	docsDir := filepath.Join(dataDir, "hr_docs")
	if err := os.MkdirAll(docsDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	doc := "Annual leave is twenty days per year.\n\nCarry-over requires manager approval."
	if err := os.WriteFile(filepath.Join(docsDir, "leave.md"), []byte(doc), 0644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	// Non-indexable files are ignored.
	if err := os.WriteFile(filepath.Join(docsDir, "notes.bin"), []byte{0x1}, 0644); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	idx := NewIndexer(IndexerConfig{DataDir: dataDir}, chunker, store)
	ctx := context.Background()

	stats, err := idx.Reindex(ctx, "HR")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if stats.Files != 1 || stats.Chunks < 1 || stats.Errors != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := store.Count("HR"); got != stats.Chunks {
		t.Fatalf("stored %d chunks, stats claim %d", got, stats.Chunks)
	}

	// Reindexing is idempotent: the corpus is rebuilt, not appended.
	again, err := idx.Reindex(ctx, "HR")
	if err != nil {
		t.Fatalf("second Reindex: %v", err)
	}
	if again.Chunks != stats.Chunks || store.Count("HR") != stats.Chunks {
		t.Fatalf("reindex appended: %+v vs %+v", again, stats)
	}
}

func TestIndexerMissingDocsDir(t *testing.T) {
	chunker, err := NewChunker(ChunkerConfig{})
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}
	store, err := NewVectorStore(StoreConfig{}, NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	idx := NewIndexer(IndexerConfig{DataDir: t.TempDir()}, chunker, store)

	stats, err := idx.Reindex(context.Background(), "finance")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if stats.Files != 0 || stats.Chunks != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRetrieverMapsResults(t *testing.T) {
	store, err := NewVectorStore(StoreConfig{}, NewLocalEmbedder())
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	ctx := context.Background()
	err = store.Add(ctx, "IT", []Document{
		{ID: "1", Content: "Reset your password at the self-service portal.", Metadata: map[string]string{"source": "it.md"}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	r := NewRetriever(store)
	snippets, err := r.Search(ctx, "IT", "password reset", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) != 1 || snippets[0].SourceRef != "it.md" {
		t.Fatalf("snippets = %+v", snippets)
	}
	if !strings.Contains(snippets[0].Text, "self-service portal") {
		t.Fatalf("text = %q", snippets[0].Text)
	}
}
