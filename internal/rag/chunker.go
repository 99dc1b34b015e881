package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// ChunkerConfig holds chunking configuration.
type ChunkerConfig struct {
	ChunkSize    int // tokens per chunk (default: 384)
	ChunkOverlap int // token overlap between chunks (default: 40)
}

// Chunk is a text fragment ready for embedding.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// Chunker splits document text into token-bounded chunks.
type Chunker interface {
	ChunkText(text string, metadata map[string]string) ([]Chunk, error)
	CountTokens(text string) (int, error)
}

type paragraphChunker struct {
	config   ChunkerConfig
	encoding *tiktoken.Tiktoken
}

// NewChunker creates a paragraph-aware chunker. Paragraph boundaries are
// preferred split points; oversized paragraphs fall back to line splits.
func NewChunker(config ChunkerConfig) (Chunker, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 384
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 40
	}

	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get encoding: %w", err)
	}

	return &paragraphChunker{config: config, encoding: encoding}, nil
}

func (c *paragraphChunker) CountTokens(text string) (int, error) {
	return len(c.encoding.Encode(text, nil, nil)), nil
}

func (c *paragraphChunker) ChunkText(text string, metadata map[string]string) ([]Chunk, error) {
	if metadata == nil {
		metadata = make(map[string]string)
	}

	var chunks []Chunk
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		body := strings.TrimSpace(current.String())
		if body == "" {
			return
		}
		md := make(map[string]string, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
		chunks = append(chunks, Chunk{Text: body, Metadata: md})
		current.Reset()
		currentTokens = 0
	}

	for _, unit := range splitUnits(text, c) {
		tokens, err := c.CountTokens(unit)
		if err != nil {
			return nil, err
		}
		if currentTokens > 0 && currentTokens+tokens > c.config.ChunkSize {
			flush()
		}
		current.WriteString(unit)
		current.WriteString("\n\n")
		currentTokens += tokens
	}
	flush()

	return chunks, nil
}

// splitUnits splits on blank lines; paragraphs larger than a chunk are split
// again on single newlines so no unit exceeds the budget by itself.
func splitUnits(text string, c *paragraphChunker) []string {
	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if n, err := c.CountTokens(para); err == nil && n > c.config.ChunkSize {
			for _, line := range strings.Split(para, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					units = append(units, line)
				}
			}
			continue
		}
		units = append(units, para)
	}
	return units
}
