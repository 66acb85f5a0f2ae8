package retrieval

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Chunker splits document text into overlapping chunks ready for indexing.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker creates a chunker with the default size and overlap.
func NewChunker() Chunker {
	return Chunker{Size: defaultChunkSize, Overlap: defaultChunkOverlap}
}

// ChunkDocument splits text into documents, each carrying the source
// metadata plus chunk bookkeeping. The document IDs are derived from docID
// and the chunk index.
func (c Chunker) ChunkDocument(docID, text string, metadata map[string]string) []Document {
	chunks := c.Split(text)
	docs := make([]Document, 0, len(chunks))
	for i, chunk := range chunks {
		chunkMeta := map[string]string{
			"chunk_index":  strconv.Itoa(i),
			"total_chunks": strconv.Itoa(len(chunks)),
		}
		for k, v := range metadata {
			chunkMeta[k] = v
		}
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#%d", docID, i),
			Content:  chunk,
			Metadata: chunkMeta,
		})
	}
	return docs
}

// Split breaks text into chunks of at most Size characters, preferring to
// break at paragraph, then line, then word boundaries, with Overlap
// characters carried between adjacent chunks.
func (c Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	size := c.Size
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := breakpoint(text[start:end])
		chunk := strings.TrimSpace(text[start : start+cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := start + cut - overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}

	return chunks
}

// breakpoint finds the best split position within a window, scanning
// backwards for a paragraph break, then a newline, then a space. A window
// with no separator splits mid-word at its full length.
func breakpoint(window string) int {
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i > 0 {
			return i + len(sep)
		}
	}
	return len(window)
}
