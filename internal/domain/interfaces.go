package domain

import "context"

// Fetcher downloads the raw bytes of a document from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns raw document bytes into page-ordered plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// Chunker splits extracted text into overlapping chunks for embedding.
type Chunker interface {
	Chunk(fingerprint, text string) ([]Chunk, error)
}

// Embedder maps texts to fixed-dimension vectors via a remote embedding model.
// EmbedBatch is order-preserving: result[i] is the vector for texts[i].
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore is a namespaced nearest-neighbor store. The namespace is the
// document fingerprint, so each document's chunks are isolated from every
// other document's.
type VectorStore interface {
	// Exists reports whether the namespace already holds indexed chunks.
	Exists(ctx context.Context, namespace string) (bool, error)
	// Upsert is idempotent per key: re-upserting overwrites, never duplicates.
	Upsert(ctx context.Context, namespace string, entries []Entry) error
	// Query returns at most k nearest neighbors by cosine similarity,
	// ordered descending by score.
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]RetrievedPassage, error)
}

// Synthesizer generates an answer to a question grounded in the supplied
// passages, declining when the answer is not contained in them.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, passages []RetrievedPassage) (string, error)
}

// QAService is the pipeline exposed to the HTTP boundary: one document URL,
// many questions, one answer per question in input order.
type QAService interface {
	Run(ctx context.Context, documentURL string, questions []string) ([]string, error)
}
