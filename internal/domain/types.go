package domain

import "strconv"

// Document is a policy document fetched from a URL and reduced to plain text.
type Document struct {
	URL         string
	Fingerprint string
	Text        string
}

// Chunk is a contiguous slice of document text, the unit of embedding and retrieval.
// Ordinals are contiguous per document, starting at 0.
type Chunk struct {
	Fingerprint string
	Ordinal     int
	Text        string
}

// Key returns the unique chunk identifier within the vector index.
func (c Chunk) Key() string {
	return c.Fingerprint + ":" + strconv.Itoa(c.Ordinal)
}

// Entry is a single upsert unit for the vector store: a chunk key, its
// embedding vector, and the chunk text carried as payload.
type Entry struct {
	Key    string
	Vector []float32
	Text   string
}

// RetrievedPassage is one ranked retrieval hit for a question.
type RetrievedPassage struct {
	Text  string
	Score float64
}
