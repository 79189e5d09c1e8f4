package domain

import "fmt"

// FetchError reports a failure to download the document: network error,
// non-2xx status, unexpected content type, or oversized payload.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError reports an unparseable, encrypted, or textless PDF.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract pdf: %v", e.Err) }

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmptyDocumentError reports that extraction produced no chunkable text.
type EmptyDocumentError struct {
	Fingerprint string
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("document %s: no text to chunk", e.Fingerprint)
}

// EmbeddingServiceError reports a remote embedding failure after retries.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string { return fmt.Sprintf("embed: %v", e.Err) }

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// IndexUnavailableError reports a vector index backend failure.
type IndexUnavailableError struct {
	Namespace string
	Err       error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("vector index (namespace %s): %v", e.Namespace, e.Err)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Err }

// GenerationError reports a remote generation failure for one question.
type GenerationError struct {
	Question string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate answer for %q: %v", e.Question, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
