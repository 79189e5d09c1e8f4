// Package service orchestrates the question-answering pipeline: fingerprint
// check, at-most-once ingestion, and per-question retrieval plus synthesis.
package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"policyqa/internal/domain"
	"policyqa/internal/fingerprint"
)

// answerFailedPlaceholder fills the slot of a question whose retrieval or
// synthesis failed, so the batch still returns one answer per question.
const answerFailedPlaceholder = "An error occurred while generating the answer for this question."

// Pipeline sequences fetch, extract, chunk, embed, index, and synthesize for
// one document and many questions per request.
type Pipeline struct {
	fetcher     domain.Fetcher
	extractor   domain.Extractor
	chunker     domain.Chunker
	embedder    domain.Embedder
	store       domain.VectorStore
	synthesizer domain.Synthesizer
	topK        int
	maxParallel int
	logger      *zap.Logger

	ingest singleflight.Group

	mu      sync.RWMutex
	indexed map[string]struct{}
}

// Options holds per-question retrieval settings.
type Options struct {
	TopK        int
	MaxParallel int
}

// NewPipeline assembles the pipeline from its components.
func NewPipeline(
	fetcher domain.Fetcher,
	extractor domain.Extractor,
	chunker domain.Chunker,
	embedder domain.Embedder,
	store domain.VectorStore,
	synthesizer domain.Synthesizer,
	opts Options,
	logger *zap.Logger,
) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:     fetcher,
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		store:       store,
		synthesizer: synthesizer,
		topK:        opts.TopK,
		maxParallel: opts.MaxParallel,
		logger:      logger,
		indexed:     make(map[string]struct{}),
	}
}

// Run ingests the document at documentURL if its fingerprint is not indexed
// yet, then answers every question against the indexed chunks. The returned
// slice has one answer per question, in input order. Ingestion failures
// abort the whole request; a failure while answering a single question only
// fails that question's slot.
func (p *Pipeline) Run(ctx context.Context, documentURL string, questions []string) ([]string, error) {
	fp := fingerprint.Fingerprint(documentURL)
	if err := p.ensureIngested(ctx, fp, documentURL); err != nil {
		return nil, err
	}

	answers := make([]string, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)
	for i, question := range questions {
		g.Go(func() error {
			answer, err := p.answerOne(gctx, fp, question)
			if err != nil {
				p.logger.Warn("question failed",
					zap.String("fingerprint", fp),
					zap.Int("question_index", i),
					zap.Error(err))
				answer = answerFailedPlaceholder
			}
			answers[i] = answer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

// ensureIngested takes the skip path when the fingerprint is already
// indexed. Ingestion for a given fingerprint is serialized across
// concurrent requests; duplicates share the in-flight result.
func (p *Pipeline) ensureIngested(ctx context.Context, fp, documentURL string) error {
	p.mu.RLock()
	_, done := p.indexed[fp]
	p.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := p.ingest.Do(fp, func() (any, error) {
		p.mu.RLock()
		_, done := p.indexed[fp]
		p.mu.RUnlock()
		if done {
			return nil, nil
		}
		exists, err := p.store.Exists(ctx, fp)
		if err != nil {
			return nil, err
		}
		if !exists {
			if err := p.ingestDocument(ctx, fp, documentURL); err != nil {
				return nil, err
			}
		}
		p.mu.Lock()
		p.indexed[fp] = struct{}{}
		p.mu.Unlock()
		return nil, nil
	})
	return err
}

// ingestDocument runs fetch → extract → chunk → embed → upsert. All chunks
// are upserted before the fingerprint is marked indexed, so no partial
// namespace ever takes the skip path.
func (p *Pipeline) ingestDocument(ctx context.Context, fp, documentURL string) error {
	p.logger.Info("ingesting document", zap.String("fingerprint", fp), zap.String("url", documentURL))

	content, err := p.fetcher.Fetch(ctx, documentURL)
	if err != nil {
		return err
	}
	text, err := p.extractor.Extract(content)
	if err != nil {
		return err
	}
	chunks, err := p.chunker.Chunk(fp, text)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("ingest document %s: %w", fp, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("ingest document %s: %d vectors for %d chunks", fp, len(vectors), len(chunks))
	}

	entries := make([]domain.Entry, len(chunks))
	for i, ch := range chunks {
		entries[i] = domain.Entry{Key: ch.Key(), Vector: vectors[i], Text: ch.Text}
	}
	if err := p.store.Upsert(ctx, fp, entries); err != nil {
		return err
	}

	p.logger.Info("document indexed", zap.String("fingerprint", fp), zap.Int("chunks", len(chunks)))
	return nil
}

func (p *Pipeline) answerOne(ctx context.Context, fp, question string) (string, error) {
	vector, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", err
	}
	passages, err := p.store.Query(ctx, fp, vector, p.topK)
	if err != nil {
		return "", err
	}
	return p.synthesizer.Synthesize(ctx, question, passages)
}
