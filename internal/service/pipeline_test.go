package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyqa/internal/chunker"
	"policyqa/internal/domain"
	"policyqa/internal/vectorstore/memory"
)

const policyText = "Policy period is 01-Jan-2024 to 31-Dec-2024. Premium is $500 annually."

// fakeFetcher serves a fixed payload and counts calls.
type fakeFetcher struct {
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

// fakeExtractor returns fixed text regardless of input.
type fakeExtractor struct {
	text string
}

func (f *fakeExtractor) Extract(content []byte) (string, error) { return f.text, nil }

// fakeEmbedder produces deterministic bag-of-words vectors over a small
// vocabulary so that a question about a chunk ranks that chunk first.
type fakeEmbedder struct {
	batchCalls atomic.Int64
	queryCalls atomic.Int64
	queryErrOn string
}

var vocabulary = []string{"policy", "period", "premium", "annually", "grace"}

func bagOfWords(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(vocabulary))
	for i, w := range vocabulary {
		v[i] = float32(strings.Count(lower, w))
	}
	return v
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls.Add(1)
	if f.queryErrOn != "" && strings.Contains(text, f.queryErrOn) {
		return nil, &domain.EmbeddingServiceError{Err: fmt.Errorf("simulated outage")}
	}
	return bagOfWords(text), nil
}

func (f *fakeEmbedder) Dimension() int { return len(vocabulary) }

// fakeSynthesizer echoes the top passage so grounding can be asserted.
type fakeSynthesizer struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, question string, passages []domain.RetrievedPassage) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, question)
	f.mu.Unlock()
	if len(passages) == 0 || passages[0].Score == 0 {
		return "The answer cannot be found in the provided context.", nil
	}
	return "Answer to " + question + ": " + passages[0].Text, nil
}

func newTestPipeline(fetcher *fakeFetcher, embedder *fakeEmbedder) (*Pipeline, *fakeSynthesizer) {
	synth := &fakeSynthesizer{}
	p := NewPipeline(
		fetcher,
		&fakeExtractor{text: policyText},
		chunker.NewRecursiveChunker(1000, 200),
		embedder,
		memory.NewStorage(embedder.Dimension()),
		synth,
		Options{TopK: 5, MaxParallel: 4},
		nil,
	)
	return p, synth
}

func TestRunAnswersFromIndexedDocument(t *testing.T) {
	fetcher := &fakeFetcher{}
	embedder := &fakeEmbedder{}
	p, _ := newTestPipeline(fetcher, embedder)

	answers, err := p.Run(context.Background(), "https://example.com/policy.pdf",
		[]string{"What is the policy period?"})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Contains(t, answers[0], "01-Jan-2024")
	assert.Contains(t, answers[0], "31-Dec-2024")
}

func TestRunIsIdempotentPerFingerprint(t *testing.T) {
	fetcher := &fakeFetcher{}
	embedder := &fakeEmbedder{}
	p, _ := newTestPipeline(fetcher, embedder)
	ctx := context.Background()

	_, err := p.Run(ctx, "https://example.com/policy.pdf", []string{"What is the premium?"})
	require.NoError(t, err)
	_, err = p.Run(ctx, "https://example.com/policy.pdf", []string{"What is the premium?"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), fetcher.calls.Load(), "second run must skip the fetch")
	assert.Equal(t, int64(1), embedder.batchCalls.Load(), "second run must perform zero chunk embeddings")
}

func TestRunPreservesQuestionOrder(t *testing.T) {
	fetcher := &fakeFetcher{}
	embedder := &fakeEmbedder{}
	p, _ := newTestPipeline(fetcher, embedder)

	questions := make([]string, 12)
	for i := range questions {
		questions[i] = fmt.Sprintf("Question number %d about the policy?", i)
	}
	answers, err := p.Run(context.Background(), "https://example.com/policy.pdf", questions)
	require.NoError(t, err)
	require.Len(t, answers, len(questions))
	for i, q := range questions {
		assert.Contains(t, answers[i], "Answer to "+q, "slot %d must match question %d", i, i)
	}
}

func TestRunFillsFailedQuestionSlotWithPlaceholder(t *testing.T) {
	fetcher := &fakeFetcher{}
	embedder := &fakeEmbedder{queryErrOn: "broken"}
	p, _ := newTestPipeline(fetcher, embedder)

	questions := []string{
		"What is the premium?",
		"This broken question triggers an outage?",
		"What is the policy period?",
	}
	answers, err := p.Run(context.Background(), "https://example.com/policy.pdf", questions)
	require.NoError(t, err)
	require.Len(t, answers, 3)
	assert.Contains(t, answers[0], "Answer to")
	assert.Equal(t, answerFailedPlaceholder, answers[1])
	assert.Contains(t, answers[2], "Answer to")
}

func TestRunAbortsOnIngestionFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: &domain.FetchError{URL: "https://example.com/gone.pdf", Status: 404}}
	embedder := &fakeEmbedder{}
	p, synth := newTestPipeline(fetcher, embedder)

	_, err := p.Run(context.Background(), "https://example.com/gone.pdf", []string{"q1", "q2"})
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Empty(t, synth.prompts, "no question may be answered without an index")
}

func TestConcurrentRunsIngestExactlyOnce(t *testing.T) {
	fetcher := &fakeFetcher{delay: 50 * time.Millisecond}
	embedder := &fakeEmbedder{}
	p, _ := newTestPipeline(fetcher, embedder)

	const parallel = 8
	var wg sync.WaitGroup
	results := make([][]string, parallel)
	errs := make([]error, parallel)
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Run(context.Background(),
				"https://example.com/policy.pdf", []string{"What is the policy period?"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.calls.Load(), "exactly one ingestion across concurrent requests")
	assert.Equal(t, int64(1), embedder.batchCalls.Load())
	for i := 0; i < parallel; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
		assert.Contains(t, results[i][0], "01-Jan-2024")
	}
}

func TestRunDeclinesUnrelatedQuestion(t *testing.T) {
	fetcher := &fakeFetcher{}
	embedder := &fakeEmbedder{}
	p, _ := newTestPipeline(fetcher, embedder)

	answers, err := p.Run(context.Background(), "https://example.com/policy.pdf",
		[]string{"What is the meaning of life?"})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Contains(t, answers[0], "cannot be found")
}

func TestRunKeepsNamespacesIsolated(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := memory.NewStorage(embedder.Dimension())
	synth := &fakeSynthesizer{}

	build := func(text string) *Pipeline {
		return NewPipeline(
			&fakeFetcher{},
			&fakeExtractor{text: text},
			chunker.NewRecursiveChunker(1000, 200),
			embedder,
			store,
			synth,
			Options{TopK: 5, MaxParallel: 2},
			nil,
		)
	}

	ctx := context.Background()
	pa := build("Policy period is 01-Jan-2024 to 31-Dec-2024.")
	_, err := pa.Run(ctx, "https://example.com/a.pdf", []string{"What is the policy period?"})
	require.NoError(t, err)

	pb := build("The grace period for premium payment is thirty days.")
	answers, err := pb.Run(ctx, "https://example.com/b.pdf", []string{"What is the grace period?"})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Contains(t, answers[0], "thirty days")
	assert.NotContains(t, answers[0], "01-Jan-2024", "must never surface another document's chunks")
}
