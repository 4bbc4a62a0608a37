package answer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/docchat/docchat/core/query"
	"github.com/docchat/docchat/core/retrieval"
	"github.com/docchat/docchat/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter dispatches on the system prompt so one fake can serve the
// router, expander, generator, and judge behind a single pipeline.
type stubCompleter struct {
	intent      string
	expansions  string
	casual      string
	answers     []string
	judgeScores []string

	classifyCalls int
	casualCalls   int
	generateCalls int
	judgeCalls    int
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, messages []model.ChatMessage) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "Classify the user's message intent"):
		s.classifyCalls++
		return `{"intent": "` + s.intent + `"}`, nil
	case strings.Contains(systemPrompt, "You generate search queries."):
		return s.expansions, nil
	case strings.Contains(systemPrompt, "friendly document Q&A assistant"):
		s.casualCalls++
		return s.casual, nil
	case strings.Contains(systemPrompt, "helpful document Q&A assistant"):
		s.generateCalls++
		if len(s.answers) == 0 {
			return "generated answer", nil
		}
		answer := s.answers[0]
		if len(s.answers) > 1 {
			s.answers = s.answers[1:]
		}
		return answer, nil
	case strings.Contains(systemPrompt, "strict evaluator"):
		s.judgeCalls++
		if len(s.judgeScores) == 0 {
			return scoreJSON(1.0), nil
		}
		score := s.judgeScores[0]
		if len(s.judgeScores) > 1 {
			s.judgeScores = s.judgeScores[1:]
		}
		return score, nil
	}
	return "", fmt.Errorf("unexpected system prompt: %s", systemPrompt)
}

func scoreJSON(v float64) string {
	return fmt.Sprintf(`{"faithfulness": %[1]f, "relevance": %[1]f, "completeness": %[1]f, "coherence": %[1]f, "conciseness": %[1]f, "feedback": "tighten it up"}`, v)
}

type stubVectorSearcher struct {
	candidates []model.Candidate
}

func (s *stubVectorSearcher) Search(ctx context.Context, queryText string, topK int, tenant string) ([]model.Candidate, error) {
	return s.candidates, nil
}

type stubGraphTraverser struct{}

func (stubGraphTraverser) RelatedEntities(ctx context.Context, seeds []string, maxDepth, limit int, tenant string) ([]model.GraphNode, error) {
	return nil, nil
}

type stubEntityExtractor struct {
	entities []string
}

func (s *stubEntityExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	return s.entities, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func newTestPipeline(completer *stubCompleter, candidates []model.Candidate, entities []string) *Pipeline {
	logger := testLogger()
	config := model.DefaultConfig()
	extractor := &stubEntityExtractor{entities: entities}

	retriever := retrieval.NewRetriever(
		&stubVectorSearcher{candidates: candidates},
		stubGraphTraverser{},
		extractor,
		query.NewExpander(completer, logger),
		config,
		logger,
	)

	return NewPipeline(
		query.NewRouter(completer, logger),
		retriever,
		retrieval.NewReranker(stubEmbedder{}, logger),
		NewGenerator(completer, logger),
		NewJudge(completer, config.JudgeThreshold, logger),
		extractor,
		config,
		logger,
	)
}

func longCandidate(id string, page int) model.Candidate {
	return model.Candidate{
		ID:       id,
		Text:     fmt.Sprintf("Substantial paragraph %s with plenty of real content to pass the low-content filter.", id),
		Metadata: model.Metadata{"page": page},
	}
}

func TestPipelineAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects an empty query", func(t *testing.T) {
		p := newTestPipeline(&stubCompleter{intent: "document_query"}, nil, nil)
		_, err := p.Answer(ctx, "   ", "t", nil)
		assert.Error(t, err)
	})

	t.Run("Greeting short-circuits without retrieval or judging", func(t *testing.T) {
		completer := &stubCompleter{intent: "greeting", casual: "Hello! Ready to help with your documents."}
		p := newTestPipeline(completer, []model.Candidate{longCandidate("a", 1)}, nil)

		result, err := p.Answer(ctx, "Hi", "t", nil)

		require.NoError(t, err)
		assert.Equal(t, model.IntentGreeting, result.Intent)
		assert.Equal(t, "Hello! Ready to help with your documents.", result.Answer)
		assert.Empty(t, result.Contexts)
		assert.Empty(t, result.Sources)
		assert.Empty(t, result.Entities)
		assert.Nil(t, result.Reflection)
		assert.Equal(t, 1, completer.casualCalls)
		assert.Zero(t, completer.generateCalls)
		assert.Zero(t, completer.judgeCalls)
	})

	t.Run("Document query caps contexts and sources at RerankTopK", func(t *testing.T) {
		var candidates []model.Candidate
		for i := 0; i < 12; i++ {
			candidates = append(candidates, longCandidate(fmt.Sprintf("c%02d", i), i))
		}
		completer := &stubCompleter{intent: "document_query", expansions: `{"queries": []}`}
		p := newTestPipeline(completer, candidates, nil)

		result, err := p.Answer(ctx, "What does the report say about revenue?", "t", nil)

		require.NoError(t, err)
		assert.Equal(t, model.IntentDocumentQuery, result.Intent)
		assert.LessOrEqual(t, len(result.Contexts), 5)
		assert.LessOrEqual(t, len(result.Sources), 5)
		require.NotNil(t, result.Reflection)
		assert.True(t, result.Reflection.Passed())
		assert.False(t, result.Reflection.WasRegenerated)
		assert.Equal(t, 1, completer.generateCalls)
		assert.Equal(t, 1, completer.judgeCalls)
	})

	t.Run("Failing verdict triggers exactly one regeneration", func(t *testing.T) {
		completer := &stubCompleter{
			intent:      "document_query",
			expansions:  `{"queries": []}`,
			answers:     []string{"weak first answer", "stronger second answer"},
			judgeScores: []string{scoreJSON(0.4), scoreJSON(0.4)},
		}
		p := newTestPipeline(completer, []model.Candidate{longCandidate("a", 1)}, nil)

		result, err := p.Answer(ctx, "What are the side effects?", "t", nil)

		require.NoError(t, err)
		assert.Equal(t, "stronger second answer", result.Answer)
		assert.Equal(t, 2, completer.generateCalls)
		assert.Equal(t, 2, completer.judgeCalls)
		require.NotNil(t, result.Reflection)
		assert.True(t, result.Reflection.WasRegenerated)
		assert.Equal(t, model.VerdictFail, result.Reflection.Verdict)
		assert.InDelta(t, 0.4, result.Reflection.Overall, 1e-9)
	})

	t.Run("Passing regeneration keeps the regenerated flag", func(t *testing.T) {
		completer := &stubCompleter{
			intent:      "document_query",
			expansions:  `{"queries": []}`,
			judgeScores: []string{scoreJSON(0.4), scoreJSON(0.9)},
		}
		p := newTestPipeline(completer, []model.Candidate{longCandidate("a", 1)}, nil)

		result, err := p.Answer(ctx, "q", "t", nil)

		require.NoError(t, err)
		require.NotNil(t, result.Reflection)
		assert.True(t, result.Reflection.WasRegenerated)
		assert.True(t, result.Reflection.Passed())
	})

	t.Run("Summary with only thin candidates returns the apology", func(t *testing.T) {
		thin := []model.Candidate{
			{ID: "a", Text: "short", Metadata: model.Metadata{"page": 1}},
			{ID: "b", Text: strings.Repeat("x", 30), Metadata: model.Metadata{"page": 2}},
		}
		completer := &stubCompleter{intent: "summary", expansions: `{"queries": []}`}
		p := newTestPipeline(completer, thin, nil)

		result, err := p.Answer(ctx, "Summarize the document", "t", nil)

		require.NoError(t, err)
		assert.Equal(t, model.IntentSummary, result.Intent)
		assert.Equal(t, summaryApology, result.Answer)
		assert.Nil(t, result.Reflection)
		assert.Empty(t, result.Contexts)
		assert.Zero(t, completer.generateCalls)
		assert.Zero(t, completer.judgeCalls)
	})

	t.Run("Summary orders contexts by ascending page", func(t *testing.T) {
		candidates := []model.Candidate{
			longCandidate("late", 7),
			longCandidate("early", 1),
			longCandidate("middle", 3),
		}
		completer := &stubCompleter{intent: "summary", expansions: `{"queries": []}`}
		p := newTestPipeline(completer, candidates, nil)

		result, err := p.Answer(ctx, "Give me an overview", "t", nil)

		require.NoError(t, err)
		require.Len(t, result.Contexts, 3)
		assert.Contains(t, result.Contexts[0], "early")
		assert.Contains(t, result.Contexts[1], "middle")
		assert.Contains(t, result.Contexts[2], "late")
		require.NotNil(t, result.Reflection)
	})

	t.Run("Echoes entities extracted from the answer", func(t *testing.T) {
		completer := &stubCompleter{intent: "document_query", expansions: `{"queries": []}`}
		p := newTestPipeline(completer, []model.Candidate{longCandidate("a", 1)}, []string{"Acme Corp", "Jane Doe"})

		result, err := p.Answer(ctx, "Who founded Acme?", "t", nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"Acme Corp", "Jane Doe"}, result.Entities)
	})
}
