package answer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/docchat/docchat/core/query"
	"github.com/docchat/docchat/core/retrieval"
	"github.com/docchat/docchat/model"
)

// summaryProbe replaces the user's literal query when retrieving for a
// summary request, so the overview pulls introductory material instead of
// whatever the phrasing "summarize this" happens to match.
const summaryProbe = "introduction overview main topics conclusion"

// summaryApology is returned when a summary request finds no usable content.
const summaryApology = "I couldn't find enough substantial content in the " +
	"document to summarize. The document may be empty, very short, or not " +
	"fully processed yet."

// Pipeline sequences routing, retrieval, reranking, generation, and the
// judge loop for one query. It holds no per-request state, a single
// Pipeline serves concurrent queries.
type Pipeline struct {
	router    *query.Router
	retriever *retrieval.Retriever
	reranker  *retrieval.Reranker
	generator *Generator
	judge     *Judge
	entities  retrieval.EntityExtractor
	config    model.Config
	log       *slog.Logger
}

// NewPipeline assembles the answering pipeline from its components.
func NewPipeline(
	router *query.Router,
	retriever *retrieval.Retriever,
	reranker *retrieval.Reranker,
	generator *Generator,
	judge *Judge,
	entities retrieval.EntityExtractor,
	config model.Config,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		router:    router,
		retriever: retriever,
		reranker:  reranker,
		generator: generator,
		judge:     judge,
		entities:  entities,
		config:    config,
		log:       logger,
	}
}

// Answer runs one query through the pipeline. Casual messages get a direct
// reply with no retrieval; summary requests retrieve with a fixed overview
// probe; everything else runs the full document branch. An empty query is
// the only rejected input, external-service failures degrade inside the
// components instead of surfacing here.
func (p *Pipeline) Answer(ctx context.Context, queryText, tenant string, history []model.ChatMessage) (*model.AnswerResult, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	intent := p.router.Classify(ctx, queryText)
	switch {
	case intent.IsCasual():
		return p.casualReply(ctx, queryText, intent, history)
	case intent == model.IntentSummary:
		return p.summaryBranch(ctx, queryText, tenant, history)
	default:
		return p.documentBranch(ctx, queryText, tenant, history)
	}
}

func (p *Pipeline) casualReply(ctx context.Context, queryText string, intent model.Intent, history []model.ChatMessage) (*model.AnswerResult, error) {
	reply, err := p.router.CasualResponse(ctx, queryText, history)
	if err != nil {
		return nil, fmt.Errorf("casual reply failed: %w", err)
	}

	return &model.AnswerResult{
		Answer:   reply,
		Contexts: []string{},
		Sources:  []model.Metadata{},
		Entities: []string{},
		Intent:   intent,
	}, nil
}

func (p *Pipeline) summaryBranch(ctx context.Context, queryText, tenant string, history []model.ChatMessage) (*model.AnswerResult, error) {
	candidates := filterLowContent(p.retriever.Retrieve(ctx, summaryProbe, tenant), p.config.SummaryMinChars)

	// Overview reads page order, not relevance order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return metadataPage(candidates[i]) < metadataPage(candidates[j])
	})
	if len(candidates) > p.config.SummaryMaxCandidates {
		candidates = candidates[:p.config.SummaryMaxCandidates]
	}

	if len(candidates) == 0 {
		p.log.Info("Summary request found no usable candidates")
		return &model.AnswerResult{
			Answer:   summaryApology,
			Contexts: []string{},
			Sources:  []model.Metadata{},
			Entities: []string{},
			Intent:   model.IntentSummary,
		}, nil
	}

	contexts := retrieval.AssembleContexts(candidates, p.config.SummaryMaxCandidates)
	return p.generateAndJudge(ctx, queryText, model.IntentSummary, contexts, retrieval.CollectSources(candidates), history)
}

func (p *Pipeline) documentBranch(ctx context.Context, queryText, tenant string, history []model.ChatMessage) (*model.AnswerResult, error) {
	candidates := filterLowContent(p.retriever.Retrieve(ctx, queryText, tenant), p.config.SummaryMinChars)
	reranked := p.reranker.Rerank(ctx, queryText, candidates, p.config.RerankTopK)
	contexts := retrieval.AssembleContexts(reranked, p.config.RerankTopK)

	return p.generateAndJudge(ctx, queryText, model.IntentDocumentQuery, contexts, retrieval.CollectSources(reranked), history)
}

// generateAndJudge produces the answer and runs the reflection loop: judge
// once, and on a fail with retries configured regenerate exactly once from
// the judge's feedback and judge again. The second verdict replaces the
// first and is marked regenerated regardless of its outcome.
func (p *Pipeline) generateAndJudge(ctx context.Context, queryText string, intent model.Intent, contexts []string, sources []model.Metadata, history []model.ChatMessage) (*model.AnswerResult, error) {
	generated, err := p.generator.Generate(ctx, queryText, contexts, history)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	verdict := p.judge.Evaluate(ctx, queryText, contexts, generated)
	if !verdict.Passed() && p.config.JudgeRetries > 0 {
		p.log.Info("Answer failed evaluation, regenerating once",
			slog.Float64("overall", verdict.Overall),
			slog.String("feedback", verdict.Feedback))

		regenerated, err := p.generator.GenerateWithFeedback(ctx, queryText, contexts, verdict.Feedback, history)
		if err != nil {
			return nil, fmt.Errorf("answer regeneration failed: %w", err)
		}
		generated = regenerated
		verdict = p.judge.Evaluate(ctx, queryText, contexts, generated)
		verdict.WasRegenerated = true
	}

	return &model.AnswerResult{
		Answer:     generated,
		Contexts:   contexts,
		Sources:    sources,
		Entities:   p.answerEntities(ctx, generated),
		Reflection: &verdict,
		Intent:     intent,
	}, nil
}

// answerEntities extracts entity mentions from the final answer for the
// response payload. Extraction failure costs the echo, not the answer.
func (p *Pipeline) answerEntities(ctx context.Context, answerText string) []string {
	entities, err := p.entities.Extract(ctx, answerText)
	if err != nil {
		p.log.Warn("Entity extraction over the answer failed", slog.String("error", err.Error()))
		return []string{}
	}
	if entities == nil {
		entities = []string{}
	}
	return entities
}

// filterLowContent drops candidates whose usable text, stripped, is at or
// below minChars. Graph entity labels rarely survive this filter, which is
// intended: they guide retrieval, not generation.
func filterLowContent(candidates []model.Candidate, minChars int) []model.Candidate {
	filtered := make([]model.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if len(strings.TrimSpace(candidate.ContextText())) > minChars {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// metadataPage reads a candidate's page number from its metadata. JSON
// decoding and driver scans surface numbers as float64, direct construction
// as int; anything else sorts first.
func metadataPage(candidate model.Candidate) int {
	switch v := candidate.Metadata["page"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
