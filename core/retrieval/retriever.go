// Package retrieval gathers, reranks, and assembles candidate contexts
// for a document query.
package retrieval

import (
	"context"
	"log/slog"
	"sync"

	"github.com/docchat/docchat/core/query"
	"github.com/docchat/docchat/model"
)

// VectorSearcher is the vector similarity service consumed by the retriever.
type VectorSearcher interface {
	Search(ctx context.Context, queryText string, topK int, tenant string) ([]model.Candidate, error)
}

// GraphTraverser is the entity-graph traversal service.
type GraphTraverser interface {
	RelatedEntities(ctx context.Context, seeds []string, maxDepth, limit int, tenant string) ([]model.GraphNode, error)
}

// EntityExtractor pulls entity mentions out of free text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Retriever fans a query out to the vector and graph services and merges
// the results. Vector candidates come first in first-seen order; graph
// candidates carry no comparable similarity score, so they are appended
// unranked and only the reranker compares across origins.
type Retriever struct {
	vectors  VectorSearcher
	graph    GraphTraverser
	entities EntityExtractor
	expander *query.Expander
	config   model.Config
	log      *slog.Logger
}

// NewRetriever creates a hybrid retriever.
func NewRetriever(
	vectors VectorSearcher,
	graph GraphTraverser,
	entities EntityExtractor,
	expander *query.Expander,
	config model.Config,
	logger *slog.Logger,
) *Retriever {
	return &Retriever{
		vectors:  vectors,
		graph:    graph,
		entities: entities,
		expander: expander,
		config:   config,
		log:      logger,
	}
}

// Retrieve returns candidate chunks for a query scoped to a tenant.
// Every external call is boundary-wrapped: a failing collaborator costs
// recall, never the whole retrieval.
func (r *Retriever) Retrieve(ctx context.Context, queryText, tenant string) []model.Candidate {
	expanded := r.expander.Expand(ctx, queryText, r.config.MaxExpansions)

	// Fan the expansions out concurrently, then merge in expansion-list
	// order so first-seen-wins dedup stays deterministic.
	perExpansion := make([][]model.Candidate, len(expanded))
	var wg sync.WaitGroup
	for i, q := range expanded {
		wg.Add(1)
		go func(idx int, q string) {
			defer wg.Done()
			matches, err := r.vectors.Search(ctx, q, r.config.SemanticTopK, tenant)
			if err != nil {
				r.log.Warn("Vector search failed for expansion",
					slog.String("query", q), slog.String("error", err.Error()))
				return
			}
			perExpansion[idx] = matches
		}(i, q)
	}
	wg.Wait()

	var results []model.Candidate
	seen := make(map[string]bool)
	for _, matches := range perExpansion {
		for _, match := range matches {
			if seen[match.ID] {
				continue
			}
			seen[match.ID] = true
			match.Origin = model.OriginVector
			results = append(results, match)
		}
	}

	results = append(results, r.graphCandidates(ctx, queryText, tenant)...)

	r.log.Info("Hybrid retrieval complete",
		slog.Int("expansions", len(expanded)),
		slog.Int("candidates", len(results)))

	return results
}

// graphCandidates seeds a bounded-depth traversal with the entities
// mentioned in the original query. Nodes become zero-score candidates.
func (r *Retriever) graphCandidates(ctx context.Context, queryText, tenant string) []model.Candidate {
	seeds, err := r.entities.Extract(ctx, queryText)
	if err != nil {
		r.log.Warn("Entity extraction failed, skipping graph retrieval", slog.String("error", err.Error()))
		return nil
	}
	if len(seeds) == 0 {
		return nil
	}

	nodes, err := r.graph.RelatedEntities(ctx, seeds, r.config.GraphMaxDepth, r.config.EffectiveGraphLimit(), tenant)
	if err != nil {
		r.log.Warn("Graph traversal failed", slog.String("error", err.Error()))
		return nil
	}

	candidates := make([]model.Candidate, 0, len(nodes))
	for _, node := range nodes {
		id := node.ID
		if id == "" {
			id = "graph:" + node.Label
		}
		candidates = append(candidates, model.Candidate{
			ID:       id,
			Score:    0.0,
			Text:     node.Label,
			Metadata: model.Metadata{"type": "graph_entity"},
			Origin:   model.OriginGraph,
		})
	}
	return candidates
}
