package retrieval

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/docchat/docchat/model"
)

// Embedder turns texts into dense vectors in a single batched call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker orders candidates by embedding cosine similarity to the query.
type Reranker struct {
	embedder Embedder
	log      *slog.Logger
}

// NewReranker creates a cosine similarity reranker.
func NewReranker(embedder Embedder, logger *slog.Logger) *Reranker {
	return &Reranker{embedder: embedder, log: logger}
}

// Rerank scores every candidate against the query and returns the topK
// best matches, highest similarity first. The query and all candidate
// texts go to the embedder in one batch. If embedding fails the
// candidates pass through in their incoming order, truncated to topK.
func (r *Reranker) Rerank(ctx context.Context, queryText string, candidates []model.Candidate, topK int) []model.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, queryText)
	for _, c := range candidates {
		texts = append(texts, c.Text)
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		if err != nil {
			r.log.Warn("Reranker embedding failed, passing candidates through", slog.String("error", err.Error()))
		} else {
			r.log.Warn("Reranker embedding returned wrong vector count, passing candidates through",
				slog.Int("want", len(texts)), slog.Int("got", len(vectors)))
		}
		return truncate(candidates, topK)
	}

	queryVector := vectors[0]
	reranked := make([]model.Candidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].Score = CosineSimilarity(queryVector, vectors[i+1])
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return truncate(reranked, topK)
}

func truncate(candidates []model.Candidate, topK int) []model.Candidate {
	if topK > 0 && len(candidates) > topK {
		return candidates[:topK]
	}
	return candidates
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or a zero vector yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
