package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docchat/docchat/core/chunking"
	"github.com/docchat/docchat/core/retrieval"
	"github.com/docchat/docchat/database"
	"github.com/docchat/docchat/helper"
	"github.com/docchat/docchat/model"
)

// ChunkStore backs vector retrieval with pgvector: it embeds query text and
// delegates the similarity search to the chunks handler, and it indexes
// parent/child chunk pairs at ingestion time.
type ChunkStore struct {
	chunks   *database.ChunksDBHandler
	embedder retrieval.Embedder
	log      *slog.Logger
}

// NewChunkStore creates a pgvector-backed chunk store.
func NewChunkStore(chunks *database.ChunksDBHandler, embedder retrieval.Embedder, logger *slog.Logger) *ChunkStore {
	return &ChunkStore{chunks: chunks, embedder: embedder, log: logger}
}

// Search embeds the query and returns the topK nearest chunks of the tenant
// as retrieval candidates, best match first.
func (s *ChunkStore) Search(ctx context.Context, queryText string, topK int, tenant string) ([]model.Candidate, error) {
	vectors, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}
	if len(vectors) != 1 {
		return nil, helper.NewError("embed query", fmt.Errorf("expected 1 vector, got %d", len(vectors)))
	}

	chunks, similarities, err := s.chunks.SelectChunksBySimilarity(vectors[0], topK, tenant)
	if err != nil {
		return nil, helper.NewError("similarity search", err)
	}

	candidates := make([]model.Candidate, 0, len(chunks))
	for i, chunk := range chunks {
		candidates = append(candidates, chunk.Candidate(similarities[i]))
	}

	return candidates, nil
}

// IndexChunks embeds all child chunks in one batch and stores them with
// their parent's text, tenant-scoped under the document. Children whose
// window crosses a parent boundary have no containing parent and are
// skipped. Returns the number of chunks stored.
func (s *ChunkStore) IndexChunks(ctx context.Context, doc *model.Document, parents, children []model.Chunk) (int, error) {
	if len(children) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(children))
	for _, child := range children {
		texts = append(texts, child.Text)
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, helper.NewError("embed chunks", err)
	}
	if len(vectors) != len(children) {
		return 0, helper.NewError("embed chunks", fmt.Errorf("expected %d vectors, got %d", len(children), len(vectors)))
	}

	inserted := 0
	for i, child := range children {
		parentText := ""
		if parent, ok := chunking.FindParent(child, parents); ok {
			parentText = parent.Text
		} else {
			s.log.Warn("Child chunk has no containing parent, skipping",
				slog.Int("page", child.Page), slog.Int("start", child.StartOffset))
			continue
		}

		stored := &model.StoredChunk{
			DocumentID:    doc.ID,
			Tenant:        doc.Tenant,
			Content:       child.Text,
			ParentContent: parentText,
			Page:          child.Page,
			StartOffset:   child.StartOffset,
			EndOffset:     child.EndOffset,
			Embedding:     vectors[i],
			Metadata:      child.Metadata,
		}
		if err := s.chunks.InsertChunk(stored); err != nil {
			return inserted, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
		inserted++
	}

	return inserted, nil
}
