package database

import (
	"context"
	"fmt"
	"time"

	"github.com/docchat/docchat/helper"
)

// IndexOptions holds tuning parameters for the chunk embedding index.
// Zero values fall back to the pgvector defaults.
type IndexOptions struct {
	// M and EfConstruction apply to HNSW indexes.
	M              int
	EfConstruction int
	// Lists applies to IVFFlat indexes.
	Lists int
}

// RebuildEmbeddingIndex drops and recreates the cosine index on the chunk
// embeddings. indexType is "hnsw" or "ivfflat". IVFFlat is cheaper to build
// and suits smaller corpora; HNSW gives better recall on large ones.
func (h *ChunksDBHandler) RebuildEmbeddingIndex(ctx context.Context, indexType string, opts IndexOptions) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var createIndexSQL string
	switch indexType {
	case "hnsw":
		m := opts.M
		if m <= 0 {
			m = 16
		}
		efConstruction := opts.EfConstruction
		if efConstruction <= 0 {
			efConstruction = 64
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)
	case "ivfflat":
		lists := opts.Lists
		if lists <= 0 {
			lists = 100
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)
	default:
		return helper.NewError("rebuild embedding index", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	_, err := h.db.Instance.ExecContext(ctx, `DROP INDEX IF EXISTS idx_chunks_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = h.db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Rebuilt chunk embedding index as %s", indexType))

	return nil
}
