package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/docchat/docchat/helper"
	"github.com/docchat/docchat/model"
	loadSql "github.com/docchat/docchat/sql"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.StoredChunk) error
	SelectChunk(rid uuid.UUID) (*model.StoredChunk, error)
	SelectChunksByDocument(documentID int64) ([]*model.StoredChunk, error)
	SelectChunksBySimilarity(embedding []float32, limit int, tenant string) ([]*model.StoredChunk, []float64, error)
	DeleteChunksByDocument(documentID int64) error
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk
func (h *ChunksDBHandler) InsertChunk(chunk *model.StoredChunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		chunk.DocumentID,
		chunk.Tenant,
		chunk.Content,
		chunk.ParentContent,
		chunk.Page,
		chunk.StartOffset,
		chunk.EndOffset,
		pgvector.NewVector(chunk.Embedding),
		chunk.Metadata,
	)

	err := scanChunk(row, chunk)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectChunk selects a chunk by its rid
func (h *ChunksDBHandler) SelectChunk(rid uuid.UUID) (*model.StoredChunk, error) {
	chunk := &model.StoredChunk{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_chunk($1)`, rid)

	err := scanChunk(row, chunk)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksByDocument selects all chunks of a document in page/offset order
func (h *ChunksDBHandler) SelectChunksByDocument(documentID int64) ([]*model.StoredChunk, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_chunks_by_document($1)`, documentID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.StoredChunk
	for rows.Next() {
		chunk := &model.StoredChunk{}
		err := scanChunk(rows, chunk)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// SelectChunksBySimilarity returns the chunks nearest to the query embedding
// by cosine distance, scoped to a tenant, with one similarity per chunk.
// The stored embedding is not returned.
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, limit int, tenant string) ([]*model.StoredChunk, []float64, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		tenant,
	)
	if err != nil {
		return nil, nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.StoredChunk
	var similarities []float64
	for rows.Next() {
		chunk := &model.StoredChunk{}
		var similarity float64
		err := rows.Scan(
			&chunk.ID,
			&chunk.RID,
			&chunk.DocumentID,
			&chunk.Tenant,
			&chunk.Content,
			&chunk.ParentContent,
			&chunk.Page,
			&chunk.StartOffset,
			&chunk.EndOffset,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&similarity,
		)
		if err != nil {
			return nil, nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
		similarities = append(similarities, similarity)
	}

	return chunks, similarities, rows.Err()
}

// DeleteChunksByDocument deletes all chunks of a document
func (h *ChunksDBHandler) DeleteChunksByDocument(documentID int64) error {
	_, err := h.db.Instance.Exec(`SELECT delete_chunks_by_document($1)`, documentID)
	if err != nil {
		return helper.NewError("delete chunks", err)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(row scanner, chunk *model.StoredChunk) error {
	var embedding pgvector.Vector
	err := row.Scan(
		&chunk.ID,
		&chunk.RID,
		&chunk.DocumentID,
		&chunk.Tenant,
		&chunk.Content,
		&chunk.ParentContent,
		&chunk.Page,
		&chunk.StartOffset,
		&chunk.EndOffset,
		&embedding,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return err
	}
	chunk.Embedding = embedding.Slice()
	return nil
}
