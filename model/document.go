package model

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents an ingested source document. Content pages are held
// only during ingestion, the database stores metadata and chunks.
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Tenant    string    `json:"tenant"`
	PageCount int       `json:"page_count"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocumentFromFile reads a plain-text file into a single-page document.
// The title defaults to the filename without extension, source to the path.
func NewDocumentFromFile(filePath, tenant string, metadata Metadata) (*Document, []Page, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	doc := &Document{
		Title:     title,
		Source:    filePath,
		Tenant:    tenant,
		PageCount: 1,
		Metadata:  metadata,
	}
	return doc, []Page{{Text: string(content), PageNum: 1}}, nil
}

// StoredChunk is the persisted form of an indexed child chunk: the chunk
// text plus its embedding, its parent's text for generation context, and
// the tenant scope every retrieval query filters on.
type StoredChunk struct {
	ID            int64     `json:"id"`
	RID           uuid.UUID `json:"rid"`
	DocumentID    int64     `json:"document_id"`
	Tenant        string    `json:"tenant"`
	Content       string    `json:"content"`
	ParentContent string    `json:"parent_content,omitempty"`
	Page          int       `json:"page"`
	StartOffset   int       `json:"start_offset"`
	EndOffset     int       `json:"end_offset"`
	Embedding     []float32 `json:"embedding,omitempty"`
	Metadata      Metadata  `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Candidate converts a similarity hit into a retrieval candidate.
func (s *StoredChunk) Candidate(score float64) Candidate {
	metadata := Metadata{
		"chunk_rid":   s.RID.String(),
		"document_id": s.DocumentID,
		"page":        s.Page,
	}
	for k, v := range s.Metadata {
		metadata[k] = v
	}

	return Candidate{
		ID:         s.RID.String(),
		Score:      score,
		Text:       s.Content,
		ParentText: s.ParentContent,
		Metadata:   metadata,
		Origin:     OriginVector,
	}
}
