package model

import (
	"github.com/google/uuid"
)

// Chunk represents a bounded text window cut from a document page.
// Offsets are character positions into the page text, half-open [StartOffset, EndOffset).
type Chunk struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Page        int      `json:"page"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

// NewChunk creates a chunk with a fresh opaque id.
func NewChunk(text string, page, start, end int) Chunk {
	return Chunk{
		ID:          uuid.NewString(),
		Text:        text,
		Page:        page,
		StartOffset: start,
		EndOffset:   end,
	}
}

// Contains reports whether the other chunk's offset range lies fully
// within this chunk's range on the same page.
func (c Chunk) Contains(other Chunk) bool {
	return c.Page == other.Page &&
		other.StartOffset >= c.StartOffset &&
		other.EndOffset <= c.EndOffset
}

// ParentChildGroup pairs a parent chunk with the ordered child chunks
// whose offset ranges are contained in the parent's range.
type ParentChildGroup struct {
	Parent   Chunk   `json:"parent"`
	Children []Chunk `json:"children"`
}

// Page is one page of extracted document text, the unit the segmenter works on.
type Page struct {
	Text    string `json:"text"`
	PageNum int    `json:"page_num"`
}
