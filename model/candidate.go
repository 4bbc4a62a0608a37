package model

// Origin marks which retrieval path produced a candidate.
type Origin string

const (
	OriginVector Origin = "vector"
	OriginGraph  Origin = "graph"
)

// Candidate is a retrieval result prior to reranking.
// Score carries the vector similarity for OriginVector candidates and is
// always 0 for OriginGraph candidates; scores are only comparable within
// the same origin until the reranker re-scores everything.
type Candidate struct {
	ID         string   `json:"id"`
	Score      float64  `json:"score"`
	Text       string   `json:"text"`
	ParentText string   `json:"parent_text,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
	Origin     Origin   `json:"origin"`
}

// ContextText returns the text the assembler should prefer for generation:
// the broader parent window when present, the chunk text otherwise.
func (c Candidate) ContextText() string {
	if c.ParentText != "" {
		return c.ParentText
	}
	return c.Text
}
