package model

// GraphNode is an entity node returned by graph traversal.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}
