package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docchat/docchat/model"
)

// Expander generates paraphrases of a query to broaden retrieval recall.
type Expander struct {
	completer Completer
	log       *slog.Logger
}

// NewExpander creates a query expander.
func NewExpander(completer Completer, logger *slog.Logger) *Expander {
	return &Expander{completer: completer, log: logger}
}

// Expand returns the original query followed by up to maxExpansions
// deduplicated paraphrases. On any failure it falls back to the original
// query alone; the result is empty only for a blank query.
func (e *Expander) Expand(ctx context.Context, query string, maxExpansions int) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	prompt := fmt.Sprintf(
		"Generate concise search query variations for the user question. "+
			"Return JSON with key 'queries' as an array of strings. "+
			"Limit to %d items. No extra text.", maxExpansions)

	response, err := e.completer.Complete(ctx, "You generate search queries.", []model.ChatMessage{
		{Role: model.RoleUser, Content: prompt + "\n\nQuestion:\n" + query},
	})
	if err != nil {
		e.log.Warn("Query expansion failed", slog.String("error", err.Error()))
		return []string{query}
	}

	var payload struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		e.log.Warn("Query expansion returned malformed JSON", slog.String("error", err.Error()))
		return []string{query}
	}

	expanded := []string{query}
	seen := map[string]bool{query: true}
	for _, q := range payload.Queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		expanded = append(expanded, q)
		if len(expanded) > maxExpansions {
			break
		}
	}

	return expanded
}
