package retrieval

import (
	"strings"

	"github.com/docchat/docchat/model"
)

// AssembleContexts converts reranked candidates into the context strings
// handed to the generator. Each candidate contributes its parent text when
// present, otherwise its own text. Blank entries are skipped, exact
// duplicates keep their first occurrence, and the output is capped at
// maxContexts.
func AssembleContexts(candidates []model.Candidate, maxContexts int) []string {
	contexts := make([]string, 0, len(candidates))
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		text := candidate.ContextText()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		contexts = append(contexts, text)
		if maxContexts > 0 && len(contexts) >= maxContexts {
			break
		}
	}
	return contexts
}

// CollectSources gathers the metadata of the candidates backing an answer,
// in candidate order.
func CollectSources(candidates []model.Candidate) []model.Metadata {
	sources := make([]model.Metadata, 0, len(candidates))
	for _, candidate := range candidates {
		sources = append(sources, candidate.Metadata)
	}
	return sources
}
