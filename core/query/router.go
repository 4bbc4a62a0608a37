// Package query classifies incoming user messages and widens document
// queries before retrieval.
package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/docchat/docchat/model"
)

// Completer produces a chat completion from a system prompt and prior turns.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []model.ChatMessage) (string, error)
}

const routerPrompt = `Classify the user's message intent. Return JSON with key "intent" set to one of:
- "greeting": casual greetings, hello, hi, hey, etc.
- "chitchat": casual conversation, thanks, goodbye, how are you, etc.
- "summary": broad requests about the document overview, summary, what it's about, its content, main topics.
- "document_query": a specific question that requires searching documents for information.

Only return the JSON object, no extra text.

Examples:
User: "Hi" -> {"intent": "greeting"}
User: "Thanks!" -> {"intent": "chitchat"}
User: "What are the side effects?" -> {"intent": "document_query"}
User: "Summarize page 5" -> {"intent": "document_query"}
User: "Hello, how are you?" -> {"intent": "greeting"}
User: "What does the document say about training?" -> {"intent": "document_query"}
User: "Tell me about the document" -> {"intent": "summary"}
User: "What is this document about?" -> {"intent": "summary"}
User: "Give me an overview" -> {"intent": "summary"}
User: "Summarize the document" -> {"intent": "summary"}
User: "What are the main topics?" -> {"intent": "summary"}
User: "I want to know about the content" -> {"intent": "summary"}
`

const casualPrompt = "You are DocChat, a friendly document Q&A assistant. " +
	"Respond briefly to the user's message. " +
	"If they greet you, greet them back and let them know you're ready to help with their documents."

// Router classifies a query's intent and answers casual messages directly,
// bypassing retrieval for non-document chat.
type Router struct {
	completer Completer
	log       *slog.Logger
}

// NewRouter creates a query router.
func NewRouter(completer Completer, logger *slog.Logger) *Router {
	return &Router{completer: completer, log: logger}
}

// Classify returns the query's intent. The classification call is treated
// as unreliable: any failure falls open to document_query so a broken
// classifier never blocks document answering.
func (r *Router) Classify(ctx context.Context, query string) model.Intent {
	response, err := r.completer.Complete(ctx, routerPrompt, []model.ChatMessage{
		{Role: model.RoleUser, Content: query},
	})
	if err != nil {
		r.log.Warn("Intent classification failed, defaulting to document_query", slog.String("error", err.Error()))
		return model.IntentDocumentQuery
	}

	var payload struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		r.log.Warn("Intent classification returned malformed JSON, defaulting to document_query", slog.String("error", err.Error()))
		return model.IntentDocumentQuery
	}

	intent := model.ParseIntent(payload.Intent)
	r.log.Info("Routed query", slog.String("query", truncate(query, 50)), slog.String("intent", string(intent)))

	return intent
}

// CasualResponse produces a direct reply for greeting/chitchat intents.
// Prior turns are replayed so the reply can pick up the conversation.
func (r *Router) CasualResponse(ctx context.Context, query string, history []model.ChatMessage) (string, error) {
	messages := append(append([]model.ChatMessage{}, history...), model.ChatMessage{
		Role:    model.RoleUser,
		Content: query,
	})
	return r.completer.Complete(ctx, casualPrompt, messages)
}

// extractJSON cuts the first top-level JSON object out of a model response,
// tolerating markdown fences and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
