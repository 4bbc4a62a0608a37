// Package answer turns assembled context into a judged answer and
// orchestrates the full question-answering pipeline.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docchat/docchat/model"
)

// Completer produces a chat completion from a system prompt and prior turns.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []model.ChatMessage) (string, error)
}

const generatorPrompt = "You are DocChat, a helpful document Q&A assistant. " +
	"Answer the user's question using only the provided context. " +
	"Be accurate and concise. If the context does not contain the answer, " +
	"say so instead of guessing."

// Generator produces answers grounded in assembled context.
type Generator struct {
	completer Completer
	log       *slog.Logger
}

// NewGenerator creates a response generator.
func NewGenerator(completer Completer, logger *slog.Logger) *Generator {
	return &Generator{completer: completer, log: logger}
}

// Generate answers a query from the given contexts. Prior conversation
// turns are replayed ahead of the instruction so follow-up references
// ("that", "it") resolve against earlier turns.
func (g *Generator) Generate(ctx context.Context, query string, contexts []string, history []model.ChatMessage) (string, error) {
	instruction := fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", strings.Join(contexts, "\n\n"), query)
	return g.complete(ctx, instruction, history)
}

// GenerateWithFeedback regenerates an answer, directing the model to fix
// the shortcomings a previous evaluation reported.
func (g *Generator) GenerateWithFeedback(ctx context.Context, query string, contexts []string, feedback string, history []model.ChatMessage) (string, error) {
	instruction := fmt.Sprintf(
		"Context:\n%s\n\nQuestion:\n%s\n\nYour previous answer had these issues:\n%s\n\nWrite an improved answer that addresses them.",
		strings.Join(contexts, "\n\n"), query, feedback)
	return g.complete(ctx, instruction, history)
}

func (g *Generator) complete(ctx context.Context, instruction string, history []model.ChatMessage) (string, error) {
	messages := append(append([]model.ChatMessage{}, history...), model.ChatMessage{
		Role:    model.RoleUser,
		Content: instruction,
	})

	response, err := g.completer.Complete(ctx, generatorPrompt, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}
