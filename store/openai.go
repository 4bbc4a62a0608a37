// Package store provides the production implementations of the external
// services the pipeline consumes: OpenAI completion and embedding, local
// ONNX models, pgvector similarity search, and Neo4j graph traversal.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docchat/docchat/helper"
	"github.com/docchat/docchat/model"
	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter produces chat completions through the OpenAI API with a
// fixed model. Separate instances serve generation and judging so the two
// concerns can run different models.
type ChatCompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewChatCompleter creates a completer bound to one model.
func NewChatCompleter(client *openai.Client, modelName string, temperature float32) *ChatCompleter {
	return &ChatCompleter{client: client, model: modelName, temperature: temperature}
}

// Complete sends the system prompt and conversation turns and returns the
// completion text.
func (c *ChatCompleter) Complete(ctx context.Context, systemPrompt string, messages []model.ChatMessage) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, message := range messages {
		role := openai.ChatMessageRoleUser
		if message.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: message.Content,
		})
	}

	response, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", helper.NewError("chat completion", err)
	}
	if len(response.Choices) == 0 {
		return "", helper.NewError("chat completion", fmt.Errorf("no choices returned"))
	}

	return response.Choices[0].Message.Content, nil
}

// OpenAIEmbedder embeds texts through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder bound to one embedding model.
func NewOpenAIEmbedder(client *openai.Client, modelName string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: modelName}
}

// Embed returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	response, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, helper.NewError("create embeddings", err)
	}
	if len(response.Data) != len(texts) {
		return nil, helper.NewError("create embeddings", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data)))
	}

	// Index is authoritative for ordering.
	vectors := make([][]float32, len(texts))
	for _, data := range response.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, helper.NewError("create embeddings", fmt.Errorf("embedding index %d out of range", data.Index))
		}
		vectors[data.Index] = data.Embedding
	}

	return vectors, nil
}

// LLMEntityExtractor extracts named entities from text via a completion
// call, for deployments that run without the local NER model.
type LLMEntityExtractor struct {
	completer *ChatCompleter
}

// NewLLMEntityExtractor creates a completion-backed entity extractor.
func NewLLMEntityExtractor(completer *ChatCompleter) *LLMEntityExtractor {
	return &LLMEntityExtractor{completer: completer}
}

const extractorPrompt = "Extract the named entities (people, organizations, " +
	"locations, products) mentioned in the user's text. " +
	`Return only a JSON object like {"entities": ["..."]}. ` +
	"Return an empty list if there are none."

// Extract returns the entity mentions found in text.
func (e *LLMEntityExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	response, err := e.completer.Complete(ctx, extractorPrompt, []model.ChatMessage{
		{Role: model.RoleUser, Content: text},
	})
	if err != nil {
		return nil, helper.NewError("extract entities", err)
	}

	var payload struct {
		Entities []string `json:"entities"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		return nil, helper.NewError("parse entities", err)
	}

	entities := make([]string, 0, len(payload.Entities))
	seen := make(map[string]bool)
	for _, entity := range payload.Entities {
		entity = strings.TrimSpace(entity)
		if entity == "" || seen[strings.ToLower(entity)] {
			continue
		}
		seen[strings.ToLower(entity)] = true
		entities = append(entities, entity)
	}

	return entities, nil
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
