package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/docchat/docchat/helper"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// LocalEmbedder embeds texts with a local sentence transformer model,
// for deployments without an OpenAI key. Uses all-MiniLM-L6-v2, which
// produces 384-dimensional embeddings.
type LocalEmbedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

// LocalEmbeddingDim is the output dimension of the local embedding model.
const LocalEmbeddingDim = 384

// NewLocalEmbedder downloads the model if needed and initializes the
// inference session.
func NewLocalEmbedder() (*LocalEmbedder, error) {
	modelName := "sentence-transformers/all-MiniLM-L6-v2"
	modelPath, err := helper.PrepareModel(modelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &LocalEmbedder{session: session, pipeline: sentencePipeline}, nil
}

// Embed returns one vector per input text, in input order.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	return result.Embeddings, nil
}

// Close destroys the inference session.
func (e *LocalEmbedder) Close() error {
	return e.session.Destroy()
}

// LocalEntityExtractor extracts named entities with a local NER model.
// Uses the KnightsAnalytics optimized distilbert-NER model, which detects
// PERSON, ORGANIZATION, LOCATION, and MISC entities.
type LocalEntityExtractor struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
}

// NewLocalEntityExtractor downloads the model if needed and initializes
// the inference session.
func NewLocalEntityExtractor() (*LocalEntityExtractor, error) {
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return &LocalEntityExtractor{session: session, pipeline: nerPipeline}, nil
}

// Extract returns the deduplicated entity mentions found in text.
func (e *LocalEntityExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	result, err := e.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}
	if len(result.Entities) == 0 {
		return nil, nil
	}

	var entities []string
	seen := make(map[string]bool)
	for _, entity := range result.Entities[0] {
		name := strings.TrimSpace(entity.Word)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		entities = append(entities, name)
	}

	return entities, nil
}

// Close destroys the inference session.
func (e *LocalEntityExtractor) Close() error {
	return e.session.Destroy()
}
