package model

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries all tunables for the answering pipeline. It is immutable
// after construction and handed to each component's constructor; components
// never read ambient/global state.
type Config struct {
	// OpenAI
	OpenAIAPIKey   string `json:"-"`
	LLMModel       string `json:"llm_model"`
	JudgeModel     string `json:"judge_model"`
	EmbeddingModel string `json:"embedding_model"`
	Temperature    float32
	// LocalModels switches embedding and entity extraction to local ONNX
	// models; chat completion stays on the OpenAI API.
	LocalModels bool `json:"local_models"`

	// Chunking
	ParentChunkSize    int `json:"parent_chunk_size"`
	ParentChunkOverlap int `json:"parent_chunk_overlap"`
	ChildChunkSize     int `json:"child_chunk_size"`
	ChildChunkOverlap  int `json:"child_chunk_overlap"`

	// Retrieval
	SemanticTopK  int `json:"semantic_top_k"`
	GraphMaxDepth int `json:"graph_max_depth"`
	// GraphLimit caps graph traversal results. Zero means GraphMaxDepth*5.
	GraphLimit    int `json:"graph_limit"`
	RerankTopK    int `json:"rerank_top_k"`
	MaxExpansions int `json:"max_expansions"`

	// Judge
	JudgeThreshold float64 `json:"judge_threshold"`
	JudgeRetries   int     `json:"judge_retries"`

	// Summary branch
	SummaryMinChars      int `json:"summary_min_chars"`
	SummaryMaxCandidates int `json:"summary_max_candidates"`
}

// DefaultConfig returns the configuration the original deployment runs with.
func DefaultConfig() Config {
	return Config{
		LLMModel:             "gpt-4o-mini",
		JudgeModel:           "gpt-4o-mini",
		EmbeddingModel:       "text-embedding-3-small",
		Temperature:          0.7,
		ParentChunkSize:      1500,
		ParentChunkOverlap:   200,
		ChildChunkSize:       300,
		ChildChunkOverlap:    50,
		SemanticTopK:         10,
		GraphMaxDepth:        2,
		GraphLimit:           0,
		RerankTopK:           5,
		MaxExpansions:        3,
		JudgeThreshold:       0.7,
		JudgeRetries:         1,
		SummaryMinChars:      30,
		SummaryMaxCandidates: 10,
	}
}

// NewConfigFromEnv loads defaults and overrides them from environment
// variables. A .env file in the working directory is honored if present.
func NewConfigFromEnv() (Config, error) {
	// Ignore a missing .env, real environments set variables directly
	_ = godotenv.Load()

	config := DefaultConfig()
	config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("LLM_MODEL"); v != "" {
		config.LLMModel = v
	}
	if v := os.Getenv("JUDGE_MODEL"); v != "" {
		config.JudgeModel = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		config.EmbeddingModel = v
	}

	var err error
	intVars := []struct {
		name  string
		field *int
	}{
		{"PARENT_CHUNK_SIZE", &config.ParentChunkSize},
		{"PARENT_CHUNK_OVERLAP", &config.ParentChunkOverlap},
		{"CHILD_CHUNK_SIZE", &config.ChildChunkSize},
		{"CHILD_CHUNK_OVERLAP", &config.ChildChunkOverlap},
		{"SEMANTIC_TOP_K", &config.SemanticTopK},
		{"GRAPH_MAX_DEPTH", &config.GraphMaxDepth},
		{"GRAPH_LIMIT", &config.GraphLimit},
		{"RERANK_TOP_K", &config.RerankTopK},
		{"MAX_EXPANSIONS", &config.MaxExpansions},
		{"JUDGE_RETRIES", &config.JudgeRetries},
	}
	for _, v := range intVars {
		if raw := os.Getenv(v.name); raw != "" {
			*v.field, err = strconv.Atoi(raw)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", v.name, err)
			}
		}
	}

	if raw := os.Getenv("JUDGE_THRESHOLD"); raw != "" {
		config.JudgeThreshold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid JUDGE_THRESHOLD: %w", err)
		}
	}

	if raw := os.Getenv("LOCAL_MODELS"); raw != "" {
		config.LocalModels, err = strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOCAL_MODELS: %w", err)
		}
	}

	return config, config.Validate()
}

// Validate checks that the configuration can drive a terminating pipeline.
func (c Config) Validate() error {
	if c.ParentChunkOverlap >= c.ParentChunkSize {
		return fmt.Errorf("parent chunk overlap %d must be smaller than parent chunk size %d", c.ParentChunkOverlap, c.ParentChunkSize)
	}
	if c.ChildChunkOverlap >= c.ChildChunkSize {
		return fmt.Errorf("child chunk overlap %d must be smaller than child chunk size %d", c.ChildChunkOverlap, c.ChildChunkSize)
	}
	if c.SemanticTopK <= 0 {
		return fmt.Errorf("semantic top k must be positive, got %d", c.SemanticTopK)
	}
	if c.RerankTopK <= 0 {
		return fmt.Errorf("rerank top k must be positive, got %d", c.RerankTopK)
	}
	if c.JudgeThreshold < 0 || c.JudgeThreshold > 1 {
		return fmt.Errorf("judge threshold must be in [0,1], got %f", c.JudgeThreshold)
	}
	return nil
}

// EffectiveGraphLimit resolves the graph traversal cap: the configured
// limit when set, otherwise GraphMaxDepth*5.
func (c Config) EffectiveGraphLimit() int {
	if c.GraphLimit > 0 {
		return c.GraphLimit
	}
	return c.GraphMaxDepth * 5
}
