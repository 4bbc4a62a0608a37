// Package docchat answers natural-language questions about ingested
// documents by combining pgvector similarity search, Neo4j entity-graph
// traversal, relevance reranking, and judged answer generation.
package docchat

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docchat/docchat/core/answer"
	"github.com/docchat/docchat/core/chunking"
	"github.com/docchat/docchat/core/query"
	"github.com/docchat/docchat/core/retrieval"
	"github.com/docchat/docchat/database"
	"github.com/docchat/docchat/helper"
	"github.com/docchat/docchat/model"
	loadSql "github.com/docchat/docchat/sql"
	"github.com/docchat/docchat/store"
	openai "github.com/sashabaranov/go-openai"
)

// ChunkIndex is the vector index consumed by retrieval and fed by ingestion.
type ChunkIndex interface {
	Search(ctx context.Context, queryText string, topK int, tenant string) ([]model.Candidate, error)
	IndexChunks(ctx context.Context, doc *model.Document, parents, children []model.Chunk) (int, error)
}

// EntityGraph is the entity co-occurrence graph consumed by retrieval and
// fed by ingestion.
type EntityGraph interface {
	UpsertEntities(ctx context.Context, entities []string, tenant string) error
	LinkEntities(ctx context.Context, entities []string, tenant string) error
	RelatedEntities(ctx context.Context, seeds []string, maxDepth, limit int, tenant string) ([]model.GraphNode, error)
}

// DocChat provides a unified interface to ingestion and answering.
type DocChat struct {
	Config    model.Config
	DB        *helper.Database
	Documents database.DocumentsDBHandlerFunctions
	Index     ChunkIndex
	Graph     EntityGraph
	Segmenter *chunking.Segmenter
	Extractor retrieval.EntityExtractor
	Pipeline  *answer.Pipeline
	// Logging
	log *slog.Logger
	// Local inference sessions to tear down on Close
	closers []func() error
}

// NewDocChat creates a DocChat instance wired to OpenAI, PostgreSQL with
// pgvector, and Neo4j (configured through NEO4J_URI, NEO4J_USERNAME,
// NEO4J_PASSWORD). embeddingDim must match the configured embedding model,
// 1536 for text-embedding-3-small. With Config.LocalModels set, embedding
// and entity extraction run on local ONNX models instead and embeddingDim
// is forced to store.LocalEmbeddingDim; completion still needs the API key.
func NewDocChat(ctx context.Context, config model.Config, dbConfig *helper.DatabaseConfiguration, embeddingDim int) (*DocChat, error) {
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate configuration", err)
	}
	if config.OpenAIAPIKey == "" {
		return nil, helper.NewError("validate configuration", fmt.Errorf("OpenAI API key is empty"))
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// OpenAI-backed services
	client := openai.NewClient(config.OpenAIAPIKey)
	llm := store.NewChatCompleter(client, config.LLMModel, config.Temperature)
	judgeLLM := store.NewChatCompleter(client, config.JudgeModel, 0)

	var embedder retrieval.Embedder
	var extractor retrieval.EntityExtractor
	var closers []func() error
	if config.LocalModels {
		localEmbedder, err := store.NewLocalEmbedder()
		if err != nil {
			return nil, helper.NewError("create local embedder", err)
		}
		localExtractor, err := store.NewLocalEntityExtractor()
		if err != nil {
			_ = localEmbedder.Close()
			return nil, helper.NewError("create local entity extractor", err)
		}
		embedder = localEmbedder
		extractor = localExtractor
		closers = []func() error{localEmbedder.Close, localExtractor.Close}
		embeddingDim = store.LocalEmbeddingDim
		logger.Info("Using local embedding and NER models", slog.Int("embedding_dim", embeddingDim))
	} else {
		embedder = store.NewOpenAIEmbedder(client, config.EmbeddingModel)
		extractor = store.NewLLMEntityExtractor(llm)
	}

	// Initialize database
	db := helper.NewDatabase("docchat", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create handlers in order (documents first, chunks reference them)
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	graph, err := store.NewGraphStoreFromEnv(ctx, logger)
	if err != nil {
		return nil, helper.NewError("create graph store", err)
	}

	segmenter, err := chunking.NewSegmenter(config)
	if err != nil {
		return nil, helper.NewError("create segmenter", err)
	}

	index := store.NewChunkStore(chunks, embedder, logger)

	d := NewDocChatFromServices(config, db, documents, index, graph, segmenter, extractor, embedder, llm, judgeLLM, logger)
	d.closers = closers
	return d, nil
}

// NewDocChatFromServices wires the answering pipeline from already
// constructed services. It is the seam for swapping any collaborator, for
// example a non-OpenAI Completer alongside the local embedder and extractor.
func NewDocChatFromServices(
	config model.Config,
	db *helper.Database,
	documents database.DocumentsDBHandlerFunctions,
	index ChunkIndex,
	graph EntityGraph,
	segmenter *chunking.Segmenter,
	extractor retrieval.EntityExtractor,
	embedder retrieval.Embedder,
	llm query.Completer,
	judgeLLM answer.Completer,
	logger *slog.Logger,
) *DocChat {
	router := query.NewRouter(llm, logger)
	expander := query.NewExpander(llm, logger)
	retriever := retrieval.NewRetriever(index, graph, extractor, expander, config, logger)
	reranker := retrieval.NewReranker(embedder, logger)
	generator := answer.NewGenerator(llm, logger)
	judge := answer.NewJudge(judgeLLM, config.JudgeThreshold, logger)
	pipeline := answer.NewPipeline(router, retriever, reranker, generator, judge, extractor, config, logger)

	return &DocChat{
		Config:    config,
		DB:        db,
		Documents: documents,
		Index:     index,
		Graph:     graph,
		Segmenter: segmenter,
		Extractor: extractor,
		Pipeline:  pipeline,
		log:       logger,
	}
}

// Answer runs one query through the pipeline, scoped to a tenant, with the
// prior conversation turns for follow-up resolution.
func (d *DocChat) Answer(ctx context.Context, queryText, tenant string, history []model.ChatMessage) (*model.AnswerResult, error) {
	return d.Pipeline.Answer(ctx, queryText, tenant, history)
}

// IngestPages ingests a document's extracted page texts:
// 1. Inserts the document metadata.
// 2. Segments every page into parent and child windows.
// 3. Embeds and indexes the child chunks with their parent text.
// 4. Extracts entities per parent window and upserts them, with
//    co-occurrence links, into the entity graph.
// Graph extraction failures cost graph recall, not the ingestion.
// Returns the number of chunks indexed.
func (d *DocChat) IngestPages(ctx context.Context, doc *model.Document, pages []model.Page) (int, error) {
	if len(pages) == 0 {
		return 0, helper.NewError("ingest document", fmt.Errorf("document has no pages"))
	}

	doc.PageCount = len(pages)
	if err := d.Documents.InsertDocument(doc); err != nil {
		return 0, helper.NewError("insert document", err)
	}

	d.log.Info("Inserted document", slog.String("document_id", doc.RID.String()), slog.String("title", doc.Title))

	parents, children, err := d.Segmenter.ProcessDocumentPages(pages)
	if err != nil {
		return 0, helper.NewError("segment pages", err)
	}

	inserted, err := d.Index.IndexChunks(ctx, doc, parents, children)
	if err != nil {
		return inserted, helper.NewError("index chunks", err)
	}

	d.log.Info("Indexed document chunks",
		slog.Int("parents", len(parents)),
		slog.Int("children", inserted),
		slog.String("document_id", doc.RID.String()))

	for _, parent := range parents {
		entities, err := d.Extractor.Extract(ctx, parent.Text)
		if err != nil {
			d.log.Warn("Entity extraction failed for parent chunk", slog.String("error", err.Error()))
			continue
		}
		if len(entities) == 0 {
			continue
		}
		if err := d.Graph.UpsertEntities(ctx, entities, doc.Tenant); err != nil {
			d.log.Warn("Entity upsert failed", slog.String("error", err.Error()))
			continue
		}
		if err := d.Graph.LinkEntities(ctx, entities, doc.Tenant); err != nil {
			d.log.Warn("Entity linking failed", slog.String("error", err.Error()))
		}
	}

	return inserted, nil
}

// Close closes the database connection, the graph driver, and any local
// inference sessions.
func (d *DocChat) Close(ctx context.Context) error {
	var firstErr error
	if d.DB != nil {
		firstErr = d.DB.Close()
	}
	if closer, ok := d.Graph.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, closeSession := range d.closers {
		if err := closeSession(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
