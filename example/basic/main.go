package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/docchat/docchat"
	"github.com/docchat/docchat/helper"
	"github.com/docchat/docchat/model"
)

const samplePage = `DocChat is a document question answering system.

It combines vector similarity search over parent/child text chunks with
graph traversal over extracted entities. Retrieved candidates are reranked
by cosine similarity to the query, assembled into a bounded context, and
answered by a language model whose output is scored by a judge. Answers
that fail the judge are regenerated once from the judge's feedback.`

// Requires OPENAI_API_KEY and NEO4J_URI/NEO4J_USERNAME/NEO4J_PASSWORD.
// PostgreSQL runs in a disposable container.
func main() {
	ctx := context.Background()

	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		User:     "postgres",
		Password: "postgres",
		Name:     "docchat_test",
		Schema:   "public",
	}

	config := model.DefaultConfig()
	config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	d, err := docchat.NewDocChat(ctx, config, dbConfig, 1536)
	if err != nil {
		log.Fatalf("Failed to create docchat: %v", err)
	}
	defer d.Close(ctx)

	doc := &model.Document{
		Title:  "DocChat Overview",
		Source: "basic_example",
		Tenant: "demo",
	}
	inserted, err := d.IngestPages(ctx, doc, []model.Page{{Text: samplePage, PageNum: 1}})
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %q with %d chunks\n\n", doc.Title, inserted)

	result, err := d.Answer(ctx, "How does DocChat check answer quality?", "demo", nil)
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}

	fmt.Printf("Answer: %s\n", result.Answer)
	fmt.Printf("Contexts used: %d\n", len(result.Contexts))
	if result.Reflection != nil {
		fmt.Printf("Judge overall: %.2f (%s)\n", result.Reflection.Overall, result.Reflection.Verdict)
	}
}
