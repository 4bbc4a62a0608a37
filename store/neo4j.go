package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docchat/docchat/helper"
	"github.com/docchat/docchat/model"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore holds the entity co-occurrence graph in Neo4j. Entities are
// Entity nodes scoped by a tenant property, co-occurrence is an undirected
// RELATED_TO relationship with an occurrence count.
type GraphStore struct {
	driver neo4j.DriverWithContext
	log    *slog.Logger
}

// NewGraphStore connects to Neo4j and verifies connectivity.
func NewGraphStore(ctx context.Context, uri, username, password string, logger *slog.Logger) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, helper.NewError("create neo4j driver", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, helper.NewError("verify neo4j connectivity", err)
	}

	logger.Info("Connected to Neo4j", slog.String("uri", uri))

	return &GraphStore{driver: driver, log: logger}, nil
}

// NewGraphStoreFromEnv connects using NEO4J_URI, NEO4J_USERNAME, and
// NEO4J_PASSWORD.
func NewGraphStoreFromEnv(ctx context.Context, logger *slog.Logger) (*GraphStore, error) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		return nil, helper.NewError("neo4j configuration", fmt.Errorf("NEO4J_URI is not set"))
	}
	return NewGraphStore(ctx, uri, os.Getenv("NEO4J_USERNAME"), os.Getenv("NEO4J_PASSWORD"), logger)
}

// UpsertEntities merges entity nodes for a tenant.
func (g *GraphStore) UpsertEntities(ctx context.Context, entities []string, tenant string) error {
	if len(entities) == 0 {
		return nil
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx,
			`UNWIND $names AS name
			MERGE (e:Entity {name: name, tenant: $tenant})`,
			map[string]any{"names": entities, "tenant": tenant},
		)
	})
	if err != nil {
		return helper.NewError("upsert entities", err)
	}

	return nil
}

// LinkEntities merges a co-occurrence relationship between every pair of
// the given entities, incrementing the occurrence count on repeats.
func (g *GraphStore) LinkEntities(ctx context.Context, entities []string, tenant string) error {
	if len(entities) < 2 {
		return nil
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx,
			`UNWIND $names AS a
			UNWIND $names AS b
			WITH a, b WHERE a < b
			MATCH (ea:Entity {name: a, tenant: $tenant})
			MATCH (eb:Entity {name: b, tenant: $tenant})
			MERGE (ea)-[r:RELATED_TO]-(eb)
			ON CREATE SET r.count = 1
			ON MATCH SET r.count = r.count + 1`,
			map[string]any{"names": entities, "tenant": tenant},
		)
	})
	if err != nil {
		return helper.NewError("link entities", err)
	}

	return nil
}

// RelatedEntities traverses up to maxDepth RELATED_TO hops from the seed
// entities and returns at most limit distinct related entities of the
// tenant, seeds excluded.
func (g *GraphStore) RelatedEntities(ctx context.Context, seeds []string, maxDepth, limit int, tenant string) ([]model.GraphNode, error) {
	if len(seeds) == 0 || limit <= 0 {
		return nil, nil
	}
	if maxDepth < 1 {
		maxDepth = 1
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	// The variable-length bound cannot be parameterized in Cypher.
	query := fmt.Sprintf(
		`MATCH (s:Entity {tenant: $tenant}) WHERE s.name IN $seeds
		MATCH (s)-[:RELATED_TO*1..%d]-(related:Entity {tenant: $tenant})
		WHERE NOT related.name IN $seeds
		RETURN DISTINCT elementId(related) AS id, related.name AS name
		LIMIT $limit`,
		maxDepth,
	)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"seeds":  seeds,
			"tenant": tenant,
			"limit":  limit,
		})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, helper.NewError("traverse related entities", err)
	}

	nodes := make([]model.GraphNode, 0)
	for _, record := range records.([]*neo4j.Record) {
		id, _ := record.Get("id")
		name, _ := record.Get("name")
		label, ok := name.(string)
		if !ok || label == "" {
			continue
		}
		nodeID, _ := id.(string)
		nodes = append(nodes, model.GraphNode{ID: nodeID, Label: label, Type: "entity"})
	}

	return nodes, nil
}

// Close shuts down the driver.
func (g *GraphStore) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
