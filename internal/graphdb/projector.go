package graphdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Counts summarises the projected graph
type Counts struct {
	Nodes         int64 `json:"nodes"`
	Relationships int64 `json:"relationships"`
}

// Projector writes statements to Neo4j
type Projector struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewProjector connects to uri and verifies connectivity.
func NewProjector(ctx context.Context, uri, user, password, database string) (*Projector, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Projector{driver: driver, database: database}, nil
}

// Project runs every statement in a single write transaction.
func (p *Projector) Project(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}

	session := p.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: p.database,
	})
	defer session.Close(ctx)

	start := time.Now()
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for i, stmt := range stmts {
			if _, err := tx.Run(ctx, stmt.Cypher, stmt.Params); err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to project graph: %w", err)
	}

	slog.InfoContext(ctx, "graph_projected", "component", "neo4j",
		"statements", len(stmts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Counts returns the number of nodes and relationships in the database.
func (p *Projector) Counts(ctx context.Context) (Counts, error) {
	session := p.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: p.database,
	})
	defer session.Close(ctx)

	var counts Counts
	var err error
	if counts.Nodes, err = countQuery(ctx, session, "MATCH (n) RETURN count(n) AS total"); err != nil {
		return Counts{}, err
	}
	if counts.Relationships, err = countQuery(ctx, session, "MATCH ()-[r]->() RETURN count(r) AS total"); err != nil {
		return Counts{}, err
	}
	return counts, nil
}

func countQuery(ctx context.Context, session neo4j.SessionWithContext, query string) (int64, error) {
	total, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		v, _ := record.Get("total")
		return v, nil
	})
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	n, _ := total.(int64)
	return n, nil
}

func (p *Projector) Ping(ctx context.Context) error {
	return p.driver.VerifyConnectivity(ctx)
}

func (p *Projector) Close(ctx context.Context) error {
	return p.driver.Close(ctx)
}
