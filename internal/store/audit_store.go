package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"cadenza/internal/intent"
	"cadenza/internal/provenance"
)

// AuditStore persists built provenance graphs and resolution outcomes so an
// interpretation stays auditable after the session that produced it.
//
// Architecture:
// - Backed by SQLite for durability (single writer, WAL mode)
// - Graphs are stored relationally (graphs / graph_nodes / graph_edges) so
//   audit queries can reach individual nodes without decoding blobs
// - Outcomes are flat rows keyed to their graph
// - Thread-safe with a read-write mutex
type AuditStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// GraphSummary is one row of the graph listing.
type GraphSummary struct {
	ID        string    `json:"id"`
	Utterance string    `json:"utterance"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	CreatedAt time.Time `json:"created_at"`
}

// OutcomeRecord is the audit row for one resolution outcome. It mirrors the
// pipeline outcome's audit-relevant fields so the store never has to import
// the pipeline.
type OutcomeRecord struct {
	ID            string        `json:"id"`
	GraphID       string        `json:"graph_id"`
	Utterance     string        `json:"utterance"`
	ResolvedScope string        `json:"resolved_scope,omitempty"`
	ScopeConf     float64       `json:"scope_confidence,omitempty"`
	Holes         []intent.Hole `json:"holes,omitempty"`
	Explanation   string        `json:"explanation,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewAuditStore opens (or creates) the SQLite database at the given path.
// A nil logger disables logging.
func NewAuditStore(path string, logger *zap.Logger) (*AuditStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &AuditStore{db: db, dbPath: path, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	logger.Info("audit store ready", zap.String("path", path))
	return s, nil
}

// ensureSchema creates the audit tables if they do not exist.
func (s *AuditStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS graphs (
		id TEXT PRIMARY KEY,
		utterance TEXT NOT NULL,
		node_count INTEGER NOT NULL,
		edge_count INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS graph_nodes (
		graph_id TEXT NOT NULL,
		node_id TEXT NOT NULL,
		meaning_id TEXT NOT NULL,
		meaning_type TEXT,
		span_start INTEGER NOT NULL,
		span_end INTEGER NOT NULL,
		source_text TEXT,
		stage TEXT NOT NULL,
		mechanism_kind TEXT NOT NULL,
		rule_id TEXT,
		rule_name TEXT,
		detail TEXT,
		confidence REAL NOT NULL,
		parents TEXT,
		tags TEXT,
		explanation TEXT,
		PRIMARY KEY (graph_id, node_id)
	);

	CREATE TABLE IF NOT EXISTS graph_edges (
		graph_id TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		relation TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id TEXT PRIMARY KEY,
		graph_id TEXT NOT NULL,
		utterance TEXT NOT NULL,
		resolved_scope TEXT,
		scope_conf REAL,
		holes TEXT,
		explanation TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_graph_nodes_graph ON graph_nodes(graph_id);
	CREATE INDEX IF NOT EXISTS idx_graph_nodes_meaning ON graph_nodes(meaning_id);
	CREATE INDEX IF NOT EXISTS idx_graph_edges_graph ON graph_edges(graph_id);
	CREATE INDEX IF NOT EXISTS idx_graphs_created ON graphs(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_graph ON outcomes(graph_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_created ON outcomes(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ========== Graph Persistence ==========

// SaveGraph persists a built graph under the given id. Saving again under
// the same id replaces the previous rows.
func (s *AuditStore) SaveGraph(ctx context.Context, graphID string, g *provenance.Graph) error {
	if graphID == "" {
		return fmt.Errorf("graph id is empty")
	}
	if g == nil {
		return fmt.Errorf("nil graph")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("saving graph",
		zap.String("graph_id", graphID),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO graphs (id, utterance, node_count, edge_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		graphID, g.Utterance, len(g.Nodes), len(g.Edges), g.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to save graph row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM graph_nodes WHERE graph_id = ?", graphID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM graph_edges WHERE graph_id = ?", graphID); err != nil {
		return err
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_nodes
		(graph_id, node_id, meaning_id, meaning_type, span_start, span_end,
		 source_text, stage, mechanism_kind, rule_id, rule_name, detail,
		 confidence, parents, tags, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	for _, n := range g.Nodes {
		parentsJSON, _ := json.Marshal(n.Parents)
		tagsJSON, _ := json.Marshal(n.Tags)
		if _, err := nodeStmt.ExecContext(ctx,
			graphID, n.ID, n.MeaningID, n.MeaningType, n.Span.Start, n.Span.End,
			n.SourceText, string(n.Stage), string(n.Mechanism.Kind),
			n.Mechanism.RuleID, n.Mechanism.RuleName, n.Mechanism.Detail,
			n.Confidence, string(parentsJSON), string(tagsJSON), n.Explanation,
		); err != nil {
			return fmt.Errorf("failed to save node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_edges (graph_id, from_id, to_id, relation, weight)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, e := range g.Edges {
		if _, err := edgeStmt.ExecContext(ctx,
			graphID, e.From, e.To, string(e.Relation), e.Weight,
		); err != nil {
			return fmt.Errorf("failed to save edge %s->%s: %w", e.From, e.To, err)
		}
	}

	return tx.Commit()
}

// LoadGraph reconstructs a persisted graph. Roots and leaves are recomputed
// from the loaded nodes and edges and the id index is rebuilt, so the result
// behaves exactly like a freshly built graph.
func (s *AuditStore) LoadGraph(ctx context.Context, graphID string) (*provenance.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := &provenance.Graph{}
	err := s.db.QueryRowContext(ctx,
		"SELECT utterance, created_at FROM graphs WHERE id = ?", graphID,
	).Scan(&g.Utterance, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph %q not found", graphID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %q: %w", graphID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, meaning_id, meaning_type, span_start, span_end,
		       source_text, stage, mechanism_kind, rule_id, rule_name, detail,
		       confidence, parents, tags, explanation
		FROM graph_nodes
		WHERE graph_id = ?
		ORDER BY rowid`, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes for %q: %w", graphID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var n provenance.Node
		var stage, kind, parentsJSON, tagsJSON string
		if err := rows.Scan(
			&n.ID, &n.MeaningID, &n.MeaningType, &n.Span.Start, &n.Span.End,
			&n.SourceText, &stage, &kind, &n.Mechanism.RuleID, &n.Mechanism.RuleName,
			&n.Mechanism.Detail, &n.Confidence, &parentsJSON, &tagsJSON, &n.Explanation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.Stage = provenance.Stage(stage)
		n.Mechanism.Kind = provenance.MechanismKind(kind)
		if parentsJSON != "" {
			json.Unmarshal([]byte(parentsJSON), &n.Parents)
		}
		if tagsJSON != "" {
			json.Unmarshal([]byte(tagsJSON), &n.Tags)
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	erows, err := s.db.QueryContext(ctx, `
		SELECT from_id, to_id, relation, weight
		FROM graph_edges
		WHERE graph_id = ?
		ORDER BY rowid`, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges for %q: %w", graphID, err)
	}
	defer erows.Close()

	for erows.Next() {
		var e provenance.Edge
		var relation string
		if err := erows.Scan(&e.From, &e.To, &relation, &e.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Relation = provenance.Relation(relation)
		g.Edges = append(g.Edges, e)
	}
	if err := erows.Err(); err != nil {
		return nil, err
	}

	g.Roots, g.Leaves = deriveEndpoints(g)
	g.Reindex()
	return g, nil
}

// deriveEndpoints recomputes roots and leaves in node order: roots are
// nodes with no parents, leaves are nodes that are never the From endpoint
// of a derived-from edge. Matches what the builder computes at freeze time.
func deriveEndpoints(g *provenance.Graph) (roots, leaves []string) {
	derives := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		if e.Relation == provenance.RelationDerivedFrom {
			derives[e.From] = true
		}
	}
	for _, n := range g.Nodes {
		if len(n.Parents) == 0 {
			roots = append(roots, n.ID)
		}
		if !derives[n.ID] {
			leaves = append(leaves, n.ID)
		}
	}
	return roots, leaves
}

// ListGraphs returns recent graph summaries, newest first.
func (s *AuditStore) ListGraphs(ctx context.Context, limit int) ([]GraphSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, utterance, node_count, edge_count, created_at
		FROM graphs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	var out []GraphSummary
	for rows.Next() {
		var gs GraphSummary
		if err := rows.Scan(&gs.ID, &gs.Utterance, &gs.NodeCount, &gs.EdgeCount, &gs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

// ========== Outcome Persistence ==========

// SaveOutcome records the final resolution outcome for an utterance. A zero
// CreatedAt is filled with the current time.
func (s *AuditStore) SaveOutcome(ctx context.Context, rec *OutcomeRecord) error {
	if rec == nil {
		return fmt.Errorf("nil outcome")
	}
	if rec.ID == "" {
		return fmt.Errorf("outcome id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	holesJSON, _ := json.Marshal(rec.Holes)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO outcomes
		(id, graph_id, utterance, resolved_scope, scope_conf, holes, explanation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.GraphID, rec.Utterance, rec.ResolvedScope, rec.ScopeConf,
		string(holesJSON), rec.Explanation, created,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome %s: %w", rec.ID, err)
	}

	s.logger.Debug("outcome saved",
		zap.String("outcome_id", rec.ID),
		zap.String("graph_id", rec.GraphID),
		zap.Int("holes", len(rec.Holes)))
	return nil
}

// ListOutcomes returns recent outcomes, newest first.
func (s *AuditStore) ListOutcomes(ctx context.Context, limit int) ([]OutcomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, graph_id, utterance, resolved_scope, scope_conf, holes, explanation, created_at
		FROM outcomes
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var rec OutcomeRecord
		var holesJSON string
		if err := rows.Scan(&rec.ID, &rec.GraphID, &rec.Utterance, &rec.ResolvedScope,
			&rec.ScopeConf, &holesJSON, &rec.Explanation, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if holesJSON != "" {
			json.Unmarshal([]byte(holesJSON), &rec.Holes)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ========== Statistics ==========

// Stats returns aggregate counts over the audit tables.
func (s *AuditStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	var graphCount int64
	s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM graphs").Scan(&graphCount)
	stats["total_graphs"] = graphCount

	var outcomeCount int64
	s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcomes").Scan(&outcomeCount)
	stats["total_outcomes"] = outcomeCount

	var avgNodes sql.NullFloat64
	s.db.QueryRowContext(ctx, "SELECT AVG(node_count) FROM graphs").Scan(&avgNodes)
	if avgNodes.Valid {
		stats["avg_nodes_per_graph"] = avgNodes.Float64
	}

	// Outcomes that went back to the user with at least one open hole.
	var clarified int64
	s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM outcomes WHERE holes IS NOT NULL AND holes != '' AND holes != 'null' AND holes != '[]'",
	).Scan(&clarified)
	if outcomeCount > 0 {
		stats["clarification_rate"] = float64(clarified) / float64(outcomeCount)
	}

	return stats, nil
}

// ========== Cleanup ==========

// CleanupOldGraphs removes graphs, their nodes and edges, and their outcomes
// older than the retention period. Returns the number of graphs deleted.
func (s *AuditStore) CleanupOldGraphs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM graph_nodes WHERE graph_id IN (SELECT id FROM graphs WHERE created_at < ?)", cutoff); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM graph_edges WHERE graph_id IN (SELECT id FROM graphs WHERE created_at < ?)", cutoff); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM outcomes WHERE graph_id IN (SELECT id FROM graphs WHERE created_at < ?)", cutoff); err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM graphs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		s.logger.Info("cleaned up old graphs",
			zap.Int64("deleted", deleted),
			zap.Int("retention_days", retentionDays))
	}
	return deleted, nil
}

// Path returns the database file path.
func (s *AuditStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *AuditStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
