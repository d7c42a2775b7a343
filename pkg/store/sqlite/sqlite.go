// Package sqlite provides a flow store backed by SQLite.
//
// Flows, screens and connections live in separate tables. A connection row is
// keyed by its unordered screen pair, so the database itself refuses a second
// row for the same two screens.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/store"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS flows (
    id              TEXT PRIMARY KEY,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    ordinal         INTEGER NOT NULL DEFAULT 0,
    status          TEXT NOT NULL,
    frame_width     INTEGER NOT NULL,
    frame_height    INTEGER NOT NULL,
    created_at_ns   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flows_title ON flows(title);
CREATE INDEX IF NOT EXISTS idx_flows_created ON flows(created_at_ns);

CREATE TABLE IF NOT EXISTS screens (
    flow_id     TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
    number      INTEGER NOT NULL,
    image       TEXT NOT NULL DEFAULT '',
    x           INTEGER NOT NULL DEFAULT 0,
    y           INTEGER NOT NULL DEFAULT 0,
    placed      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (flow_id, number)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_screens_position ON screens(flow_id, x, y) WHERE placed = 1;

CREATE TABLE IF NOT EXISTS connections (
    flow_id         TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
    ordinal         INTEGER NOT NULL,
    screen_out      INTEGER NOT NULL,
    screen_in       INTEGER NOT NULL,
    pair_lo         INTEGER NOT NULL,
    pair_hi         INTEGER NOT NULL,
    bidirectional   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (flow_id, ordinal),
    UNIQUE (flow_id, pair_lo, pair_hi)
);
`

// Store is the SQLite flow store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// Pass Memory for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == Memory {
		// every pooled connection would otherwise see its own database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// migrate adds columns introduced after a database was created.
func migrate(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info('flows')`)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	defer rows.Close()
	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if !cols["ordinal"] {
		if _, err := db.Exec(`ALTER TABLE flows ADD COLUMN ordinal INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("add ordinal column: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save replaces the flow row and all of its screens and connections in one
// transaction.
func (s *Store) Save(ctx context.Context, f *flow.Flow) error {
	if err := store.Check(f); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flows (id, title, description, ordinal, status, frame_width, frame_height, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			ordinal = excluded.ordinal,
			status = excluded.status,
			frame_width = excluded.frame_width,
			frame_height = excluded.frame_height,
			created_at_ns = excluded.created_at_ns`,
		f.ID, f.Title, f.Description, f.Ordinal, string(f.Status), f.Frame.Width, f.Frame.Height, f.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert flow: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE flow_id = ?`, f.ID); err != nil {
		return fmt.Errorf("clear connections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM screens WHERE flow_id = ?`, f.ID); err != nil {
		return fmt.Errorf("clear screens: %w", err)
	}

	screenStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO screens (flow_id, number, image, x, y, placed)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer screenStmt.Close()

	for _, sc := range f.Graph.Screens() {
		if _, err := screenStmt.ExecContext(ctx, f.ID, sc.Number, string(sc.Image), sc.Pos.X, sc.Pos.Y, sc.Placed); err != nil {
			return fmt.Errorf("insert screen %d: %w", sc.Number, err)
		}
	}

	connStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO connections (flow_id, ordinal, screen_out, screen_in, pair_lo, pair_hi, bidirectional)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer connStmt.Close()

	for i, c := range f.Graph.Connections() {
		lo, hi := min(c.Out, c.In), max(c.Out, c.In)
		if _, err := connStmt.ExecContext(ctx, f.ID, i, c.Out, c.In, lo, hi, c.Bidirectional); err != nil {
			return fmt.Errorf("insert connection %d→%d: %w", c.Out, c.In, err)
		}
	}

	return tx.Commit()
}

// Load reads a flow with its screens in number order and its connections in
// insertion order.
func (s *Store) Load(ctx context.Context, id string) (*flow.Flow, error) {
	f := &flow.Flow{ID: id, Graph: flow.NewGraph()}
	var status string
	var createdNs int64
	err := s.db.QueryRowContext(ctx, `
		SELECT title, description, ordinal, status, frame_width, frame_height, created_at_ns
		FROM flows WHERE id = ?`, id,
	).Scan(&f.Title, &f.Description, &f.Ordinal, &status, &f.Frame.Width, &f.Frame.Height, &createdNs)
	if err == sql.ErrNoRows {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query flow: %w", err)
	}
	f.Status = flow.Status(status)
	f.CreatedAt = time.Unix(0, createdNs).UTC()

	if err := s.loadScreens(ctx, f); err != nil {
		return nil, err
	}
	if err := s.loadConnections(ctx, f); err != nil {
		return nil, err
	}
	if err := f.Graph.Validate(); err != nil {
		return nil, fmt.Errorf("flow %s: %w", id, err)
	}
	return f, nil
}

func (s *Store) loadScreens(ctx context.Context, f *flow.Flow) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, image, x, y, placed
		FROM screens WHERE flow_id = ? ORDER BY number`, f.ID)
	if err != nil {
		return fmt.Errorf("query screens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc flow.Screen
		var image string
		if err := rows.Scan(&sc.Number, &image, &sc.Pos.X, &sc.Pos.Y, &sc.Placed); err != nil {
			return fmt.Errorf("scan screen: %w", err)
		}
		sc.Image = flow.ImageRef(image)
		if err := f.Graph.RestoreScreen(sc); err != nil {
			return fmt.Errorf("screen %d: %w", sc.Number, err)
		}
	}
	return rows.Err()
}

func (s *Store) loadConnections(ctx context.Context, f *flow.Flow) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT screen_out, screen_in, bidirectional
		FROM connections WHERE flow_id = ? ORDER BY ordinal`, f.ID)
	if err != nil {
		return fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c flow.Connection
		if err := rows.Scan(&c.Out, &c.In, &c.Bidirectional); err != nil {
			return fmt.Errorf("scan connection: %w", err)
		}
		if err := f.Graph.RestoreConnection(c); err != nil {
			return fmt.Errorf("connection %d→%d: %w", c.Out, c.In, err)
		}
	}
	return rows.Err()
}

// List returns flow summaries newest first.
func (s *Store) List(ctx context.Context, filter store.Filter) ([]store.Summary, error) {
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.title, f.status, f.created_at_ns,
			(SELECT COUNT(*) FROM screens s WHERE s.flow_id = f.id),
			(SELECT COUNT(*) FROM connections c WHERE c.flow_id = f.id)
		FROM flows f
		WHERE (? = '' OR f.title = ?) AND (? = '' OR f.status = ?)
		ORDER BY f.created_at_ns DESC, f.id
		LIMIT ? OFFSET ?`,
		filter.Title, filter.Title, string(filter.Status), string(filter.Status),
		limit, max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	var out []store.Summary
	for rows.Next() {
		var sum store.Summary
		var status string
		var createdNs int64
		if err := rows.Scan(&sum.ID, &sum.Title, &status, &createdNs, &sum.Screens, &sum.Connections); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		sum.Status = flow.Status(status)
		sum.CreatedAt = time.Unix(0, createdNs).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a flow. Screens and connections go with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.NotFound(id)
	}
	return nil
}

func (s *Store) CountByTitle(ctx context.Context, title string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flows WHERE title = ?`, title).Scan(&n); err != nil {
		return 0, fmt.Errorf("count flows: %w", err)
	}
	return n, nil
}

var _ store.Store = (*Store)(nil)
