package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	insertBatchSize = 100
)

var snapshotColumns = []string{
	"run_id", "position", "title", "url", "source", "published_at", "category", "has_related", "generated_at",
}

// SnapshotRepository mirrors the latest snapshot into one SQL table. Each run
// replaces the table content; nothing is read back by the pipeline.
type SnapshotRepository struct {
	db      *sql.DB
	driver  string
	table   string
	builder sq.StatementBuilderType
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

// Open connects to dsn with driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// NewSnapshotRepository wires a sql.DB implementation.
func NewSnapshotRepository(db *sql.DB, driver, table string) *SnapshotRepository {
	if table == "" {
		table = "story_snapshot"
	}
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SnapshotRepository{
		db:      db,
		driver:  driver,
		table:   pq.QuoteIdentifier(table),
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// EnsureSchema creates the snapshot table when it is missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	stamp := "TIMESTAMP"
	if r.driver == DriverPostgres {
		stamp = "TIMESTAMPTZ"
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		run_id       TEXT NOT NULL,
		position     INTEGER NOT NULL,
		title        TEXT NOT NULL,
		url          TEXT NOT NULL,
		source       TEXT NOT NULL,
		published_at %s NULL,
		category     TEXT NOT NULL,
		has_related  BOOLEAN NOT NULL,
		generated_at %s NOT NULL,
		PRIMARY KEY (run_id, position)
	)`, r.table, stamp, stamp)

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

// ReplaceSnapshot swaps the table content for snapshot in one transaction.
func (r *SnapshotRepository) ReplaceSnapshot(ctx context.Context, runID string, snapshot domain.Snapshot) error {
	if r.db == nil {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := r.builder.Delete(r.table).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	generated := snapshot.GeneratedAt.UTC()
	for start := 0; start < len(snapshot.Articles); start += insertBatchSize {
		end := min(start+insertBatchSize, len(snapshot.Articles))

		insert := r.builder.Insert(r.table).Columns(snapshotColumns...)
		for i, item := range snapshot.Articles[start:end] {
			var published any
			if item.Date != nil {
				published = item.Date.UTC()
			}
			insert = insert.Values(runID, start+i, item.Title, item.URL, item.Source, published, item.Category, item.HasRelated, generated)
		}

		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("insert snapshot rows %d-%d: %w", start, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Items returns the stored rows in snapshot order.
func (r *SnapshotRepository) Items(ctx context.Context) ([]domain.SnapshotItem, error) {
	rows, err := r.builder.
		Select("title", "url", "source", "published_at", "category", "has_related").
		From(r.table).
		OrderBy("position").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var items []domain.SnapshotItem
	for rows.Next() {
		var (
			item      domain.SnapshotItem
			published sql.NullTime
		)
		if err := rows.Scan(&item.Title, &item.URL, &item.Source, &published, &item.Category, &item.HasRelated); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if published.Valid {
			t := published.Time.In(time.UTC)
			item.Date = &t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}
