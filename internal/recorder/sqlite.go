package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"image-verify/internal/model"
)

// SQLite appends records to a local verifications table.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS verifications (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		match_result INTEGER NOT NULL,
		hash TEXT NOT NULL,
		similarity_percentage REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_verifications_hash ON verifications(hash);
	CREATE INDEX IF NOT EXISTS idx_verifications_created_at ON verifications(created_at);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create verifications table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (r *SQLite) Name() string { return "sqlite" }

func (r *SQLite) Record(ctx context.Context, rec model.VerificationRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verifications (id, filename, match_result, hash, similarity_percentage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.MatchResult, rec.ContentHash, rec.SimilarityPercentage,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Summary aggregates every stored row.
func (r *SQLite) Summary(ctx context.Context) (model.StatsSnapshot, error) {
	var s model.StatsSnapshot
	var since sql.NullString
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(match_result), 0),
		       AVG(similarity_percentage),
		       MIN(created_at)
		FROM verifications`).Scan(&s.Total, &s.Matches, &avg, &since)
	if err != nil {
		return s, err
	}
	s.Mismatches = s.Total - s.Matches
	s.AvgSimilarity = avg.Float64
	if since.Valid {
		if t, err := time.Parse(time.RFC3339Nano, since.String); err == nil {
			s.Since = t
		}
	}
	return s, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}
