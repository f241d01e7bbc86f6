package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/domain"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Migrate creates the pgvector extension and the two embedding tables if they
// do not exist. dimension fixes the vector column width for the deployment.
func (s *PostgresStore) Migrate(ctx context.Context, dimension int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS repositories (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name        TEXT NOT NULL UNIQUE,
			url         TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS file_embeddings (
			id                  UUID PRIMARY KEY,
			repository_id       UUID NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			file_path           TEXT NOT NULL,
			file_name           TEXT NOT NULL,
			file_extension      TEXT NOT NULL,
			file_size           BIGINT NOT NULL DEFAULT 0,
			file_hash           TEXT NOT NULL DEFAULT '',
			chunk_index         INT NOT NULL,
			total_chunks        INT NOT NULL,
			content             TEXT NOT NULL,
			embedding_vector    vector(%d) NOT NULL,
			embedding_model     TEXT NOT NULL,
			embedding_type      TEXT NOT NULL,
			language            TEXT NOT NULL DEFAULT '',
			tokens_count        INT NOT NULL DEFAULT 0,
			chunk_strategy      TEXT NOT NULL DEFAULT '',
			summary_text        TEXT,
			summary_confidence  DOUBLE PRECISION,
			summary_type        TEXT,
			summarization_model TEXT,
			processing_metadata JSONB,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_file_embeddings_repo_path ON file_embeddings (repository_id, file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_file_embeddings_type ON file_embeddings (embedding_type)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// --- Repositories ---

// GetRepositoryByName returns a repository by its unique name.
func (s *PostgresStore) GetRepositoryByName(ctx context.Context, name string) (*domain.Repository, error) {
	query := `SELECT id, name, url, description, created_at FROM repositories WHERE name = $1`

	var r domain.Repository
	err := s.db.QueryRowContext(ctx, query, name).Scan(&r.ID, &r.Name, &r.URL, &r.Description, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRepositoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return &r, nil
}

// ListRepositories returns all repositories, newest first.
func (s *PostgresStore) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	query := `SELECT id, name, url, description, created_at FROM repositories ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []domain.Repository
	for rows.Next() {
		var r domain.Repository
		if err := rows.Scan(&r.ID, &r.Name, &r.URL, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// upsertRepositoryTx lazily creates the repository row inside a transaction
// and returns its id. An existing row keeps its name but refreshes url and
// description when non-empty values are supplied.
func upsertRepositoryTx(ctx context.Context, tx *sql.Tx, name, url, description string) (string, error) {
	query := `
		INSERT INTO repositories (name, url, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			url = CASE WHEN EXCLUDED.url <> '' THEN EXCLUDED.url ELSE repositories.url END,
			description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE repositories.description END
		RETURNING id`

	var id string
	if err := tx.QueryRowContext(ctx, query, name, url, description).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert repository: %w", err)
	}
	return id, nil
}
