package ratings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ratingPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore persists verdicts in a ratings table, one row per book.
type PostgresStore struct {
	pool ratingPool
}

// NewPostgresStore connects a pool against the DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("ratings.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool ratingPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// Set upserts the verdict and returns the total number of rated books.
func (s *PostgresStore) Set(ctx context.Context, bookID string, rating Rating) (int, error) {
	if bookID == "" {
		return 0, fmt.Errorf("book id is required")
	}
	if err := rating.Validate(); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO ratings (book_id, rating, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (book_id) DO UPDATE
		SET rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at;
	`
	if _, err := s.pool.Exec(ctx, query, bookID, string(rating)); err != nil {
		return 0, fmt.Errorf("upsert rating: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM ratings;`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return total, nil
}

// All returns every stored verdict.
func (s *PostgresStore) All(ctx context.Context) (map[string]Rating, error) {
	rows, err := s.pool.Query(ctx, `SELECT book_id, rating FROM ratings;`)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Rating)
	for rows.Next() {
		var bookID, rating string
		if err := rows.Scan(&bookID, &rating); err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		out[bookID] = Rating(rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating rows: %w", err)
	}
	return out, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
