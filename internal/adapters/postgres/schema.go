package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS rental (
		address TEXT PRIMARY KEY,
		price   TEXT,
		rooms   TEXT,
		area    TEXT,
		link    TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sale (
		address       TEXT PRIMARY KEY,
		property_type TEXT,
		price         TEXT,
		rooms         TEXT,
		area          TEXT,
		link          TEXT
	)`,
}

// EnsureSchema создает таблицы rental и sale, если их еще нет
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
