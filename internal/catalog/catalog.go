// Package catalog reads lote whitelists from a PostgreSQL table.
//
// It is an alternative to the Sioma API for deployments that keep their own
// copy of the finca/lote catalog. Store satisfies core.LoteSource.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table the store reads from.
const Schema = `CREATE TABLE IF NOT EXISTS lotes (
	id       BIGSERIAL PRIMARY KEY,
	finca_id TEXT NOT NULL,
	nombre   TEXT NOT NULL,
	UNIQUE (finca_id, nombre)
)`

const (
	lotesByFinca = `SELECT nombre FROM lotes WHERE finca_id = $1 AND btrim(nombre) <> '' ORDER BY nombre`
	allLotes     = `SELECT DISTINCT nombre FROM lotes WHERE btrim(nombre) <> '' ORDER BY nombre`
)

// Querier is the subset of *pgxpool.Pool the store uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PoolConfig holds pool settings applied on top of the connection string.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store looks up lote names by finca.
type Store struct {
	q Querier
}

// New wraps an existing pool or connection.
func New(q Querier) *Store {
	return &Store{q: q}
}

// Connect opens and pings a pool for cfg.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the lotes table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create lotes table: %w", err)
	}
	return nil
}

// Lotes returns the lote names of a finca, sorted. An empty finca id lists
// every distinct lote name.
func (s *Store) Lotes(ctx context.Context, fincaID string) ([]string, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if fincaID == "" {
		rows, err = s.q.Query(ctx, allLotes)
	} else {
		rows, err = s.q.Query(ctx, lotesByFinca, fincaID)
	}
	if err != nil {
		return nil, fmt.Errorf("query lotes: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan lotes: %w", err)
	}
	return names, nil
}

// Add inserts lote names for a finca, ignoring ones already present.
func (s *Store) Add(ctx context.Context, fincaID string, nombres ...string) error {
	for _, n := range nombres {
		_, err := s.q.Exec(ctx,
			`INSERT INTO lotes (finca_id, nombre) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			fincaID, n)
		if err != nil {
			return fmt.Errorf("insert lote %q: %w", n, err)
		}
	}
	return nil
}
