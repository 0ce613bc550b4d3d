package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/dbx"
	"github.com/dmitrijs2005/storekeeper/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore keeps one namespace in the shared kv_entries table.
// Expired rows are filtered on read and treated as absent on write.
type PostgresStore struct {
	db        *sql.DB
	namespace string
	now       func() time.Time
}

func NewPostgresStore(db *sql.DB, namespace string) *PostgresStore {
	return &PostgresStore{db: db, namespace: namespace, now: time.Now}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresNamespaces opens the database, migrates it and returns the
// three namespaces sharing one pool.
func NewPostgresNamespaces(ctx context.Context, dsn string) (*Namespaces, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return postgresNamespaces(db), nil
}

func postgresNamespaces(db *sql.DB) *Namespaces {
	return &Namespaces{
		Secrets:  NewPostgresStore(db, SecretsNamespace),
		Sessions: NewPostgresStore(db, SessionsNamespace),
		Audit:    NewPostgresStore(db, AuditNamespace),
		closer:   db.Close,
	}
}

func (s *PostgresStore) expiresAt(ttl time.Duration) sql.NullTime {
	if ttl <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: s.now().Add(ttl).UTC(), Valid: true}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM kv_entries
		WHERE namespace=$1 AND key=$2 AND (expires_at IS NULL OR expires_at > $3)`

	var value string
	err := s.db.QueryRowContext(ctx, query, s.namespace, key, s.now().UTC()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return value, nil
}

const upsertQuery = `
		INSERT INTO kv_entries (namespace, key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

func (s *PostgresStore) put(ctx context.Context, db dbx.DBTX, key, value string, ttl time.Duration) error {
	if _, err := db.ExecContext(ctx, upsertQuery, s.namespace, key, value, s.expiresAt(ttl)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.put(ctx, s.db, key, value, ttl)
}

// PutIfAbsent inserts, or replaces a row only when the existing one expired.
func (s *PostgresStore) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO kv_entries (namespace, key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
			WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= $5`

	return dbx.ExecAffectsOne(ctx, s.db, query, s.namespace, key, value, s.expiresAt(ttl), s.now().UTC())
}

func (s *PostgresStore) PutMany(ctx context.Context, items []Item, ttl time.Duration) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, it := range items {
			if err := s.put(ctx, tx, it.Key, it.Value, ttl); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace=$1 AND key=$2`, s.namespace, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	query := `SELECT key FROM kv_entries
		WHERE namespace=$1 AND key LIKE $2 ESCAPE '\' AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY key`
	args := []any{s.namespace, escapeLike(prefix) + "%", s.now().UTC()}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
