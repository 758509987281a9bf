// Package store is the PostgreSQL persistence layer for PromptHub. It talks
// to the database directly through pgx rather than through a generated ORM
// client (see DESIGN.md for why entgo.io/ent was dropped), following the
// repository-per-aggregate shape the teacher used around its ent client.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prompthub/prompthub/pkg/apperrors"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so store methods can
// run either standalone or inside a caller-managed transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles every aggregate repository behind the pool they share.
type Store struct {
	pool *pgxpool.Pool

	Projects  *ProjectStore
	Prompts   *PromptStore
	Versions  *VersionStore
	Scenes    *SceneStore
	RefIndex  *RefIndexStore
	CallLogs  *CallLogStore
}

// New builds a Store wired to the given pool.
func New(pool *pgxpool.Pool) *Store {
	s := &Store{pool: pool}
	s.Projects = &ProjectStore{q: pool}
	s.Prompts = &PromptStore{q: pool}
	s.Versions = &VersionStore{q: pool}
	s.Scenes = &SceneStore{q: pool}
	s.RefIndex = &RefIndexStore{q: pool}
	s.CallLogs = &CallLogStore{q: pool}
	return s
}

// BindTx rebinds every sub-store to run against tx instead of the pool, for
// use inside a WithTx callback where multiple repositories must participate
// in one transaction (e.g. publish's version-insert + current_version update).
func (s *Store) BindTx(tx pgx.Tx) {
	s.Projects.q = tx
	s.Prompts.q = tx
	s.Versions.q = tx
	s.Scenes.q = tx
	s.RefIndex.q = tx
	s.CallLogs.q = tx
}

// WithTx runs fn inside a single transaction, rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func wrapNotFound(kind string, err error) error {
	if isNoRows(err) {
		return fmt.Errorf("%s: %w", kind, apperrors.ErrNotFound)
	}
	return err
}

func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return b, nil
}
