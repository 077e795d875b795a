package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists state to the conversation_states table.
type PGStore struct {
	db pgQuerier
}

// NewPGStore accepts a *pgxpool.Pool or anything with the same query surface.
func NewPGStore(db pgQuerier) *PGStore {
	if db == nil {
		panic("state: pgx pool cannot be nil")
	}
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) Load(ctx context.Context, id string) (*State, error) {
	var (
		doc     []byte
		version int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT state, version
		FROM conversation_states
		WHERE id = $1
	`, id).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load %s: %w", ErrUnavailable, id, err)
	}

	var st State
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("state: decode %s: %w", id, err)
	}
	st.Version = version
	return &st, nil
}

func (s *PGStore) Save(ctx context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return errors.New("state: id required")
	}
	next := st.Clone()
	next.Version = st.Version + 1
	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", st.ID, err)
	}
	now := time.Now().UTC()

	var tag pgconn.CommandTag
	if st.Version == 0 {
		tag, err = s.db.Exec(ctx, `
			INSERT INTO conversation_states (id, version, mode, exit_reason, state, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			ON CONFLICT (id) DO NOTHING
		`, st.ID, next.Version, string(next.Mode), nullString(string(next.ExitReason)), doc, now)
	} else {
		tag, err = s.db.Exec(ctx, `
			UPDATE conversation_states
			SET version = $2,
			    mode = $3,
			    exit_reason = $4,
			    state = $5,
			    updated_at = $6
			WHERE id = $1 AND version = $7
		`, st.ID, next.Version, string(next.Mode), nullString(string(next.ExitReason)), doc, now, st.Version)
	}
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrUnavailable, st.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	st.Version = next.Version
	return nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
