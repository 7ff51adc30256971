package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// PostgresStore persists identities in the user_credentials table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects to Postgres through the pgx stdlib driver and verifies the
// connection.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, identity domain.Identity) error {
	query :=
		`INSERT INTO user_credentials (user_id, email, password_hash)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id)
		 DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash
		 `

	_, err := s.db.ExecContext(ctx, query, identity.UserID, identity.Email, identity.PasswordHash)
	if err != nil {
		return store.NewError(store.Credential, fmt.Sprintf("upsert %s", identity.UserID), err)
	}
	return nil
}

func (s *PostgresStore) FetchOne(ctx context.Context, userID string) (domain.Identity, error) {
	query :=
		`SELECT user_id, email, password_hash FROM user_credentials
		 WHERE user_id = $1
		 `

	return s.fetch(ctx, query, userID)
}

func (s *PostgresStore) FetchByEmail(ctx context.Context, email string) (domain.Identity, error) {
	query :=
		`SELECT user_id, email, password_hash FROM user_credentials
		 WHERE email = $1
		 `

	return s.fetch(ctx, query, email)
}

func (s *PostgresStore) fetch(ctx context.Context, query string, arg any) (domain.Identity, error) {
	var identity domain.Identity
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&identity.UserID, &identity.Email, &identity.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Identity{}, domain.ErrNotFound
		}
		return domain.Identity{}, store.NewError(store.Credential, "fetch", err)
	}
	return identity, nil
}

func (s *PostgresStore) FetchAll(ctx context.Context) ([]domain.Identity, error) {
	query :=
		`SELECT user_id, email, password_hash FROM user_credentials
		 ORDER BY user_id
		 `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, store.NewError(store.Credential, "fetch all", err)
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(&identity.UserID, &identity.Email, &identity.PasswordHash); err != nil {
			return nil, store.NewError(store.Credential, "scan row", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewError(store.Credential, "iterate rows", err)
	}
	return identities, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	query :=
		`DELETE FROM user_credentials
		 WHERE user_id = $1
		 `

	_, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return store.NewError(store.Credential, fmt.Sprintf("delete %s", userID), err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, userID string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM user_credentials WHERE user_id = $1)
		 `

	var exists bool
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&exists)
	if err != nil {
		return false, store.NewError(store.Credential, fmt.Sprintf("exists %s", userID), err)
	}
	return exists, nil
}
