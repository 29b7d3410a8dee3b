package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserRow struct {
	ID           int64
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	LastSeen     *time.Time
}

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Load returns the user by name, or nil when no such user exists.
func (r *UserRepo) Load(ctx context.Context, name string) (*UserRow, error) {
	row := &UserRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, password_hash, created_at, last_seen
		 FROM users WHERE name = $1`, name,
	).Scan(&row.ID, &row.Name, &row.PasswordHash, &row.CreatedAt, &row.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *UserRepo) Create(ctx context.Context, name, rawPassword string) (*UserRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	row := &UserRow{Name: name, PasswordHash: string(hash)}
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (name, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		row.Name, row.PasswordHash,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *UserRepo) ValidatePassword(hash string, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

func (r *UserRepo) TouchLastSeen(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET last_seen = NOW() WHERE name = $1`, name)
	return err
}
