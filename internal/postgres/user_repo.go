package postgres

import (
	"context"

	"github.com/campus-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	query := `SELECT id, username, email, role, avatar_url FROM users WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.AvatarURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	query := `SELECT id, username, email, role, avatar_url FROM users WHERE email=$1`
	err := r.db.QueryRow(ctx, query, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.AvatarURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ResolveByUsername returns the single user with the given username.
// Usernames are not constrained unique in the legacy schema, so a
// duplicate resolves to ErrAmbiguousUser rather than an arbitrary row.
func (r *UserRepository) ResolveByUsername(ctx context.Context, username string) (*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, email, role, avatar_url FROM users WHERE username=$1 LIMIT 2`,
		username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.AvatarURL); err != nil {
			return nil, err
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, domain.ErrUserNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, domain.ErrAmbiguousUser
	}
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, email, role, avatar_url FROM users ORDER BY username, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.AvatarURL); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
