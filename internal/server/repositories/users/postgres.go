package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avezhnov/ctfdeck/internal/common"
	"github.com/avezhnov/ctfdeck/internal/dbx"
	"github.com/avezhnov/ctfdeck/internal/server/models"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, type, is_active, email_verified, last_active, created_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(s interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.Type, &u.IsActive, &u.EmailVerified, &u.LastActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new account with a freshly generated ID. Unique-index
// violations on the lowercased username or email surface as
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, email, first_name, last_name, password_hash, type, is_active, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	user.ID = uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Type, user.IsActive, user.EmailVerified).
		Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// FindByUsernameOrEmail resolves a login identifier case-insensitively.
// The lower() predicates are served by the expression indexes created in
// the migrations. LIMIT 2 is enough to detect the integrity violation
// without scanning further.
func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		LIMIT 2
	`
	rows, err := r.db.QueryContext(ctx, query, identifier)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var user *models.User
	for rows.Next() {
		if user != nil {
			return nil, common.ErrDuplicateAccount
		}
		user, err = scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if user == nil {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

// FindByEmail returns the account whose email equals the given address
// case-insensitively, or common.ErrorNotFound. The lower(email) unique index
// guarantees at most one row.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetByID returns the account with the given ID, or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// Activate marks the account active with a verified email address.
func (r *PostgresRepository) Activate(ctx context.Context, id string) error {
	query := `
		UPDATE users SET is_active = true, email_verified = true
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $2
		WHERE id = $1
	`
	return r.exec(ctx, query, id, passwordHash)
}

// UpdateLastActive stamps the account's last-activity time.
func (r *PostgresRepository) UpdateLastActive(ctx context.Context, id string) error {
	query := `
		UPDATE users SET last_active = now()
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

// UpdateProfile changes the editable profile fields.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, firstName, lastName string) error {
	query := `
		UPDATE users SET first_name = $2, last_name = $3
		WHERE id = $1
	`
	return r.exec(ctx, query, id, firstName, lastName)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
