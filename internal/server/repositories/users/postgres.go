package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE Postgres reports for a UNIQUE conflict.
const uniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX, so it works both
// on *sql.DB and inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.UserName, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, user.UserName)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, refresh_token, created_at
		FROM users
		WHERE username = $1
	`
	user := &models.User{}
	var refreshToken sql.NullString
	err := r.db.QueryRowContext(ctx, query, userName).
		Scan(&user.ID, &user.UserName, &user.PasswordHash, &refreshToken, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.RefreshToken = refreshToken.String
	return user, nil
}

func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, userID string, token string) error {
	query := `
		UPDATE users SET refresh_token = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, nullable(token))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// SwapRefreshToken is a single conditional UPDATE, so two callers presenting
// the same current token can never both succeed.
func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, userID string, current string, next string) (bool, error) {
	query := `
		UPDATE users SET refresh_token = $3
		WHERE id = $1 AND refresh_token = $2
	`
	res, err := r.db.ExecContext(ctx, query, userID, current, nullable(next))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// nullable maps the empty token to SQL NULL.
func nullable(token string) any {
	if token == "" {
		return nil
	}
	return token
}
