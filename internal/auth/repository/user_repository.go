package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/cipher-calc/backend/internal/auth/domain"
	"github.com/cipher-calc/backend/internal/common/db"
)

var (
	ErrUserNotFound       = pgx.ErrNoRows
	ErrEmailAlreadyExists = errors.New("email already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id domain.UserID) (domain.User, error)
	FindBySecretCode(ctx context.Context, code string) (domain.User, error)
}

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, email, password_hash, secret_code, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		string(user.ID),
		user.Email,
		user.PasswordHash,
		user.SecretCode,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailAlreadyExists
		}
		return db.HandleExecError(err, "create user", start)
	}
	db.MeasureQueryDuration("create user", start)
	return nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, email, password_hash, COALESCE(secret_code, ''), created_at
		 FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row, "find user by email", start)
}

func (r *PgUserRepository) FindByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, email, password_hash, COALESCE(secret_code, ''), created_at
		 FROM users WHERE id = $1`,
		string(id),
	)
	return scanUser(row, "find user by id", start)
}

func (r *PgUserRepository) FindBySecretCode(ctx context.Context, code string) (domain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, email, password_hash, COALESCE(secret_code, ''), created_at
		 FROM users WHERE secret_code = $1`,
		code,
	)
	return scanUser(row, "find user by secret code", start)
}

func scanUser(row pgx.Row, operation string, start time.Time) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.SecretCode, &user.CreatedAt)
	if err := db.HandleQueryError(err, ErrUserNotFound, operation, start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
