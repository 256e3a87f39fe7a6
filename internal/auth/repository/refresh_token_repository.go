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
	ErrRefreshTokenNotFound = pgx.ErrNoRows
	ErrDuplicateJTI         = errors.New("refresh token jti already exists")
)

// RefreshTokenLedger is the durable record of refresh token issuance and
// revocation. Every redemption consults it; nothing is cached in memory, so
// single-use enforcement survives restarts and holds across replicas.
type RefreshTokenLedger interface {
	Persist(ctx context.Context, record domain.RefreshTokenRecord) error
	FindByJTI(ctx context.Context, jti string) (domain.RefreshTokenRecord, error)
	// Revoke flips the revoked flag. It reports true only for the call that
	// performed the flip, so concurrent redemptions of one token elect
	// exactly one winner.
	Revoke(ctx context.Context, jti string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type PgRefreshTokenLedger struct {
	pool *pgxpool.Pool
}

func NewPgRefreshTokenLedger(pool *pgxpool.Pool) *PgRefreshTokenLedger {
	return &PgRefreshTokenLedger{pool: pool}
}

func (r *PgRefreshTokenLedger) Persist(ctx context.Context, record domain.RefreshTokenRecord) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO refresh_tokens (jti, user_id, token_hash, expires_at, revoked, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5)`,
		record.JTI,
		record.UserID,
		record.TokenHash,
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateJTI
		}
		return db.HandleExecError(err, "persist refresh token", start)
	}
	db.MeasureQueryDuration("persist refresh token", start)
	return nil
}

func (r *PgRefreshTokenLedger) FindByJTI(ctx context.Context, jti string) (domain.RefreshTokenRecord, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT jti, user_id, token_hash, expires_at, revoked, created_at
		 FROM refresh_tokens
		 WHERE jti = $1`,
		jti,
	)

	var record domain.RefreshTokenRecord
	err := row.Scan(
		&record.JTI,
		&record.UserID,
		&record.TokenHash,
		&record.ExpiresAt,
		&record.Revoked,
		&record.CreatedAt,
	)
	if err := db.HandleQueryError(err, ErrRefreshTokenNotFound, "find refresh token", start); err != nil {
		return domain.RefreshTokenRecord{}, err
	}
	return record, nil
}

// Revoke is a single conditional UPDATE: the WHERE clause on revoked acts as
// the compare half of a compare-and-set, so only one concurrent caller ever
// observes rows affected == 1.
func (r *PgRefreshTokenLedger) Revoke(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`UPDATE refresh_tokens SET revoked = TRUE
		 WHERE jti = $1 AND revoked = FALSE`,
		jti,
	)
	if err != nil {
		return false, db.HandleExecError(err, "revoke refresh token", start)
	}
	db.MeasureQueryDuration("revoke refresh token", start)
	return res.RowsAffected() == 1, nil
}

func (r *PgRefreshTokenLedger) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`UPDATE refresh_tokens SET revoked = TRUE
		 WHERE user_id = $1 AND revoked = FALSE`,
		userID,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "revoke all refresh tokens", start)
	}
	db.MeasureQueryDuration("revoke all refresh tokens", start)
	return res.RowsAffected(), nil
}

func (r *PgRefreshTokenLedger) DeleteExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < NOW()`,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete expired refresh tokens", start)
	}
	db.MeasureQueryDuration("delete expired refresh tokens", start)
	return res.RowsAffected(), nil
}
