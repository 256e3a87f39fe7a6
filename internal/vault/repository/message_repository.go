package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/cipher-calc/backend/internal/common/db"
	"github.com/cipher-calc/backend/internal/vault/domain"
)

var ErrMessageNotFound = pgx.ErrNoRows

type MessageRepository interface {
	Create(ctx context.Context, msg domain.Message) error
	ListForUser(ctx context.Context, userID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, id string, userID string) (bool, error)
	Delete(ctx context.Context, id string, userID string) (bool, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, msg domain.Message) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO messages (id, sender_name, sender_email, subject, content, is_read, created_at, user_id)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, FALSE, $6, $7)`,
		msg.ID,
		msg.SenderName,
		msg.SenderEmail,
		msg.Subject,
		msg.Content,
		msg.CreatedAt,
		msg.UserID,
	)
	if err != nil {
		return db.HandleExecError(err, "create message", start)
	}
	db.MeasureQueryDuration("create message", start)
	return nil
}

func (r *PgMessageRepository) ListForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, sender_name, sender_email, COALESCE(subject, ''), content, is_read, created_at, user_id
		 FROM messages
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, db.HandleExecError(err, "list messages", start)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderName,
			&msg.SenderEmail,
			&msg.Subject,
			&msg.Content,
			&msg.IsRead,
			&msg.CreatedAt,
			&msg.UserID,
		); err != nil {
			return nil, db.HandleExecError(err, "scan message", start)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleExecError(err, "list messages", start)
	}
	db.MeasureQueryDuration("list messages", start)
	return messages, nil
}

func (r *PgMessageRepository) MarkRead(ctx context.Context, id string, userID string) (bool, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`UPDATE messages SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return false, db.HandleExecError(err, "mark message read", start)
	}
	db.MeasureQueryDuration("mark message read", start)
	return res.RowsAffected() == 1, nil
}

func (r *PgMessageRepository) Delete(ctx context.Context, id string, userID string) (bool, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM messages WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return false, db.HandleExecError(err, "delete message", start)
	}
	db.MeasureQueryDuration("delete message", start)
	return res.RowsAffected() == 1, nil
}
