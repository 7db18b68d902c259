package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailnight/internal/model"
)

type NotificationLogRepository struct {
	db *pgxpool.Pool
}

func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Insert records one delivery. A second insert for the same email and user
// is a no-op, so redelivered events are harmless.
func (r *NotificationLogRepository) Insert(ctx context.Context, log *model.NotificationLog) error {
	query := `
        INSERT INTO notifications_log (user_id, email_id, message)
        VALUES ($1, $2, $3)
        ON CONFLICT (email_id, user_id) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query, log.UserID, log.EmailID, log.Message)
	return translate(err)
}

func (r *NotificationLogRepository) ListByUser(ctx context.Context, userID, limit int) ([]model.NotificationLog, error) {
	query := `
        SELECT id, user_id, email_id, message, created_at
        FROM notifications_log
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.NotificationLog{}
	for rows.Next() {
		var n model.NotificationLog
		if err := rows.Scan(&n.ID, &n.UserID, &n.EmailID, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
