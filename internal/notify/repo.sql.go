package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists notifications and per-recipient read state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the notification and one read-state row per recipient in a
// single transaction.
func (r *Repository) Create(ctx context.Context, n Notification, recipientIDs []int64) (Notification, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Notification{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `INSERT INTO notifications (title, message, type, product_id, request_id, sender_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING id, created_at`,
		n.Title, n.Message, n.Type, n.ProductID, n.RequestID, n.SenderID).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return Notification{}, err
	}
	for _, userID := range recipientIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO notification_reads (notification_id, user_id, read_at) VALUES ($1,$2,NULL)`, n.ID, userID); err != nil {
			return Notification{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// ListForUser returns the user's notifications newest first with their
// personal read flag.
func (r *Repository) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT n.id, n.title, n.message, n.type, n.product_id, n.request_id, n.sender_id, n.created_at, nr.read_at IS NOT NULL
FROM notifications n
JOIN notification_reads nr ON nr.notification_id = n.id
WHERE nr.user_id = $1
ORDER BY n.created_at DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.ProductID, &n.RequestID, &n.SenderID, &n.CreatedAt, &n.Read); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead stamps the viewer's read state. Marking twice is a no-op.
func (r *Repository) MarkRead(ctx context.Context, notificationID, userID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notification_reads SET read_at = COALESCE(read_at, NOW()) WHERE notification_id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UnreadCount counts the user's unread notifications.
func (r *Repository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_reads WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
