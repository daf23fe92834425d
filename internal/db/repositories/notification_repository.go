// notification_repository.go implements NotificationRepository. Rows are written
// by the fanout (Create) and mutated only through the mark-read operations. The
// partial unique index on dedupe_key makes duplicate reminder inserts a no-op.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/db/models"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db sqlx.ExtContext
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db sqlx.ExtContext) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification. When the notification carries a dedupe key and
// a row with that key already exists, the insert is silently skipped and the
// second return value is false.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications
			(recipient_id, type, priority, title, message, action_url, metadata,
			 expires_at, related_assignment_id, related_goal_id, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
		RETURNING id, created_at
	`

	metadata := n.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	err := r.db.QueryRowxContext(ctx, query,
		n.RecipientID, n.Type, n.Priority, n.Title, n.Message, n.ActionURL, metadata,
		n.ExpiresAt, n.RelatedAssignmentID, n.RelatedGoalID, n.DedupeKey).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict on the dedupe key: nothing inserted, nothing returned.
			return false, nil
		}
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	return true, nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `
		SELECT id, recipient_id, type, priority, title, message, action_url, metadata,
		       is_read, read_at, expires_at, related_assignment_id, related_goal_id,
		       dedupe_key, created_at
		FROM notifications
		WHERE id = $1
	`

	n := &models.Notification{}
	err := sqlx.GetContext(ctx, r.db, n, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// ListByRecipient retrieves a recipient's notifications, newest first, skipping
// expired rows. unreadOnly narrows the result to unread notifications.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	query := `
		SELECT id, recipient_id, type, priority, title, message, action_url, metadata,
		       is_read, read_at, expires_at, related_assignment_id, related_goal_id,
		       dedupe_key, created_at
		FROM notifications
		WHERE recipient_id = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
		  AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	notifications := make([]*models.Notification, 0)
	if err := sqlx.SelectContext(ctx, r.db, &notifications, query, recipientID, unreadOnly, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// CountUnread returns the number of unread, unexpired notifications for a recipient
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
		  AND is_read = FALSE
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	if err := sqlx.GetContext(ctx, r.db, &count, query, recipientID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead marks a single notification as read, recording the read timestamp.
// Already-read rows keep their original read_at.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND is_read = FALSE
	`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

// MarkAllRead marks all of a recipient's unread notifications as read and
// returns how many rows changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE recipient_id = $1 AND is_read = FALSE
	`

	res, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected, nil
}

// DeleteExpired removes notifications past their expiry. Intended for a
// periodic cleanup pass; listing already filters expired rows.
func (r *NotificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= NOW()`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected, nil
}
