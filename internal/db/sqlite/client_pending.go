package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/provnuk88/Web3bot/internal/db"
)

// SavePendingMessage stores a member's deferred message, retiring any
// previous one (at most one live entry per member).
func (c *sqliteClient) SavePendingMessage(ctx context.Context, msg *db.PendingMessage) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO pending_messages (
			user_id, username, first_name, message_text, message_type, chat_id, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			message_text = excluded.message_text,
			message_type = excluded.message_type,
			chat_id = excluded.chat_id,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`
	_, err := c.db.ExecContext(ctx, query,
		msg.UserID,
		msg.Username,
		msg.FirstName,
		msg.MessageText,
		msg.MessageType,
		msg.ChatID,
		msg.CreatedAt,
		msg.ExpiresAt,
	)
	return err
}

func (c *sqliteClient) GetPendingMessage(ctx context.Context, userID int64) (*db.PendingMessage, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	var msg db.PendingMessage
	err := c.db.GetContext(ctx, &msg, `
		SELECT user_id, username, first_name, message_text, message_type, chat_id, created_at, expires_at
		FROM pending_messages
		WHERE user_id = ?
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (c *sqliteClient) DeletePendingMessage(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `DELETE FROM pending_messages WHERE user_id = ?`, userID)
	return err
}

func (c *sqliteClient) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	res, err := c.db.ExecContext(ctx, `DELETE FROM pending_messages WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
