package sqlite

import (
	"context"
	"time"

	"github.com/provnuk88/Web3bot/internal/db"
)

func (c *sqliteClient) AppendLog(ctx context.Context, entry *db.ModerationLog) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO moderation_log (user_id, admin_id, action, reason, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.UserID, entry.AdminID, entry.Action, entry.Reason, entry.Details, entry.CreatedAt)
	return err
}

func (c *sqliteClient) RecentLogs(ctx context.Context, limit int) ([]*db.ModerationLog, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	var entries []*db.ModerationLog
	err := c.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, admin_id, action, reason, details, created_at
		FROM moderation_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	return entries, err
}

func (c *sqliteClient) GetStats(ctx context.Context, since time.Time) (*db.Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	stats := &db.Stats{}
	err := c.db.GetContext(ctx, stats, `
		SELECT
			COUNT(*) AS totalusers,
			COALESCE(SUM(CASE WHEN last_active_at >= ? THEN 1 ELSE 0 END), 0) AS activetoday,
			COALESCE(SUM(CASE WHEN standing = ? THEN 1 ELSE 0 END), 0) AS mutedusers,
			COALESCE(SUM(CASE WHEN standing = ? THEN 1 ELSE 0 END), 0) AS bannedusers
		FROM members
	`, since, db.StandingMuted, db.StandingBanned)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *sqliteClient) TopMembers(ctx context.Context, limit int) ([]*db.Member, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	var members []*db.Member
	err := c.db.SelectContext(ctx, &members,
		`SELECT `+memberColumns+` FROM members WHERE standing != ? ORDER BY points DESC LIMIT ?`,
		db.StandingBanned, limit)
	return members, err
}

func (c *sqliteClient) SearchMembers(ctx context.Context, query string, limit int) ([]*db.Member, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	pattern := "%" + query + "%"
	var members []*db.Member
	err := c.db.SelectContext(ctx, &members,
		`SELECT `+memberColumns+` FROM members
		 WHERE username LIKE ? COLLATE NOCASE OR first_name LIKE ? COLLATE NOCASE
		 LIMIT ?`,
		pattern, pattern, limit)
	return members, err
}
