package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iamwavecut/tool"

	"github.com/provnuk88/Web3bot/internal/db"
)

const memberColumns = `
	user_id, username, first_name, points, level, warnings, verification,
	standing, mute_until, captcha_answer, captcha_message_id, captcha_token,
	joined_at, last_active_at, messages_count`

func (c *sqliteClient) FindMember(ctx context.Context, userID int64) (*db.Member, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	var member db.Member
	err := c.db.GetContext(ctx, &member,
		`SELECT `+memberColumns+` FROM members WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (c *sqliteClient) FindMemberByUsername(ctx context.Context, username string) (*db.Member, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	var member db.Member
	err := c.db.GetContext(ctx, &member,
		`SELECT `+memberColumns+` FROM members WHERE username = ? COLLATE NOCASE`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// UpsertMember creates the profile if absent and refreshes identity fields
// if present. Concurrent upserts for the same member cannot duplicate rows.
func (c *sqliteClient) UpsertMember(ctx context.Context, member *db.Member) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES (
			:user_id, :username, :first_name, :points, :level, :warnings,
			:verification, :standing, :mute_until, :captcha_answer,
			:captcha_message_id, :captcha_token, :joined_at, :last_active_at,
			:messages_count
		)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_active_at = excluded.last_active_at
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, member))
}

// SaveMember overwrites the whole profile row. Escalation and progression
// do their delta math in process and persist through this full overwrite,
// which keeps a retried write idempotent.
func (c *sqliteClient) SaveMember(ctx context.Context, member *db.Member) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE members SET
			username = :username,
			first_name = :first_name,
			points = :points,
			level = :level,
			warnings = :warnings,
			verification = :verification,
			standing = :standing,
			mute_until = :mute_until,
			captcha_answer = :captcha_answer,
			captcha_message_id = :captcha_message_id,
			captcha_token = :captcha_token,
			joined_at = :joined_at,
			last_active_at = :last_active_at,
			messages_count = :messages_count
		WHERE user_id = :user_id
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, member))
}

// TouchActivity bumps the message counter atomically in the store and
// refreshes last activity.
func (c *sqliteClient) TouchActivity(ctx context.Context, userID int64, at time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.db.ExecContext(ctx,
		`UPDATE members SET messages_count = messages_count + 1, last_active_at = ? WHERE user_id = ?`,
		at, userID)
	return err
}

// ReconcileExpiredMutes flips members whose mute horizon has passed back to
// active standing. Transport-level restrictions expire on their own; this
// only keeps stored profiles from drifting.
func (c *sqliteClient) ReconcileExpiredMutes(ctx context.Context, now time.Time) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	res, err := c.db.ExecContext(ctx,
		`UPDATE members SET standing = ?, mute_until = NULL
		 WHERE standing = ? AND mute_until IS NOT NULL AND mute_until <= ?`,
		db.StandingActive, db.StandingMuted, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
