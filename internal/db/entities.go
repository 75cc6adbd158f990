package db

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// VerificationState tracks a member's progress through the join challenge.
type VerificationState string

// Standing tracks a member's moderation status within the guild.
type Standing string

const (
	VerificationUnverified VerificationState = "unverified"
	VerificationChallenged VerificationState = "challenged"
	VerificationVerified   VerificationState = "verified"

	StandingActive Standing = "active"
	StandingMuted  Standing = "muted"
	StandingBanned Standing = "banned"
)

type (
	// Member is the per-user moderation and gamification profile.
	// Profiles are never deleted; a ban is a standing, not a removal.
	Member struct {
		UserID        int64             `db:"user_id"`
		Username      string            `db:"username"`
		FirstName     string            `db:"first_name"`
		Points        int               `db:"points"`
		Level         int               `db:"level"`
		Warnings      int               `db:"warnings"`
		Verification  VerificationState `db:"verification"`
		Standing      Standing          `db:"standing"`
		MuteUntil     sql.NullTime      `db:"mute_until"`
		CaptchaAnswer sql.NullInt64     `db:"captcha_answer"`
		CaptchaMsgID  sql.NullInt64     `db:"captcha_message_id"`
		CaptchaToken  string            `db:"captcha_token"`
		JoinedAt      time.Time         `db:"joined_at"`
		LastActiveAt  time.Time         `db:"last_active_at"`
		MessagesCount int               `db:"messages_count"`
	}

	// PendingMessage holds a member's pre-verification message until the
	// challenge is passed or the horizon expires. At most one per member.
	PendingMessage struct {
		UserID      int64     `db:"user_id"`
		Username    string    `db:"username"`
		FirstName   string    `db:"first_name"`
		MessageText string    `db:"message_text"`
		MessageType string    `db:"message_type"`
		ChatID      int64     `db:"chat_id"`
		CreatedAt   time.Time `db:"created_at"`
		ExpiresAt   time.Time `db:"expires_at"`
	}

	// ModerationLog is an append-only audit record. AdminID 0 marks a
	// system-initiated action.
	ModerationLog struct {
		ID        int64      `db:"id"`
		UserID    int64      `db:"user_id"`
		AdminID   int64      `db:"admin_id"`
		Action    string     `db:"action"`
		Reason    string     `db:"reason"`
		Details   LogDetails `db:"details"`
		CreatedAt time.Time  `db:"created_at"`
	}

	LogDetails map[string]any
)

// Audit action kinds.
const (
	ActionWarning       = "warning"
	ActionUnwarn        = "unwarn"
	ActionMute          = "mute"
	ActionUnmute        = "unmute"
	ActionBan           = "ban"
	ActionAddPoints     = "addpoints"
	ActionSetLevel      = "setlevel"
	ActionCaptchaPassed = "captcha_passed"
)

func NewMember(userID int64, username, firstName string, now time.Time) *Member {
	return &Member{
		UserID:       userID,
		Username:     username,
		FirstName:    firstName,
		Points:       0,
		Level:        1,
		Verification: VerificationUnverified,
		Standing:     StandingActive,
		JoinedAt:     now,
		LastActiveAt: now,
	}
}

// DisplayHandle returns the member's @username when set, first name otherwise.
func (m *Member) DisplayHandle() string {
	if m.Username != "" {
		return m.Username
	}
	return m.FirstName
}

// IsMuted reports whether the stored standing says muted; mute_until may
// already be in the past, expiry reconciliation is the sweep's job.
func (m *Member) IsMuted() bool {
	return m.Standing == StandingMuted
}

func (m *Member) IsBanned() bool {
	return m.Standing == StandingBanned
}

func (m *Member) IsVerified() bool {
	return m.Verification == VerificationVerified
}

func (d LogDetails) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (d *LogDetails) Scan(v any) error {
	if v == nil {
		*d = LogDetails{}
		return nil
	}
	switch data := v.(type) {
	case string:
		return json.Unmarshal([]byte(data), d)
	case []byte:
		return json.Unmarshal(data, d)
	default:
		return fmt.Errorf("cannot scan type %T into LogDetails", v)
	}
}
