package db

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a looked-up member or record does not exist.
var ErrNotFound = errors.New("not found")

// Stats is the aggregate snapshot served by the admin panel.
type Stats struct {
	TotalUsers  int `json:"totalUsers"`
	ActiveToday int `json:"activeToday"`
	MutedUsers  int `json:"mutedUsers"`
	BannedUsers int `json:"bannedUsers"`
}

type Client interface {
	Close() error

	FindMember(ctx context.Context, userID int64) (*Member, error)
	FindMemberByUsername(ctx context.Context, username string) (*Member, error)
	UpsertMember(ctx context.Context, member *Member) error
	SaveMember(ctx context.Context, member *Member) error
	TouchActivity(ctx context.Context, userID int64, at time.Time) error

	SavePendingMessage(ctx context.Context, msg *PendingMessage) error
	GetPendingMessage(ctx context.Context, userID int64) (*PendingMessage, error)
	DeletePendingMessage(ctx context.Context, userID int64) error
	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)

	ReconcileExpiredMutes(ctx context.Context, now time.Time) (int64, error)

	AppendLog(ctx context.Context, entry *ModerationLog) error
	RecentLogs(ctx context.Context, limit int) ([]*ModerationLog, error)

	GetStats(ctx context.Context, since time.Time) (*Stats, error)
	TopMembers(ctx context.Context, limit int) ([]*Member, error)
	SearchMembers(ctx context.Context, query string, limit int) ([]*Member, error)
}
