package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/provnuk88/Web3bot/internal/classify"
	"github.com/provnuk88/Web3bot/internal/config"
	"github.com/provnuk88/Web3bot/internal/db"
	"github.com/provnuk88/Web3bot/internal/progression"
)

func probationConfig(days int) *config.Config {
	cfg := &config.Config{}
	cfg.Moderation.LinkRestrictionDays = days
	return cfg
}

func TestLinkRestricted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := &Moderator{config: probationConfig(14)}

	for _, tc := range []struct {
		name       string
		joinedAgo  time.Duration
		restricted bool
		daysLeft   int
	}{
		{"just joined", 0, true, 14},
		{"one week in", 7 * 24 * time.Hour, true, 7},
		{"ten days in", 10 * 24 * time.Hour, true, 4},
		{"almost through", 13*24*time.Hour + 12*time.Hour, true, 1},
		{"exactly at the window", 14 * 24 * time.Hour, false, 0},
		{"long standing member", 90 * 24 * time.Hour, false, 0},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			member := &db.Member{JoinedAt: now.Add(-tc.joinedAgo)}
			restricted, daysLeft := m.linkRestricted(member, now)
			if restricted != tc.restricted || daysLeft != tc.daysLeft {
				t.Errorf("got (%v, %d), want (%v, %d)", restricted, daysLeft, tc.restricted, tc.daysLeft)
			}
		})
	}
}

type accrualFakeStore struct {
	member  *db.Member
	saved   chan db.Member
	touched chan int64
}

func newAccrualFakeStore(member *db.Member) *accrualFakeStore {
	return &accrualFakeStore{
		member:  member,
		saved:   make(chan db.Member, 4),
		touched: make(chan int64, 4),
	}
}

func (f *accrualFakeStore) FindMember(_ context.Context, userID int64) (*db.Member, error) {
	if f.member == nil || f.member.UserID != userID {
		return nil, db.ErrNotFound
	}
	copied := *f.member
	return &copied, nil
}

func (f *accrualFakeStore) TouchActivity(_ context.Context, userID int64, _ time.Time) error {
	f.touched <- userID
	return nil
}

func (f *accrualFakeStore) SaveMember(_ context.Context, member *db.Member) error {
	f.saved <- *member
	return nil
}

func TestAdminMessageStillAccrues(t *testing.T) {
	t.Parallel()

	member := db.NewMember(42, "alice", "Alice", time.Now())
	member.Verification = db.VerificationVerified
	store := newAccrualFakeStore(member)

	cfg := &config.Config{}
	cfg.Points.Message = 2
	cfg.Points.MinWordCount = 3
	cfg.Moderation.StoreTimeout = time.Second

	m := &Moderator{
		store:      store,
		classifier: classify.NewClassifier(nil),
		admins: NewAdminCache(func(context.Context, int64, int64) (bool, error) {
			return true, nil
		}, time.Minute),
		points: progression.NewService(store),
		config: cfg,
	}

	u := &api.Update{Message: &api.Message{Text: "five clean words of substance"}}
	chat := &api.Chat{ID: -100, Type: "supergroup"}
	user := &api.User{ID: 42}

	proceed, err := m.Handle(context.Background(), u, chat, user)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !proceed {
		t.Fatal("admin message was consumed")
	}

	select {
	case saved := <-store.saved:
		if saved.Points != 2 {
			t.Errorf("points = %d, want 2", saved.Points)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("admin message accrued no points")
	}
	select {
	case touched := <-store.touched:
		if touched != 42 {
			t.Errorf("touched user %d, want 42", touched)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("admin message bumped no activity")
	}
}

func TestFormatMemberStats(t *testing.T) {
	t.Parallel()

	member := &db.Member{
		UserID:        42,
		Username:      "alice",
		Points:        120,
		Level:         2,
		Warnings:      1,
		MessagesCount: 60,
	}
	out := formatMemberStats(member)

	for _, want := range []string{"@alice", "Level: 2", "Points: 120", "Warnings: 1", "Messages: 60"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
	// 130 points more to reach level 3 at 250.
	if !strings.Contains(out, "Next level in: 130") {
		t.Errorf("stats output missing next level distance:\n%s", out)
	}
}

func TestFormatMemberStatsAtTopLevel(t *testing.T) {
	t.Parallel()

	member := &db.Member{UserID: 1, Username: "max", Points: 9000, Level: 8}
	out := formatMemberStats(member)
	if strings.Contains(out, "Next level") {
		t.Errorf("top level should not advertise a next level:\n%s", out)
	}
}

func TestReasonFrom(t *testing.T) {
	t.Parallel()
	if got := reasonFrom(nil, "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	if got := reasonFrom([]string{"off", "topic", "spam"}, "fallback"); got != "off topic spam" {
		t.Errorf("got %q", got)
	}
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()
	if v, ok := parseIntArg([]string{"-10", "extra"}); !ok || v != -10 {
		t.Errorf("got (%d, %v)", v, ok)
	}
	if _, ok := parseIntArg([]string{"ten"}); ok {
		t.Error("accepted non-numeric argument")
	}
	if _, ok := parseIntArg(nil); ok {
		t.Error("accepted missing argument")
	}
}
