package adminpanel

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/provnuk88/Web3bot/internal/db"
	"github.com/provnuk88/Web3bot/internal/progression"
)

const (
	topUsersLimit  = 10
	logsLimit      = 20
	searchLimit    = 10
	minSearchQuery = 2
)

type panelStore interface {
	GetStats(ctx context.Context, since time.Time) (*db.Stats, error)
	TopMembers(ctx context.Context, limit int) ([]*db.Member, error)
	RecentLogs(ctx context.Context, limit int) ([]*db.ModerationLog, error)
	SearchMembers(ctx context.Context, query string, limit int) ([]*db.Member, error)
}

// memberView is the wire shape for member rows, with the level name
// resolved so the page does not need the threshold table.
type memberView struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	Points    int    `json:"points"`
	Level     int    `json:"level"`
	LevelName string `json:"levelName"`
	Warnings  int    `json:"warnings"`
	Standing  string `json:"standing"`
	Messages  int    `json:"messages"`
	JoinedAt  string `json:"joinedAt"`
}

func toMemberView(m *db.Member) memberView {
	return memberView{
		UserID:    m.UserID,
		Username:  m.Username,
		FirstName: m.FirstName,
		Points:    m.Points,
		Level:     m.Level,
		LevelName: progression.LevelName(m.Level),
		Warnings:  m.Warnings,
		Standing:  string(m.Standing),
		Messages:  m.MessagesCount,
		JoinedAt:  m.JoinedAt.Format(time.RFC3339),
	}
}

type logView struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"userId"`
	AdminID   int64         `json:"adminId"`
	Action    string        `json:"action"`
	Reason    string        `json:"reason"`
	Details   db.LogDetails `json:"details,omitempty"`
	CreatedAt string        `json:"createdAt"`
}

func toLogView(l *db.ModerationLog) logView {
	return logView{
		ID:        l.ID,
		UserID:    l.UserID,
		AdminID:   l.AdminID,
		Action:    l.Action,
		Reason:    l.Reason,
		Details:   l.Details,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := s.store.GetStats(r.Context(), midnight)
	if err != nil {
		s.fail(w, "cant load stats", err)
		return
	}
	s.respond(w, stats)
}

func (s *Server) handleTopUsers(w http.ResponseWriter, r *http.Request) {
	members, err := s.store.TopMembers(r.Context(), topUsersLimit)
	if err != nil {
		s.fail(w, "cant load leaderboard", err)
		return
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, toMemberView(m))
	}
	s.respond(w, views)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.RecentLogs(r.Context(), logsLimit)
	if err != nil {
		s.fail(w, "cant load audit log", err)
		return
	}
	views := make([]logView, 0, len(logs))
	for _, l := range logs {
		views = append(views, toLogView(l))
	}
	s.respond(w, views)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < minSearchQuery {
		// Too short to mean anything; an empty result, not an error.
		s.respond(w, []memberView{})
		return
	}

	members, err := s.store.SearchMembers(r.Context(), query, searchLimit)
	if err != nil {
		s.fail(w, "cant search members", err)
		return
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, toMemberView(m))
	}
	s.respond(w, views)
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("cant encode response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
