package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/bot"
	"github.com/provnuk88/Web3bot/internal/classify"
	"github.com/provnuk88/Web3bot/internal/config"
	"github.com/provnuk88/Web3bot/internal/db"
	"github.com/provnuk88/Web3bot/internal/infra"
	"github.com/provnuk88/Web3bot/internal/observability"
	"github.com/provnuk88/Web3bot/internal/progression"
)

const linkNoticeTTL = 30 * time.Second

type moderatorStore interface {
	FindMember(ctx context.Context, userID int64) (*db.Member, error)
	TouchActivity(ctx context.Context, userID int64, at time.Time) error
}

// Moderator classifies verified members' messages and reacts: profanity
// escalates warnings, links from young accounts get removed, and clean
// messages of enough substance earn points. Chat administrators bypass
// classification entirely.
type Moderator struct {
	s          bot.Service
	store      moderatorStore
	classifier *classify.Classifier
	escalator  *Escalator
	admins     *AdminCache
	points     *progression.Service
	config     *config.Config

	logger *log.Entry
}

func NewModerator(
	s bot.Service,
	classifier *classify.Classifier,
	escalator *Escalator,
	admins *AdminCache,
	points *progression.Service,
	config *config.Config,
) *Moderator {
	return &Moderator{
		s:          s,
		store:      s.GetDB(),
		classifier: classifier,
		escalator:  escalator,
		admins:     admins,
		points:     points,
		config:     config,
	}
}

func (m *Moderator) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if msg.Text == "" || chat.IsPrivate() || user.IsBot || strings.HasPrefix(msg.Text, "/") {
		return true, nil
	}

	member, err := m.store.FindMember(ctx, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Admission owns profile creation; nothing to moderate yet.
			return true, nil
		}
		return true, errors.WithMessage(err, "cant load member")
	}
	if !member.IsVerified() {
		return true, nil
	}

	// Admins bypass classification only; accrual applies to everyone.
	if !m.admins.IsAdmin(ctx, chat.ID, user.ID) {
		if m.classifier.IsProhibited(msg.Text) {
			return false, m.handleProfanity(ctx, msg, member, chat.ID)
		}

		if classify.HasLink(msg.Text) {
			if restricted, daysLeft := m.linkRestricted(member, time.Now()); restricted {
				return false, m.handleRestrictedLink(ctx, msg, member, chat.ID, daysLeft)
			}
		}
	}

	m.accrue(msg.Text, member)
	return true, nil
}

func (m *Moderator) handleProfanity(ctx context.Context, msg *api.Message, member *db.Member, chatID int64) error {
	observability.ViolationsTotal.WithLabelValues("profanity").Inc()

	if err := bot.DeleteChatMessage(ctx, m.s.GetBot(), chatID, msg.MessageID); err != nil {
		m.getLogEntry().WithField("user_id", member.UserID).WithError(err).Debug("cant delete message")
	}

	_, err := m.escalator.Escalate(ctx, member, chatID, 0, "prohibited language")
	return err
}

// linkRestricted reports whether the member is still inside the link
// probation window, and how many whole days of it remain.
func (m *Moderator) linkRestricted(member *db.Member, now time.Time) (bool, int) {
	window := time.Duration(m.config.Moderation.LinkRestrictionDays) * 24 * time.Hour
	elapsed := now.Sub(member.JoinedAt)
	if elapsed >= window {
		return false, 0
	}
	daysLeft := int((window - elapsed + 24*time.Hour - 1) / (24 * time.Hour))
	return true, daysLeft
}

// handleRestrictedLink removes the message without escalating: probation
// is a rule the member may not know yet, so the response is a removal and
// a short-lived explanation.
func (m *Moderator) handleRestrictedLink(ctx context.Context, msg *api.Message, member *db.Member, chatID int64, daysLeft int) error {
	observability.ViolationsTotal.WithLabelValues("link_restriction").Inc()

	if err := bot.DeleteChatMessage(ctx, m.s.GetBot(), chatID, msg.MessageID); err != nil {
		m.getLogEntry().WithField("user_id", member.UserID).WithError(err).Debug("cant delete message")
	}

	notice := api.NewMessage(chatID, fmt.Sprintf(
		"🔗 @%s, new members cannot post links yet. %d day(s) to go.",
		member.DisplayHandle(), daysLeft))
	bot.SendTransient(m.s.GetBot(), notice, linkNoticeTTL)

	m.getLogEntry().WithFields(log.Fields{
		"user_id":   member.UserID,
		"days_left": daysLeft,
	}).Info("link removed during probation")
	return nil
}

// accrue credits a clean message and bumps the activity counters, both off
// the handling path. Short messages still count as activity but earn
// nothing.
func (m *Moderator) accrue(text string, member *db.Member) {
	userID := member.UserID
	earns := classify.WordCount(text) >= m.config.Points.MinWordCount
	snapshot := *member

	infra.Go("accrue_points", func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.Moderation.StoreTimeout)
		defer cancel()

		if earns {
			if err := m.points.ApplyDelta(ctx, &snapshot, m.config.Points.Message, "message"); err != nil {
				m.getLogEntry().WithField("user_id", userID).WithError(err).Error("cant accrue points")
			}
		}
		// After the profile write so the counter bump is not overwritten.
		if err := m.store.TouchActivity(ctx, userID, time.Now()); err != nil {
			m.getLogEntry().WithField("user_id", userID).WithError(err).Error("cant touch activity")
		}
	})
}

func (m *Moderator) getLogEntry() *log.Entry {
	if m.logger == nil {
		m.logger = log.WithField("handler", "moderator")
	}
	return m.logger
}

func toNullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func nullTime() sql.NullTime {
	return sql.NullTime{}
}
