package handlers

import (
	"context"
	"fmt"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/bot"
	"github.com/provnuk88/Web3bot/internal/config"
	"github.com/provnuk88/Web3bot/internal/db"
	"github.com/provnuk88/Web3bot/internal/observability"
	"github.com/provnuk88/Web3bot/internal/progression"
)

type escalationStore interface {
	SaveMember(ctx context.Context, member *db.Member) error
	AppendLog(ctx context.Context, entry *db.ModerationLog) error
}

// escalationTransport is the chat-facing side of an escalation. All calls
// are best effort; the stored standing is authoritative.
type escalationTransport interface {
	Restrict(ctx context.Context, userID, chatID int64, until time.Time) error
	Unrestrict(ctx context.Context, userID, chatID int64) error
	Ban(ctx context.Context, userID, chatID int64) error
	Notify(chatID int64, text string)
}

type botTransport struct {
	s         bot.Service
	noticeTTL time.Duration
}

func (t *botTransport) Restrict(ctx context.Context, userID, chatID int64, until time.Time) error {
	return bot.RestrictChatting(ctx, t.s.GetBot(), userID, chatID, until)
}

func (t *botTransport) Unrestrict(ctx context.Context, userID, chatID int64) error {
	return bot.UnrestrictChatting(ctx, t.s.GetBot(), userID, chatID)
}

func (t *botTransport) Ban(ctx context.Context, userID, chatID int64) error {
	return bot.BanUserFromChat(ctx, t.s.GetBot(), userID, chatID)
}

func (t *botTransport) Notify(chatID int64, text string) {
	bot.SendTransient(t.s.GetBot(), api.NewMessage(chatID, text), t.noticeTTL)
}

// escalationStep is the pure warning arithmetic: warnings accumulate until
// the threshold trips a mute, which resets the count. With threshold 3 the
// sequence is 1, 2, then mute at zero.
type escalationStep struct {
	Warnings int
	Mute     bool
}

func nextEscalationStep(currentWarnings, threshold int) escalationStep {
	next := currentWarnings + 1
	if next >= threshold {
		return escalationStep{Warnings: 0, Mute: true}
	}
	return escalationStep{Warnings: next, Mute: false}
}

// Escalator turns violations into warnings and, past the threshold, into
// timed mutes. Every escalation lands in the audit log.
type Escalator struct {
	store     escalationStore
	points    *progression.Service
	config    *config.Config
	transport escalationTransport

	logger *log.Entry
}

func NewEscalator(s bot.Service, store escalationStore, points *progression.Service, config *config.Config) *Escalator {
	return &Escalator{
		store:     store,
		points:    points,
		config:    config,
		transport: &botTransport{s: s, noticeTTL: config.Moderation.NoticeAutoDelete},
		logger:    log.WithField("component", "escalator"),
	}
}

// Escalate applies one violation: points penalty, warning increment and,
// at the threshold, a mute with the warning count reset. adminID zero
// marks an automatic action. Returns whether the member was muted.
func (e *Escalator) Escalate(ctx context.Context, member *db.Member, chatID int64, adminID int64, reason string) (bool, error) {
	entry := e.logger.WithFields(log.Fields{
		"user_id": member.UserID,
		"chat_id": chatID,
	})

	if err := e.points.ApplyDelta(ctx, member, e.config.Points.SpamPenalty, reason); err != nil {
		entry.WithError(err).Error("cant apply violation penalty")
	}

	step := nextEscalationStep(member.Warnings, e.config.Moderation.WarningThreshold)
	member.Warnings = step.Warnings

	if !step.Mute {
		if err := e.store.SaveMember(ctx, member); err != nil {
			return false, errors.WithMessage(err, "save warned member")
		}
		e.appendAudit(ctx, member.UserID, adminID, db.ActionWarning, reason, db.LogDetails{
			"warnings":  member.Warnings,
			"threshold": e.config.Moderation.WarningThreshold,
		})

		e.transport.Notify(chatID, fmt.Sprintf(
			"⚠️ @%s, warning %d/%d: %s",
			member.DisplayHandle(), member.Warnings, e.config.Moderation.WarningThreshold, reason))

		entry.WithField("warnings", member.Warnings).Info("member warned")
		return false, nil
	}

	return true, e.Mute(ctx, member, chatID, adminID, e.config.Moderation.MuteDuration, reason)
}

// Mute restricts the member for d and records the new standing. The
// Telegram restriction is best effort: a failed API call still leaves the
// standing muted so the store reflects intent.
func (e *Escalator) Mute(ctx context.Context, member *db.Member, chatID int64, adminID int64, d time.Duration, reason string) error {
	until := time.Now().Add(d)

	member.Standing = db.StandingMuted
	member.MuteUntil = toNullTime(until)
	if err := e.store.SaveMember(ctx, member); err != nil {
		return errors.WithMessage(err, "save muted member")
	}

	if err := e.transport.Restrict(ctx, member.UserID, chatID, until); err != nil {
		e.logger.WithFields(log.Fields{
			"user_id": member.UserID,
			"chat_id": chatID,
		}).WithError(err).Error("cant restrict member")
	}

	observability.ViolationsTotal.WithLabelValues("mute").Inc()
	e.appendAudit(ctx, member.UserID, adminID, db.ActionMute, reason, db.LogDetails{
		"until": until.Format(time.RFC3339),
	})

	e.transport.Notify(chatID, fmt.Sprintf(
		"🔇 @%s has been muted for %s: %s",
		member.DisplayHandle(), d, reason))

	e.logger.WithFields(log.Fields{
		"user_id": member.UserID,
		"until":   until,
	}).Info("member muted")
	return nil
}

// Unmute lifts the restriction and clears the stored standing.
func (e *Escalator) Unmute(ctx context.Context, member *db.Member, chatID int64, adminID int64) error {
	member.Standing = db.StandingActive
	member.MuteUntil = nullTime()
	if err := e.store.SaveMember(ctx, member); err != nil {
		return errors.WithMessage(err, "save unmuted member")
	}

	if err := e.transport.Unrestrict(ctx, member.UserID, chatID); err != nil {
		e.logger.WithField("user_id", member.UserID).WithError(err).Error("cant lift restriction")
	}

	e.appendAudit(ctx, member.UserID, adminID, db.ActionUnmute, "", nil)
	return nil
}

// Ban removes the member from the chat permanently.
func (e *Escalator) Ban(ctx context.Context, member *db.Member, chatID int64, adminID int64, reason string) error {
	member.Standing = db.StandingBanned
	member.MuteUntil = nullTime()
	if err := e.store.SaveMember(ctx, member); err != nil {
		return errors.WithMessage(err, "save banned member")
	}

	if err := e.transport.Ban(ctx, member.UserID, chatID); err != nil {
		e.logger.WithField("user_id", member.UserID).WithError(err).Error("cant ban member")
	}

	observability.ViolationsTotal.WithLabelValues("ban").Inc()
	e.appendAudit(ctx, member.UserID, adminID, db.ActionBan, reason, nil)
	return nil
}

func (e *Escalator) appendAudit(ctx context.Context, userID, adminID int64, action, reason string, details db.LogDetails) {
	if err := e.store.AppendLog(ctx, &db.ModerationLog{
		UserID:    userID,
		AdminID:   adminID,
		Action:    action,
		Reason:    reason,
		Details:   details,
		CreatedAt: time.Now(),
	}); err != nil {
		e.logger.WithFields(log.Fields{
			"user_id": userID,
			"action":  action,
		}).WithError(err).Error("cant write audit entry")
	}
}
