package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/bot"
	"github.com/provnuk88/Web3bot/internal/config"
	"github.com/provnuk88/Web3bot/internal/db"
	"github.com/provnuk88/Web3bot/internal/infra"
	"github.com/provnuk88/Web3bot/internal/observability"
)

type updateType string

const (
	updateTypeCallbackQuery  updateType = "callback_query"
	updateTypeNewChatMembers updateType = "new_chat_members"
	updateTypeGroupMessage   updateType = "group_message"
	updateTypeIgnore         updateType = "ignore"

	welcomeNoticeTTL = 1 * time.Minute
)

type gatekeeperStore interface {
	FindMember(ctx context.Context, userID int64) (*db.Member, error)
	UpsertMember(ctx context.Context, member *db.Member) error
	SaveMember(ctx context.Context, member *db.Member) error

	SavePendingMessage(ctx context.Context, msg *db.PendingMessage) error
	GetPendingMessage(ctx context.Context, userID int64) (*db.PendingMessage, error)
	DeletePendingMessage(ctx context.Context, userID int64) error

	AppendLog(ctx context.Context, entry *db.ModerationLog) error
}

// Gatekeeper gates message admission on the join challenge. Every message
// from an unverified member is diverted into the pending buffer and
// answered with a fresh arithmetic challenge; the buffered message is
// replayed once the challenge is passed.
type Gatekeeper struct {
	s      bot.Service
	store  gatekeeperStore
	config *config.Config

	logger *log.Entry
}

func NewGatekeeper(s bot.Service, config *config.Config) *Gatekeeper {
	return &Gatekeeper{
		s:      s,
		store:  s.GetDB(),
		config: config,
	}
}

func (g *Gatekeeper) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	entry := g.getLogEntry()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	switch g.determineUpdateType(u, chat) {
	case updateTypeCallbackQuery:
		if !isCaptchaCallbackData(u.CallbackQuery.Data) {
			return true, nil
		}
		if chat == nil {
			return true, nil
		}
		return false, g.handleChallengeAnswer(ctx, u.CallbackQuery, chat.ID)

	case updateTypeNewChatMembers:
		return true, g.handleNewChatMembers(ctx, u.Message.NewChatMembers)

	case updateTypeGroupMessage:
		if user == nil || user.IsBot {
			return true, nil
		}
		member, err := g.ensureMember(ctx, user)
		if err != nil {
			entry.WithField("user_id", user.ID).WithError(err).Error("cant ensure member profile")
			return true, nil
		}
		if member.IsVerified() {
			return true, nil
		}
		// Unverified: the message never reaches classification.
		return false, g.divertUnverified(ctx, u.Message, member)

	default:
		return true, nil
	}
}

func (g *Gatekeeper) determineUpdateType(u *api.Update, chat *api.Chat) updateType {
	switch {
	case u.CallbackQuery != nil:
		return updateTypeCallbackQuery
	case u.Message != nil && u.Message.NewChatMembers != nil:
		return updateTypeNewChatMembers
	case u.Message != nil && u.Message.Text != "" && chat != nil && !chat.IsPrivate():
		return updateTypeGroupMessage
	}
	return updateTypeIgnore
}

// ensureMember loads the profile, creating it on first contact. Concurrent
// creation is absorbed by the store upsert.
func (g *Gatekeeper) ensureMember(ctx context.Context, user *api.User) (*db.Member, error) {
	member, err := g.store.FindMember(ctx, user.ID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	member = db.NewMember(user.ID, user.UserName, user.FirstName, time.Now())
	if err := g.store.UpsertMember(ctx, member); err != nil {
		return nil, errors.WithMessage(err, "upsert member")
	}
	return member, nil
}

func (g *Gatekeeper) handleNewChatMembers(ctx context.Context, members []api.User) error {
	for _, user := range members {
		if user.IsBot {
			continue
		}
		member := db.NewMember(user.ID, user.UserName, user.FirstName, time.Now())
		if err := g.store.UpsertMember(ctx, member); err != nil {
			g.getLogEntry().WithField("user_id", user.ID).WithError(err).Error("cant upsert joined member")
			continue
		}
		g.getLogEntry().WithFields(log.Fields{
			"user_id":  user.ID,
			"username": user.UserName,
		}).Info("new member joined")
	}
	return nil
}

// divertUnverified buffers the message, removes it from the chat and
// (re-)issues the challenge. Re-issuance on every message is deliberate:
// a lost prompt costs nothing but a fresh keyboard.
func (g *Gatekeeper) divertUnverified(ctx context.Context, msg *api.Message, member *db.Member) error {
	entry := g.getLogEntry().WithField("user_id", member.UserID)

	if err := bot.DeleteChatMessage(ctx, g.s.GetBot(), msg.Chat.ID, msg.MessageID); err != nil {
		entry.WithError(err).Debug("cant delete unverified message")
	}

	pending := &db.PendingMessage{
		UserID:      member.UserID,
		Username:    member.Username,
		FirstName:   member.FirstName,
		MessageText: msg.Text,
		MessageType: "text",
		ChatID:      msg.Chat.ID,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(g.config.Moderation.PendingMessageTTL),
	}
	if err := g.store.SavePendingMessage(ctx, pending); err != nil {
		entry.WithError(err).Error("cant buffer pending message")
	}

	return g.issueChallenge(ctx, msg.Chat.ID, member)
}

func (g *Gatekeeper) issueChallenge(ctx context.Context, chatID int64, member *db.Member) error {
	challenge := newChallenge()

	text := fmt.Sprintf(
		"🔐 @%s, welcome!\n\nSolve this to start chatting:\n%d + %d = ?\n\nYour message is saved and will be posted after verification.",
		member.DisplayHandle(), challenge.First, challenge.Second,
	)
	msg := api.NewMessage(chatID, text)
	msg.ReplyMarkup = challenge.keyboard(member.UserID)

	sent, err := g.s.GetBot().Send(msg)
	if err != nil {
		return errors.WithMessage(err, "cant send challenge")
	}

	member.Verification = db.VerificationChallenged
	member.CaptchaAnswer = toNullInt64(int64(challenge.Answer))
	member.CaptchaMsgID = toNullInt64(int64(sent.MessageID))
	member.CaptchaToken = challenge.Token
	if err := g.store.SaveMember(ctx, member); err != nil {
		return errors.WithMessage(err, "cant persist challenge state")
	}

	observability.ChallengesTotal.WithLabelValues("issued").Inc()
	g.getLogEntry().WithFields(log.Fields{
		"user_id": member.UserID,
		"chat_id": chatID,
	}).Debug("challenge issued")
	return nil
}

func (g *Gatekeeper) handleChallengeAnswer(ctx context.Context, query *api.CallbackQuery, chatID int64) error {
	answerer := query.From.ID

	data, ok := parseCaptchaCallbackData(query.Data)
	if !ok {
		g.getLogEntry().WithField("data", query.Data).Debug("malformed captcha callback data")
		return nil
	}

	member, err := g.store.FindMember(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			g.answerCallback(query.ID, "❌ Error: user not found")
			return nil
		}
		return errors.WithMessage(err, "cant load challenged member")
	}

	switch evaluateChallengeAnswer(member, answerer, data) {
	case challengeForeign:
		g.answerCallback(query.ID, "❌ This is not your challenge!")

	case challengeAlreadyVerified:
		g.answerCallback(query.ID, "✅ You are already verified!")

	case challengeStale:
		g.answerCallback(query.ID, "❌ This challenge has expired, answer the latest one.")

	case challengeIncorrect:
		observability.ChallengesTotal.WithLabelValues("failed_attempt").Inc()
		g.answerCallback(query.ID, "❌ Wrong! Try again.")

	case challengeSolved:
		return g.completeVerification(ctx, query, member, chatID)
	}
	return nil
}

func (g *Gatekeeper) completeVerification(ctx context.Context, query *api.CallbackQuery, member *db.Member, chatID int64) error {
	entry := g.getLogEntry().WithField("user_id", member.UserID)

	promptID := member.CaptchaMsgID
	member.Verification = db.VerificationVerified
	member.CaptchaAnswer = nullInt64()
	member.CaptchaMsgID = nullInt64()
	member.CaptchaToken = ""
	if err := g.store.SaveMember(ctx, member); err != nil {
		return errors.WithMessage(err, "cant persist verification")
	}

	observability.ChallengesTotal.WithLabelValues("passed").Inc()
	g.answerCallback(query.ID, "✅ Correct! Welcome!")

	if promptID.Valid {
		if err := bot.DeleteChatMessage(ctx, g.s.GetBot(), chatID, int(promptID.Int64)); err != nil {
			entry.WithError(err).Debug("cant delete challenge prompt")
		}
	}

	g.replayPending(ctx, member, chatID)

	welcome := api.NewMessage(chatID, fmt.Sprintf(
		"🎉 @%s passed verification and can now join the discussion!", member.DisplayHandle()))
	bot.SendTransient(g.s.GetBot(), welcome, welcomeNoticeTTL)

	userID := member.UserID
	infra.Go("log_captcha_passed", func() {
		logCtx, cancel := context.WithTimeout(context.Background(), g.config.Moderation.StoreTimeout)
		defer cancel()
		if err := g.store.AppendLog(logCtx, &db.ModerationLog{
			UserID:    userID,
			AdminID:   0,
			Action:    db.ActionCaptchaPassed,
			Reason:    "passed the join challenge",
			CreatedAt: time.Now(),
		}); err != nil {
			log.WithField("user_id", userID).WithError(err).Error("cant write captcha audit entry")
		}
	})

	entry.Info("challenge passed")
	return nil
}

// replayPending posts the buffered message if one is still live and clears
// it. Absent or expired entries are a quiet no-op.
func (g *Gatekeeper) replayPending(ctx context.Context, member *db.Member, chatID int64) {
	entry := g.getLogEntry().WithField("user_id", member.UserID)

	pending, err := g.store.GetPendingMessage(ctx, member.UserID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			entry.WithError(err).Error("cant load pending message")
		}
		return
	}
	if time.Now().After(pending.ExpiresAt) {
		entry.Debug("pending message expired, skipping replay")
	} else {
		handle := pending.Username
		if handle == "" {
			handle = pending.FirstName
		}
		text := fmt.Sprintf("📝 Message from @%s:\n\n%s", handle, pending.MessageText)
		if _, err := g.s.GetBot().Send(api.NewMessage(chatID, text)); err != nil {
			entry.WithError(err).Error("cant replay pending message")
		}
	}

	if err := g.store.DeletePendingMessage(ctx, member.UserID); err != nil {
		entry.WithError(err).Error("cant clear pending message")
	}
}

func (g *Gatekeeper) answerCallback(callbackID, text string) {
	if _, err := g.s.GetBot().Request(api.NewCallback(callbackID, text)); err != nil {
		g.getLogEntry().WithError(err).Debug("cant answer callback query")
	}
}

func (g *Gatekeeper) getLogEntry() *log.Entry {
	if g.logger == nil {
		g.logger = log.WithField("handler", "gatekeeper")
	}
	return g.logger
}

func isCaptchaCallbackData(data string) bool {
	return strings.HasPrefix(data, captchaCallbackPrefix+";")
}
