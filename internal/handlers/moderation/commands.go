package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/bot"
	"github.com/provnuk88/Web3bot/internal/config"
	"github.com/provnuk88/Web3bot/internal/db"
	"github.com/provnuk88/Web3bot/internal/progression"
)

const (
	topListSize = 10

	startNoticeTTL = 1 * time.Minute
	helpNoticeTTL  = 2 * time.Minute
	statsNoticeTTL = 2 * time.Minute
	rulesNoticeTTL = 3 * time.Minute
	topNoticeTTL   = 3 * time.Minute
)

type commandStore interface {
	FindMember(ctx context.Context, userID int64) (*db.Member, error)
	FindMemberByUsername(ctx context.Context, username string) (*db.Member, error)
	SaveMember(ctx context.Context, member *db.Member) error
	AppendLog(ctx context.Context, entry *db.ModerationLog) error
	TopMembers(ctx context.Context, limit int) ([]*db.Member, error)
}

// Commands routes slash commands. Member commands answer in chat with
// self-deleting notices; admin commands act on a target member and are
// denied silently for everyone else, so the command surface stays
// invisible to regular members.
type Commands struct {
	s         bot.Service
	store     commandStore
	escalator *Escalator
	admins    *AdminCache
	points    *progression.Service
	config    *config.Config

	logger *log.Entry
}

func NewCommands(
	s bot.Service,
	escalator *Escalator,
	admins *AdminCache,
	points *progression.Service,
	config *config.Config,
) *Commands {
	return &Commands{
		s:         s,
		store:     s.GetDB(),
		escalator: escalator,
		admins:    admins,
		points:    points,
		config:    config,
		logger:    log.WithField("handler", "commands"),
	}
}

func (c *Commands) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u.Message == nil || chat == nil || user == nil || !u.Message.IsCommand() || user.IsBot {
		return true, nil
	}
	msg := u.Message

	switch msg.Command() {
	case "start":
		c.transient(chat.ID, startText(chat.IsPrivate()), startNoticeTTL)
	case "help":
		text := helpText()
		if c.admins.IsAdmin(ctx, chat.ID, user.ID) {
			text += "\n\n" + adminHelpText()
		}
		c.transient(chat.ID, text, helpNoticeTTL)
	case "rules":
		c.transient(chat.ID, rulesText(c.config), rulesNoticeTTL)
	case "stats":
		return false, c.statsCommand(ctx, chat.ID, user.ID)
	case "top":
		return false, c.topCommand(ctx, chat.ID)

	case "warn", "mute", "unmute", "ban", "unwarn", "addpoints", "setlevel", "getstats":
		if !c.admins.IsAdmin(ctx, chat.ID, user.ID) {
			// Denied silently so the admin surface is not discoverable.
			c.logger.WithFields(log.Fields{
				"user_id": user.ID,
				"command": msg.Command(),
			}).Debug("admin command denied")
			return false, nil
		}
		return false, c.adminCommand(ctx, msg, chat.ID, user.ID)

	default:
		return true, nil
	}
	return false, nil
}

func (c *Commands) statsCommand(ctx context.Context, chatID, userID int64) error {
	member, err := c.store.FindMember(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.transient(chatID, "No profile yet. Say something first!", statsNoticeTTL)
			return nil
		}
		return errors.WithMessage(err, "cant load member stats")
	}
	c.transient(chatID, formatMemberStats(member), statsNoticeTTL)
	return nil
}

func (c *Commands) topCommand(ctx context.Context, chatID int64) error {
	top, err := c.store.TopMembers(ctx, topListSize)
	if err != nil {
		return errors.WithMessage(err, "cant load leaderboard")
	}
	if len(top) == 0 {
		c.transient(chatID, "The leaderboard is empty so far.", topNoticeTTL)
		return nil
	}

	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n")
	for i, m := range top {
		fmt.Fprintf(&b, "%d. %s %s @%s: %d pts\n",
			i+1, medal(i), progression.LevelName(m.Level), m.DisplayHandle(), m.Points)
	}
	c.transient(chatID, b.String(), topNoticeTTL)
	return nil
}

func (c *Commands) adminCommand(ctx context.Context, msg *api.Message, chatID, adminID int64) error {
	// The command itself disappears; only the transient outcome stays.
	if err := bot.DeleteChatMessage(ctx, c.s.GetBot(), chatID, msg.MessageID); err != nil {
		c.logger.WithError(err).Debug("cant delete command message")
	}

	args := strings.Fields(msg.CommandArguments())
	target, args, err := c.resolveTarget(ctx, msg, args)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.notice(chatID, "❌ User not found.")
			return nil
		}
		if errors.Is(err, errNoTarget) {
			c.notice(chatID, strings.TrimSpace(fmt.Sprintf("Usage: /%s @username %s", msg.Command(), commandArgsHint(msg.Command()))))
			return nil
		}
		return err
	}

	switch msg.Command() {
	case "warn":
		muted, err := c.escalator.Escalate(ctx, target, chatID, adminID, reasonFrom(args, "warned by admin"))
		if err != nil {
			return err
		}
		if !muted {
			c.notice(chatID, fmt.Sprintf("⚠️ @%s warned (%d/%d).",
				target.DisplayHandle(), target.Warnings, c.config.Moderation.WarningThreshold))
		}

	case "unwarn":
		if target.Warnings == 0 {
			c.notice(chatID, fmt.Sprintf("@%s has no warnings.", target.DisplayHandle()))
			return nil
		}
		target.Warnings--
		if err := c.store.SaveMember(ctx, target); err != nil {
			return errors.WithMessage(err, "save unwarned member")
		}
		c.audit(ctx, target.UserID, adminID, db.ActionUnwarn, "", nil)
		c.notice(chatID, fmt.Sprintf("✅ @%s now has %d warning(s).", target.DisplayHandle(), target.Warnings))

	case "mute":
		duration, rest := splitMuteArgs(args, c.config.Moderation.MuteDuration)
		if err := c.escalator.Mute(ctx, target, chatID, adminID, duration, reasonFrom(rest, "muted by admin")); err != nil {
			return err
		}

	case "unmute":
		if err := c.escalator.Unmute(ctx, target, chatID, adminID); err != nil {
			return err
		}
		c.notice(chatID, fmt.Sprintf("🔊 @%s can speak again.", target.DisplayHandle()))

	case "ban":
		if err := c.escalator.Ban(ctx, target, chatID, adminID, reasonFrom(args, "banned by admin")); err != nil {
			return err
		}
		c.notice(chatID, fmt.Sprintf("🚫 @%s has been banned.", target.DisplayHandle()))

	case "addpoints":
		delta, ok := parseIntArg(args)
		if !ok {
			c.notice(chatID, "Usage: /addpoints @username <points>")
			return nil
		}
		if err := c.points.ApplyDelta(ctx, target, delta, "admin adjustment"); err != nil {
			return err
		}
		c.audit(ctx, target.UserID, adminID, db.ActionAddPoints, "", db.LogDetails{"delta": delta})
		c.notice(chatID, fmt.Sprintf("💎 @%s now has %d points (%s).",
			target.DisplayHandle(), target.Points, progression.LevelName(target.Level)))

	case "setlevel":
		level, ok := parseIntArg(args)
		if !ok || level < 1 || level > progression.MaxLevel {
			c.notice(chatID, fmt.Sprintf("Usage: /setlevel @username <1-%d>", progression.MaxLevel))
			return nil
		}
		target.Level = level
		if threshold, ok := progression.ThresholdForLevel(level); ok && target.Points < threshold.MinPoints {
			target.Points = threshold.MinPoints
		}
		if err := c.store.SaveMember(ctx, target); err != nil {
			return errors.WithMessage(err, "save releveled member")
		}
		c.audit(ctx, target.UserID, adminID, db.ActionSetLevel, "", db.LogDetails{"level": level})
		c.notice(chatID, fmt.Sprintf("⭐ @%s is now %s.", target.DisplayHandle(), progression.LevelName(level)))

	case "getstats":
		c.notice(chatID, formatMemberStats(target))
	}
	return nil
}

var errNoTarget = errors.New("no target specified")

// resolveTarget finds the member an admin command acts on: the replied-to
// author when the command is a reply, the leading @username argument
// otherwise. Remaining args are returned for reason or value parsing.
func (c *Commands) resolveTarget(ctx context.Context, msg *api.Message, args []string) (*db.Member, []string, error) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		member, err := c.store.FindMember(ctx, msg.ReplyToMessage.From.ID)
		return member, args, err
	}
	if len(args) == 0 || !strings.HasPrefix(args[0], "@") {
		return nil, args, errNoTarget
	}
	member, err := c.store.FindMemberByUsername(ctx, strings.TrimPrefix(args[0], "@"))
	return member, args[1:], err
}

func (c *Commands) transient(chatID int64, text string, ttl time.Duration) {
	bot.SendTransient(c.s.GetBot(), api.NewMessage(chatID, text), ttl)
}

func (c *Commands) notice(chatID int64, text string) {
	c.transient(chatID, text, c.config.Moderation.NoticeAutoDelete)
}

func (c *Commands) audit(ctx context.Context, userID, adminID int64, action, reason string, details db.LogDetails) {
	if err := c.store.AppendLog(ctx, &db.ModerationLog{
		UserID:    userID,
		AdminID:   adminID,
		Action:    action,
		Reason:    reason,
		Details:   details,
		CreatedAt: time.Now(),
	}); err != nil {
		c.logger.WithField("action", action).WithError(err).Error("cant write audit entry")
	}
}

func formatMemberStats(m *db.Member) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 @%s\n", m.DisplayHandle())
	fmt.Fprintf(&b, "Level: %d (%s)\n", m.Level, progression.LevelName(m.Level))
	fmt.Fprintf(&b, "Points: %d\n", m.Points)
	if next, ok := progression.NextThreshold(m.Level); ok {
		fmt.Fprintf(&b, "Next level in: %d pts\n", next.MinPoints-m.Points)
	}
	fmt.Fprintf(&b, "Messages: %d\n", m.MessagesCount)
	fmt.Fprintf(&b, "Warnings: %d\n", m.Warnings)
	return b.String()
}

// commandArgsHint completes the usage line for an admin command that got
// no resolvable target.
func commandArgsHint(command string) string {
	switch command {
	case "warn", "ban":
		return "[reason]"
	case "mute":
		return "[minutes] [reason]"
	case "addpoints":
		return "<points>"
	case "setlevel":
		return fmt.Sprintf("<1-%d>", progression.MaxLevel)
	}
	return ""
}

// splitMuteArgs peels an optional leading minutes value off the mute
// arguments; whatever remains is the reason.
func splitMuteArgs(args []string, fallback time.Duration) (time.Duration, []string) {
	if len(args) == 0 {
		return fallback, args
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes <= 0 {
		return fallback, args
	}
	return time.Duration(minutes) * time.Minute, args[1:]
}

func reasonFrom(args []string, fallback string) string {
	if len(args) == 0 {
		return fallback
	}
	return strings.Join(args, " ")
}

func parseIntArg(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false
	}
	return v, true
}

func medal(index int) string {
	switch index {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	}
	return "▪️"
}

func startText(private bool) string {
	if private {
		return strings.Join([]string{
			"👋 Hi! I keep Web3 guild chats safe and fun.",
			"",
			"Add me to a group and grant me admin rights to get started.",
			"Use /help to see what I can do.",
		}, "\n")
	}
	return strings.Join([]string{
		"👋 Hi! I guard this chat and keep score.",
		"New members solve a quick challenge, clean messages earn points.",
		"Use /help for the command list.",
	}, "\n")
}

func helpText() string {
	return strings.Join([]string{
		"🤖 Guild bot commands:",
		"/stats - your points, level and warnings",
		"/top - the guild leaderboard",
		"/rules - chat rules",
		"/help - this message",
	}, "\n")
}

func adminHelpText() string {
	return strings.Join([]string{
		"🛡 Admin commands:",
		"/warn @user [reason]",
		"/unwarn @user",
		"/mute @user [minutes] [reason]",
		"/unmute @user",
		"/ban @user [reason]",
		"/addpoints @user <points>",
		fmt.Sprintf("/setlevel @user <1-%d>", progression.MaxLevel),
		"/getstats @user",
	}, "\n")
}

func rulesText(cfg *config.Config) string {
	return strings.Join([]string{
		"📜 Chat rules:",
		"1. New members solve a quick challenge before chatting.",
		fmt.Sprintf("2. No links during your first %d days.", cfg.Moderation.LinkRestrictionDays),
		"3. Keep the language clean. Warnings escalate to a mute.",
		"4. Substantial messages earn points and levels.",
	}, "\n")
}
