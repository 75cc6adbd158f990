package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/infra"
)

// Transport-level operations. All of them are best-effort from the
// moderation engine's point of view: a failed delete or restrict never
// blocks the state transition it accompanies.

func DeleteChatMessage(ctx context.Context, bot *api.BotAPI, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "cant delete message")
	}
	return nil
}

// DeleteChatMessageAfter removes a transient notice once its horizon
// passes. Fire-and-forget; deletion failures are ignored.
func DeleteChatMessageAfter(bot *api.BotAPI, chatID int64, messageID int, delay time.Duration) {
	infra.Go("delete_message_later", func() {
		time.Sleep(delay)
		if _, err := bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			log.WithFields(log.Fields{
				"chat_id":    chatID,
				"message_id": messageID,
			}).WithError(err).Debug("cant delete delayed message")
		}
	})
}

func RestrictChatting(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		UntilDate: until.Unix(),
		Permissions: &api.ChatPermissions{
			CanSendMessages:       false,
			CanSendOtherMessages:  false,
			CanAddWebPagePreviews: false,
		},
	})
	if err != nil {
		return errors.WithMessage(err, "cant restrict")
	}
	return nil
}

func UnrestrictChatting(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		UntilDate: 0,
		Permissions: &api.ChatPermissions{
			CanSendMessages:       true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
		},
	})
	if err != nil {
		return errors.WithMessage(err, "cant unrestrict")
	}
	return nil
}

func BanUserFromChat(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := bot.Request(api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		RevokeMessages: true,
	})
	if err != nil {
		return errors.WithMessage(err, "cant ban")
	}
	return nil
}

// SendTransient sends a chat notice that deletes itself after ttl. Returns
// silently on transport failure; notices are never load-bearing.
func SendTransient(bot *api.BotAPI, msg api.Chattable, ttl time.Duration) {
	sent, err := bot.Send(msg)
	if err != nil {
		log.WithError(err).Debug("cant send transient notice")
		return
	}
	if ttl > 0 {
		DeleteChatMessageAfter(bot, sent.Chat.ID, sent.MessageID, ttl)
	}
}
