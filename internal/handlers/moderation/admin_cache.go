package handlers

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
)

// AdminFetcher resolves whether a user currently administers a chat.
type AdminFetcher func(ctx context.Context, chatID, userID int64) (bool, error)

type adminCacheEntry struct {
	isAdmin   bool
	fetchedAt time.Time
}

type adminCacheKey struct {
	chatID int64
	userID int64
}

// AdminCache memoizes chat administrator checks. Entries live for ttl;
// fetch failures resolve to non-admin so a flaky API call can never grant
// moderation bypass or command access.
type AdminCache struct {
	fetch AdminFetcher
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[adminCacheKey]adminCacheEntry
}

func NewAdminCache(fetch AdminFetcher, ttl time.Duration) *AdminCache {
	return &AdminCache{
		fetch:   fetch,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[adminCacheKey]adminCacheEntry),
	}
}

func (c *AdminCache) IsAdmin(ctx context.Context, chatID, userID int64) bool {
	key := adminCacheKey{chatID: chatID, userID: userID}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.isAdmin
	}

	isAdmin, err := c.fetch(ctx, chatID, userID)
	if err != nil {
		log.WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).WithError(err).Warn("cant fetch chat member status, treating as non-admin")
		return false
	}

	c.mu.Lock()
	c.entries[key] = adminCacheEntry{isAdmin: isAdmin, fetchedAt: c.now()}
	c.mu.Unlock()
	return isAdmin
}

// Invalidate drops the cached status for one member, forcing a refetch on
// the next check.
func (c *AdminCache) Invalidate(chatID, userID int64) {
	c.mu.Lock()
	delete(c.entries, adminCacheKey{chatID: chatID, userID: userID})
	c.mu.Unlock()
}

// ChatMemberFetcher adapts the Telegram getChatMember call into an
// AdminFetcher.
func ChatMemberFetcher(bot *api.BotAPI) AdminFetcher {
	return func(ctx context.Context, chatID, userID int64) (bool, error) {
		member, err := bot.GetChatMember(api.GetChatMemberConfig{
			ChatConfigWithUser: api.ChatConfigWithUser{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
		})
		if err != nil {
			return false, err
		}
		return member.IsCreator() || member.IsAdministrator(), nil
	}
}
