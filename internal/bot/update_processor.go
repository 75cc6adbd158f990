package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/config"
	"github.com/provnuk88/Web3bot/internal/observability"
)

const (
	// Updates older than this are replays from downtime and are skipped.
	UpdateTimeout = 5 * time.Minute
)

// Handler processes one update. proceed=false stops the chain: the update
// was consumed (challenge callback, moderation removal, handled command).
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}

var registeredHandlers = make(map[string]Handler)

func RegisterUpdateHandler(title string, handler Handler) {
	registeredHandlers[title] = handler
}

type UpdateProcessor struct {
	s              Service
	updateHandlers []Handler
}

func NewUpdateProcessor(s Service) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0)
	for _, handlerName := range config.Get().EnabledHandlers {
		if registeredHandlers[handlerName] == nil {
			log.Warnf("no registered handler: %s", handlerName)
			continue
		}
		enabledHandlers = append(enabledHandlers, registeredHandlers[handlerName])
	}

	return &UpdateProcessor{
		s:              s,
		updateHandlers: enabledHandlers,
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	started := time.Now()
	status := "ok"
	defer func() {
		observability.MessageProcessingDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	}()

	if updateTime := extractUpdateTime(u); time.Since(updateTime) > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_time": updateTime,
			"age":         time.Since(updateTime),
		}).Debug("skipping outdated update")
		status = "skipped"
		return nil
	}

	chat := u.FromChat()
	user := u.SentFrom()

	for _, handler := range up.updateHandlers {
		if handler == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			status = "error"
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func extractUpdateTime(u *api.Update) time.Time {
	switch {
	case u.Message != nil:
		return time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil:
		return time.Unix(int64(u.EditedMessage.Date), 0)
	default:
		return time.Now()
	}
}
