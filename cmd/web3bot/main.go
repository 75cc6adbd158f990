package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/adminpanel"
	"github.com/provnuk88/Web3bot/internal/bot"
	"github.com/provnuk88/Web3bot/internal/classify"
	"github.com/provnuk88/Web3bot/internal/config"
	"github.com/provnuk88/Web3bot/internal/db/sqlite"
	chat "github.com/provnuk88/Web3bot/internal/handlers/chat"
	moderation "github.com/provnuk88/Web3bot/internal/handlers/moderation"
	"github.com/provnuk88/Web3bot/internal/infra"
	"github.com/provnuk88/Web3bot/internal/lifecycle"
	"github.com/provnuk88/Web3bot/internal/observability"
	"github.com/provnuk88/Web3bot/internal/progression"
)

const shutdownGrace = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}

	log.SetFormatter(&config.W3bFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	if err := observability.Init(); err != nil {
		log.WithError(err).Fatalln("cant initialize observability")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tgbot, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Fatalln("cant initialize bot api")
	}
	log.WithField("username", tgbot.Self.UserName).Info("authorized")

	store := sqlite.NewSQLiteClient(cfg.DBPath, cfg.Moderation.StoreTimeout)
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("cant close store")
		}
	}()

	service := bot.NewService(tgbot, store)

	words := cfg.Moderation.BlacklistWords
	if len(words) == 0 {
		words = classify.DefaultBlacklist()
	}
	classifier := classify.NewClassifier(words)

	points := progression.NewService(store)
	admins := moderation.NewAdminCache(moderation.ChatMemberFetcher(tgbot), cfg.Moderation.AdminCacheTTL)
	escalator := moderation.NewEscalator(service, store, points, &cfg)

	bot.RegisterUpdateHandler("gatekeeper", chat.NewGatekeeper(service, &cfg))
	bot.RegisterUpdateHandler("moderator", moderation.NewModerator(service, classifier, escalator, admins, points, &cfg))
	bot.RegisterUpdateHandler("commands", moderation.NewCommands(service, escalator, admins, points, &cfg))

	runtime := lifecycle.NewRuntime(chat.NewSweeper(store, cfg.Moderation.StoreTimeout))
	if cfg.AdminPanel.Enabled {
		runtime.Register(adminpanel.NewServer(cfg.AdminPanel.ListenAddr, store))
	}
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start components")
	}

	processor := bot.NewUpdateProcessor(service)
	infra.GoRecoverable(-1, "process_updates", func() {
		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updates := tgbot.GetUpdatesChan(updateConfig)

		for {
			select {
			case <-ctx.Done():
				tgbot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				updateCtx, cancelUpdate := context.WithTimeout(ctx, bot.UpdateTimeout)
				if err := processor.Process(updateCtx, &update); err != nil {
					log.WithError(err).Error("cant process update")
				}
				cancelUpdate()
			}
		}
	})

	stopCtx, cancelStop := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancelStop()
	if err := runtime.Stop(stopCtx); err != nil {
		log.WithError(err).Error("cant stop components cleanly")
	}
	log.Info("bye")
}
