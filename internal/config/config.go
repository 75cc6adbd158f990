package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		EnabledHandlers  []string `env:"HANDLERS,default=gatekeeper,moderator,commands"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.web3bot"`
		DBPath           string   `env:"DB_PATH,default=bot.db"`

		Moderation Moderation
		Points     Points
		AdminPanel AdminPanel
	}

	Moderation struct {
		// BlacklistWords overrides the embedded default blacklist when set.
		BlacklistWords      []string      `env:"BLACKLIST_WORDS"`
		WarningThreshold    int           `env:"WARNING_THRESHOLD,default=3"`
		MuteDuration        time.Duration `env:"MUTE_DURATION,default=60m"`
		LinkRestrictionDays int           `env:"LINK_RESTRICTION_DAYS,default=14"`
		PendingMessageTTL   time.Duration `env:"PENDING_MESSAGE_TTL,default=24h"`
		NoticeAutoDelete    time.Duration `env:"NOTICE_AUTO_DELETE,default=2m"`
		AdminCacheTTL       time.Duration `env:"ADMIN_CACHE_TTL,default=5m"`
		StoreTimeout        time.Duration `env:"STORE_TIMEOUT,default=3s"`
	}

	Points struct {
		Message      int `env:"POINTS_MESSAGE,default=2"`
		SpamPenalty  int `env:"POINTS_SPAM_PENALTY,default=-10"`
		MinWordCount int `env:"POINTS_MIN_WORDS,default=3"`
	}

	AdminPanel struct {
		Enabled    bool   `env:"ADMIN_PANEL_ENABLED,default=true"`
		ListenAddr string `env:"ADMIN_PANEL_ADDR,default=:3000"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("W3B_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
