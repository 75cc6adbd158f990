package handlers

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type sweeperStore interface {
	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)
	ReconcileExpiredMutes(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper drops expired pending messages and lifts expired mutes in the
// store on an hourly schedule. Telegram releases restrictions on its own
// once their until date passes; the sweep keeps the stored standing in
// step with that.
type Sweeper struct {
	store        sweeperStore
	storeTimeout time.Duration

	cron   *cron.Cron
	logger *log.Entry
}

func NewSweeper(store sweeperStore, storeTimeout time.Duration) *Sweeper {
	return &Sweeper{
		store:        store,
		storeTimeout: storeTimeout,
		cron:         cron.New(),
		logger:       log.WithField("component", "sweeper"),
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("sweeper scheduled")
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
	defer cancel()

	now := time.Now()

	dropped, err := s.store.DeleteExpiredPending(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("cant sweep pending messages")
	} else if dropped > 0 {
		s.logger.WithField("count", dropped).Info("expired pending messages dropped")
	}

	lifted, err := s.store.ReconcileExpiredMutes(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("cant reconcile expired mutes")
	} else if lifted > 0 {
		s.logger.WithField("count", lifted).Info("expired mutes lifted")
	}
}
