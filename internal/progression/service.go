package progression

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/provnuk88/Web3bot/internal/db"
	"github.com/provnuk88/Web3bot/internal/observability"
)

type memberStore interface {
	SaveMember(ctx context.Context, member *db.Member) error
}

type Service struct {
	store memberStore
}

func NewService(store memberStore) *Service {
	return &Service{store: store}
}

// ApplyDelta adds delta to the member's points, clamping at zero, derives
// the level and persists the updated profile. The mutation survives in the
// passed member even when the write fails; the caller decides whether a
// failed persist matters.
func (s *Service) ApplyDelta(ctx context.Context, member *db.Member, delta int, reason string) error {
	oldPoints := member.Points

	member.Points += delta
	if member.Points < 0 {
		member.Points = 0
	}
	member.Level = LevelForPoints(member.Points)

	direction := "award"
	if delta < 0 {
		direction = "penalty"
	}
	observability.PointsAwardedTotal.WithLabelValues(direction).Inc()

	if err := s.store.SaveMember(ctx, member); err != nil {
		log.WithFields(log.Fields{
			"user_id": member.UserID,
			"delta":   delta,
			"reason":  reason,
		}).WithError(err).Error("cant persist points change")
		return errors.WithMessage(err, "save member points")
	}

	log.WithFields(log.Fields{
		"user_id": member.UserID,
		"reason":  reason,
		"from":    oldPoints,
		"to":      member.Points,
		"level":   member.Level,
	}).Debug("points updated")
	return nil
}
