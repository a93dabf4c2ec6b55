package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/repository"
)

// VolatileSweepHandler removes volatile memberships whose user no longer has
// a live subscription on any server process. This is the safety net behind
// the per-connection cleanup: a crashed process never runs its disconnect
// path, so the sweep reconciles from shared state.
type VolatileSweepHandler struct {
	membershipRepo repository.MembershipRepository
	stateRepo      repository.StateRepository
}

func NewVolatileSweepHandler(membershipRepo repository.MembershipRepository, stateRepo repository.StateRepository) *VolatileSweepHandler {
	if membershipRepo == nil || stateRepo == nil {
		panic("repositories cannot be nil for VolatileSweepHandler")
	}
	return &VolatileSweepHandler{membershipRepo: membershipRepo, stateRepo: stateRepo}
}

func (h *VolatileSweepHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	memberships, err := h.membershipRepo.ListVolatile(ctx)
	if err != nil {
		return err
	}
	swept := 0
	for _, m := range memberships {
		count, err := h.stateRepo.SubscriberCount(ctx, m.ChannelID, m.UserID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := h.membershipRepo.Delete(ctx, m.ChannelID, m.UserID); err != nil {
			return err
		}
		swept++
	}
	if swept > 0 {
		logrus.WithFields(logrus.Fields{
			"component": "volatile_sweep",
			"swept":     swept,
			"checked":   len(memberships),
		}).Info("Volatile memberships swept")
	}
	return nil
}
