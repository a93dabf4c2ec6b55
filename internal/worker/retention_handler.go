package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/repository"
	"github.com/eventhall/eventhall/internal/tasks"
)

// RetentionTrimHandler deletes chat events older than the retention period.
type RetentionTrimHandler struct {
	eventRepo repository.EventRepository
	worldRepo repository.WorldRepository
	retention time.Duration
}

func NewRetentionTrimHandler(eventRepo repository.EventRepository, worldRepo repository.WorldRepository, retention time.Duration) *RetentionTrimHandler {
	if eventRepo == nil || worldRepo == nil {
		panic("repositories cannot be nil for RetentionTrimHandler")
	}
	return &RetentionTrimHandler{eventRepo: eventRepo, worldRepo: worldRepo, retention: retention}
}

// Enabled reports whether retention trimming is configured at all.
func (h *RetentionTrimHandler) Enabled() bool {
	return h.retention > 0
}

func (h *RetentionTrimHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if !h.Enabled() {
		return nil
	}
	var payload tasks.RetentionTrimPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return err
		}
	}
	cutoff := time.Now().Add(-h.retention)

	var worldIDs []string
	if payload.WorldID != "" {
		worldIDs = []string{payload.WorldID}
	} else {
		worlds, err := h.worldRepo.FindAll(ctx)
		if err != nil {
			return err
		}
		for _, w := range worlds {
			worldIDs = append(worldIDs, w.ID)
		}
	}

	for _, worldID := range worldIDs {
		removed, err := h.eventRepo.DeleteOlderThan(ctx, worldID, cutoff)
		if err != nil {
			return err
		}
		if removed > 0 {
			logrus.WithFields(logrus.Fields{
				"component": "retention_trim",
				"world_id":  worldID,
				"removed":   removed,
			}).Info("Old chat events trimmed")
		}
	}
	return nil
}
