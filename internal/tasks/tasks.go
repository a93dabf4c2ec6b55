package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	// TypeVolatileSweep removes volatile memberships whose user has no live
	// subscription left anywhere.
	TypeVolatileSweep = "membership:sweep"

	// TypeRetentionTrim deletes chat events older than the configured
	// retention period.
	TypeRetentionTrim = "events:trim"
)

// RetentionTrimPayload scopes a trim run to one world. An empty WorldID
// trims every world.
type RetentionTrimPayload struct {
	WorldID string `json:"world_id,omitempty"`
}

func NewVolatileSweepTask() *asynq.Task {
	return asynq.NewTask(TypeVolatileSweep, nil)
}

func NewRetentionTrimTask(worldID string) (*asynq.Task, error) {
	payload, err := json.Marshal(RetentionTrimPayload{WorldID: worldID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRetentionTrim, payload), nil
}
