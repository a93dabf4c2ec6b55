package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/eventhall/eventhall/internal/domain"
)

// MigrateDB applies the schema for every model using the provided GORM DB
// instance.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.World{},
		&domain.User{},
		&domain.Room{},
		&domain.Channel{},
		&domain.Membership{},
		&domain.ChatEvent{},
		&domain.AuditLog{},
		&domain.Question{},
		&domain.QuestionVote{},
		&domain.Poll{},
		&domain.PollOption{},
		&domain.PollVote{},
		&domain.Reaction{},
		&domain.Feedback{},
		&domain.TurnServer{},
		&domain.JanusServer{},
	)
	if err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
