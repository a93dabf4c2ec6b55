package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/repository"
	"github.com/eventhall/eventhall/internal/tasks"
)

// WorkerServer wraps the asynq server and the periodic task scheduler.
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	log       *logrus.Entry

	sweepHandler     *VolatileSweepHandler
	retentionHandler *RetentionTrimHandler
}

// NewWorkerServer builds the background worker. retention <= 0 disables the
// trim task entirely.
func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	membershipRepo repository.MembershipRepository,
	stateRepo repository.StateRepository,
	eventRepo repository.EventRepository,
	worldRepo repository.WorldRepository,
	retention time.Duration,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	return &WorkerServer{
		server:           server,
		scheduler:        scheduler,
		log:              logEntry,
		sweepHandler:     NewVolatileSweepHandler(membershipRepo, stateRepo),
		retentionHandler: NewRetentionTrimHandler(eventRepo, worldRepo, retention),
	}
}

// Start runs the worker and its scheduler. It should run in its own
// goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeVolatileSweep, ws.sweepHandler.ProcessTask)
	mux.HandleFunc(tasks.TypeRetentionTrim, ws.retentionHandler.ProcessTask)

	if _, err := ws.scheduler.Register("@every 1m", tasks.NewVolatileSweepTask(), asynq.Queue("low")); err != nil {
		ws.log.Fatalf("Could not register volatile sweep schedule: %v", err)
	}
	if ws.retentionHandler.Enabled() {
		trimTask, err := tasks.NewRetentionTrimTask("")
		if err != nil {
			ws.log.Fatalf("Could not build retention trim task: %v", err)
		}
		if _, err := ws.scheduler.Register("@every 1h", trimTask, asynq.Queue("low")); err != nil {
			ws.log.Fatalf("Could not register retention trim schedule: %v", err)
		}
	}

	go func() {
		if err := ws.scheduler.Run(); err != nil {
			ws.log.Errorf("Scheduler stopped: %v", err)
		}
	}()

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown gracefully stops the worker and scheduler.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
