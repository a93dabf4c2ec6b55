package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/eventhall/eventhall/internal/bus"
	httphandler "github.com/eventhall/eventhall/internal/handler/http"
	wshandler "github.com/eventhall/eventhall/internal/handler/websocket"
	"github.com/eventhall/eventhall/internal/hub"
	redisbus "github.com/eventhall/eventhall/internal/infra/bus/redis"
	gormpersistence "github.com/eventhall/eventhall/internal/infra/persistence/gorm"
	"github.com/eventhall/eventhall/internal/infra/setup"
	redisstate "github.com/eventhall/eventhall/internal/infra/state/redis"
	"github.com/eventhall/eventhall/internal/middleware"
	"github.com/eventhall/eventhall/internal/module"
	"github.com/eventhall/eventhall/internal/service"
	"github.com/eventhall/eventhall/internal/worker"
)

// Config carries everything the process reads from the environment.
type Config struct {
	AppEnv     string
	LogLevel   string
	ServerPort string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	BusStrict   bool
	AuthTimeout time.Duration

	ReactionWindow time.Duration
	EventRetention time.Duration
	TurnCredTTL    time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadConfig reads the environment, optionally seeded from a .env file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		AppEnv:     envOr("APP_ENV", "development"),
		LogLevel:   envOr("LOG_LEVEL", "info"),
		ServerPort: envOr("SERVER_PORT", "8080"),

		DBUser:     os.Getenv("MYSQL_USER"),
		DBPassword: os.Getenv("MYSQL_PASSWORD"),
		DBHost:     envOr("MYSQL_HOST", "127.0.0.1"),
		DBPort:     envOr("MYSQL_PORT", "3306"),
		DBName:     envOr("MYSQL_DB", "eventhall_db"),

		RedisAddr:     envOr("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		KeyPrefix:     envOr("KEY_PREFIX", "eh:"),

		BusStrict:   envBool("BUS_STRICT", false),
		AuthTimeout: envDuration("AUTH_TIMEOUT", 10*time.Second),

		ReactionWindow: envDuration("REACTION_WINDOW", time.Second),
		EventRetention: envDuration("EVENT_RETENTION", 0),
		TurnCredTTL:    envDuration("TURN_CREDENTIAL_TTL", 24*time.Hour),

		RateLimitMax:    envInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Minute),
	}

	if cfg.DBUser == "" || cfg.DBPassword == "" {
		return nil, fmt.Errorf("MYSQL_USER and MYSQL_PASSWORD must be set")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("Invalid value for %s, using default: %v", key, err)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.Warnf("Invalid value for %s, using default: %v", key, err)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.Warnf("Invalid value for %s, using default: %v", key, err)
		return fallback
	}
	return d
}

// App holds the assembled application.
type App struct {
	Config *Config
	Logger *logrus.Logger

	DB          *gorm.DB
	RedisClient *redis.Client

	Bus          bus.Bus
	Hub          *hub.Hub
	Reactions    *service.ReactionService
	WorkerServer *worker.WorkerServer
	HTTPServer   *http.Server
}

// NewApp wires the whole application together in dependency order.
func NewApp(cfg *Config) (*App, error) {
	// 1. Logger
	logger := logrus.StandardLogger()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.AppEnv == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.Info("Logger initialized")

	// 2. Database
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("database migration: %w", err)
	}

	// 3. Redis
	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("redis init: %w", err)
	}
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// 4. Repositories
	worldRepo := gormpersistence.NewGormWorldRepository(db)
	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	membershipRepo := gormpersistence.NewGormMembershipRepository(db)
	eventRepo := gormpersistence.NewGormEventRepository(db)
	questionRepo := gormpersistence.NewGormQuestionRepository(db)
	pollRepo := gormpersistence.NewGormPollRepository(db)
	reactionRepo := gormpersistence.NewGormReactionRepository(db)
	mediaRepo := gormpersistence.NewGormMediaRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)
	logger.Info("Repositories initialized")

	// 5. Bus
	messageBus, err := redisbus.NewRedisBus(context.Background(), redisClient, cfg.KeyPrefix, cfg.BusStrict)
	if err != nil {
		return nil, fmt.Errorf("bus init: %w", err)
	}
	logger.WithField("strict", cfg.BusStrict).Info("Message bus initialized")

	// 6. Services
	authService := service.NewAuthService(userRepo)
	worldService := service.NewWorldService(worldRepo, roomRepo, mediaRepo)
	chatService := service.NewChatService(eventRepo, roomRepo, membershipRepo, stateRepo, userRepo)
	questionService := service.NewQuestionService(questionRepo, stateRepo)
	pollService := service.NewPollService(pollRepo, stateRepo)
	reactionService := service.NewReactionService(reactionRepo, stateRepo, cfg.ReactionWindow)
	exhibitionService := service.NewExhibitionService()
	mediaService := service.NewMediaService(mediaRepo, cfg.TurnCredTTL)
	logger.Info("Services initialized")

	// 7. Command router
	router := module.NewRouter(
		worldService,
		module.NewChatModule(chatService, messageBus),
		module.NewQuestionModule(questionService, messageBus),
		module.NewPollModule(pollService, messageBus),
		module.NewReactionModule(reactionService),
		module.NewExhibitionModule(exhibitionService, messageBus),
		module.NewTurnModule(mediaService),
		module.NewJanusModule(mediaService),
		module.NewWorldModule(worldService, reactionService, messageBus),
		module.NewUserModule(authService, messageBus),
	)

	// 8. Hub
	connectionHub := hub.NewHub(messageBus, router, worldService, authService, chatService, stateRepo, cfg.AuthTimeout)

	// 9. Worker
	workerServer := worker.NewWorkerServer(redisOpt, membershipRepo, stateRepo, eventRepo, worldRepo, cfg.EventRetention, logger)

	// 10. HTTP surface
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	wsHandler := wshandler.NewWebSocketHandler(connectionHub, worldService)
	healthHandler := httphandler.NewHealthHandler(db, redisClient)
	controlHandler := httphandler.NewControlHandler(worldService, stateRepo, messageBus)

	engine.GET("/healthz", healthHandler.Check)
	engine.GET("/ws/world/:world", wsHandler.Handle)

	control := engine.Group("/control/worlds/:world")
	control.Use(
		middleware.RateLimit(stateRepo, cfg.RateLimitMax, cfg.RateLimitWindow),
		middleware.APIKeyAuth(worldService),
	)
	control.GET("", controlHandler.Summary)
	control.POST("/reload", controlHandler.Reload)

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: engine,
	}
	logger.Info("HTTP server configured")

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		RedisClient:  redisClient,
		Bus:          messageBus,
		Hub:          connectionHub,
		Reactions:    reactionService,
		WorkerServer: workerServer,
		HTTPServer:   httpServer,
	}, nil
}

// Start launches the hub, the reaction flusher, the worker and the HTTP
// listener. It returns immediately; errors from the listener are fatal.
func (a *App) Start() {
	go a.Hub.Run()

	a.Reactions.Start(func(worldID, roomID string, counts map[string]int) {
		frame := map[string]interface{}{
			"type":      "reaction.aggregate",
			"room":      roomID,
			"reactions": counts,
		}
		payload, err := json.Marshal(frame)
		if err != nil {
			a.Logger.Errorf("Could not marshal reaction aggregate: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Bus.Publish(ctx, bus.Event{
			Channel: bus.RoomTopic(worldID, roomID),
			Type:    "reaction.aggregate",
			Payload: payload,
		}); err != nil {
			a.Logger.Errorf("Could not publish reaction aggregate: %v", err)
		}
	})

	go a.WorkerServer.Start()

	go func() {
		a.Logger.Infof("HTTP server listening on :%s", a.Config.ServerPort)
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatalf("HTTP server failed: %v", err)
		}
	}()
}

// Shutdown stops components in reverse dependency order.
func (a *App) Shutdown(ctx context.Context) {
	a.Logger.Info("Shutting down...")

	a.Hub.Stop()
	a.Reactions.Stop()
	a.WorkerServer.Shutdown()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Errorf("HTTP server shutdown: %v", err)
	}
	if err := a.Bus.Close(); err != nil {
		a.Logger.Errorf("Bus close: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Logger.Errorf("Redis close: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Logger.Errorf("Database close: %v", err)
		}
	}

	a.Logger.Info("Shutdown complete")
}

// LoggerMiddleware logs every HTTP request with latency and status.
func LoggerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    path,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
		} else if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Info("Request handled")
		}
	}
}
