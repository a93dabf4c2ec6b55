// hallctl is the operator CLI: world listing, config import and
// connection-level control of running servers.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/eventhall/eventhall/internal/bootstrap"
	"github.com/eventhall/eventhall/internal/bus"
	redisbus "github.com/eventhall/eventhall/internal/infra/bus/redis"
	gormpersistence "github.com/eventhall/eventhall/internal/infra/persistence/gorm"
	"github.com/eventhall/eventhall/internal/infra/setup"
	"github.com/eventhall/eventhall/internal/service"
)

const usage = `Usage: hallctl [flags] <command>

Commands:
  list_worlds                 List all configured worlds
  import_config <file>        Import or update a world from a JSON file
  drop <label-pattern>        Drop connections matching the label glob
  force_reload <label-pattern> Ask matching clients to reload themselves

Flags:
`

func main() {
	worldID := pflag.String("world", "", "scope drop/force_reload to one world")
	timeout := pflag.Duration("timeout", 10*time.Second, "operation timeout")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logrus.Fatalf("Could not load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch args[0] {
	case "list_worlds":
		runListWorlds(ctx, cfg)
	case "import_config":
		if len(args) < 2 {
			logrus.Fatal("import_config requires a file argument")
		}
		runImportConfig(ctx, cfg, args[1])
	case "drop":
		if len(args) < 2 {
			logrus.Fatal("drop requires a label pattern")
		}
		runControl(ctx, cfg, bus.ControlDrop, *worldID, args[1])
	case "force_reload":
		if len(args) < 2 {
			logrus.Fatal("force_reload requires a label pattern")
		}
		runControl(ctx, cfg, bus.ControlReload, *worldID, args[1])
	default:
		logrus.Fatalf("Unknown command: %s", args[0])
	}
}

func worldService(cfg *bootstrap.Config) *service.WorldService {
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.Fatalf("Could not connect to database: %v", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		logrus.Fatalf("Could not migrate database: %v", err)
	}
	return service.NewWorldService(
		gormpersistence.NewGormWorldRepository(db),
		gormpersistence.NewGormRoomRepository(db),
		gormpersistence.NewGormMediaRepository(db),
	)
}

func runListWorlds(ctx context.Context, cfg *bootstrap.Config) {
	worlds, err := worldService(cfg).List(ctx)
	if err != nil {
		logrus.Fatalf("Could not list worlds: %v", err)
	}
	if len(worlds) == 0 {
		fmt.Println("No worlds configured.")
		return
	}
	for _, w := range worlds {
		fmt.Printf("%s\t%s\t%s\n", w.ID, w.Title, w.Domain)
	}
}

func runImportConfig(ctx context.Context, cfg *bootstrap.Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatalf("Could not read %s: %v", path, err)
	}
	worlds := worldService(cfg)
	world, err := worlds.Import(ctx, data)
	if err != nil {
		logrus.Fatalf("Import failed: %v", err)
	}
	fmt.Printf("Imported world %s (%s)\n", world.ID, world.Title)

	// A running server only notices the change when told.
	publishControl(ctx, cfg, bus.ControlFrame{Op: bus.ControlWorldReload, WorldID: world.ID})
}

func runControl(ctx context.Context, cfg *bootstrap.Config, op, worldID, pattern string) {
	publishControl(ctx, cfg, bus.ControlFrame{Op: op, WorldID: worldID, LabelPattern: pattern})
	fmt.Printf("Published %s for pattern %q\n", op, pattern)
}

func publishControl(ctx context.Context, cfg *bootstrap.Config, frame bus.ControlFrame) {
	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logrus.Fatalf("Could not connect to Redis: %v", err)
	}
	defer redisClient.Close()

	messageBus, err := redisbus.NewRedisBus(ctx, redisClient, cfg.KeyPrefix, true)
	if err != nil {
		logrus.Fatalf("Could not open message bus: %v", err)
	}
	defer messageBus.Close()

	if err := bus.PublishControl(ctx, messageBus, frame); err != nil {
		logrus.Fatalf("Could not publish control frame: %v", err)
	}
}
