package main

import (
	"flag"
	"log"
	"os"
	"time"

	v1 "go_modelops/api/v1"
	"go_modelops/internal/cache"
	"go_modelops/internal/config"
	"go_modelops/internal/db"
	"go_modelops/internal/deploy"
	"go_modelops/internal/health"
	"go_modelops/internal/modellock"
	"go_modelops/internal/perf"
	"go_modelops/internal/predictor"
	"go_modelops/internal/registry"
	"go_modelops/internal/rollback"
	"go_modelops/internal/snapshot"
	"go_modelops/internal/traffic"
	"go_modelops/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	iniPath := flag.String("config", "", "path to INI config file (optional)")
	flag.Parse()

	// 1. Load configuration
	var cfg *config.Config
	var err error
	if *iniPath != "" {
		cfg, err = config.LoadFromINI(*iniPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Println("✓ Configuration loaded")

	// 2. Initialize MySQL
	if err := db.InitMySQL(cfg.MySQL.DSN); err != nil {
		log.Fatalf("Failed to initialize MySQL: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(db.GetDB()); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
			os.Exit(1)
		}
		log.Println("✓ Schema migrated")
	}

	// 3. Initialize Redis (optional, metrics cache only)
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("Redis unavailable, running without metrics cache: %v", err)
	}
	defer cache.Close()

	// 4. Event hub
	hub := ws.NewHub(db.GetDB())
	defer hub.Close()

	// 5. Inference backend
	loader := predictor.NewLoader()
	loader.SetDefault(func(version string) (predictor.Predictor, error) {
		return predictor.NewOpenAIPredictor(cfg.Predictor.APIKey, cfg.Predictor.BaseURL, cfg.Predictor.Model)
	})
	checker := health.NewChecker(loader, health.Config{
		Timeout:       time.Duration(cfg.HealthProbe.TimeoutSec) * time.Second,
		MaxLatency:    time.Duration(cfg.HealthProbe.MaxLatencySec * float64(time.Second)),
		ProbeRequests: cfg.HealthProbe.ProbeRequests,
		MaxErrors:     cfg.HealthProbe.MaxErrors,
	})

	// 6. Services
	locks := modellock.NewRegistry()
	trafficCtl := traffic.NewController(db.GetDB())
	snapshots := snapshot.NewStore(db.GetDB(), trafficCtl)
	tracker := perf.NewTracker(db.GetDB())
	tracker.SetPublisher(hub)
	catalog := registry.NewService(db.GetDB())

	deployments := deploy.NewService(db.GetDB(), trafficCtl, snapshots, locks, checker, deploy.Options{
		ObserveInterval: time.Duration(cfg.Deploy.ObserveIntervalSec) * time.Second,
		CanaryStages:    cfg.Deploy.CanaryStages,
	})
	deployments.SetPublisher(hub)

	rollbacks := rollback.NewService(db.GetDB(), trafficCtl, snapshots, tracker, locks)

	// 7. Auto-rollback worker
	if cfg.AutoRollbackWorker.Enabled {
		worker := rollback.NewWorker(&rollback.WorkerConfig{
			DB:             db.GetDB(),
			Service:        rollbacks,
			IntervalSec:    cfg.AutoRollbackWorker.IntervalSec,
			ErrorThreshold: cfg.AutoRollbackWorker.ErrorThreshold,
		})
		worker.Start()
		defer worker.Stop()
		log.Println("✓ Auto-rollback worker started")
	}

	// 8. HTTP server
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/socket.io/*any", gin.WrapH(hub.Server()))
	r.POST("/socket.io/*any", gin.WrapH(hub.Server()))

	v1.SetupRouter(r, v1.Deps{
		Registry:    catalog,
		Deployments: deployments,
		Rollbacks:   rollbacks,
		Tracker:     tracker,
		Loader:      loader,
	})

	log.Printf("✓ Server starting on %s", cfg.HTTPAddr)

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
