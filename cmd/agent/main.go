package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldworks/sitereport/internal/ai"
	"github.com/fieldworks/sitereport/internal/config"
	"github.com/fieldworks/sitereport/internal/document"
	"github.com/fieldworks/sitereport/internal/handlers"
	"github.com/fieldworks/sitereport/internal/lock"
	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/photo"
	"github.com/fieldworks/sitereport/internal/refdata"
	"github.com/fieldworks/sitereport/internal/report"
	"github.com/fieldworks/sitereport/internal/storage"
	appsync "github.com/fieldworks/sitereport/internal/sync"
	"github.com/fieldworks/sitereport/internal/utils"
	"github.com/fieldworks/sitereport/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Stable device identity (lock records and sync payloads use it)
	identity, err := utils.LoadOrGenerateIdentity()
	if err != nil {
		log.Fatalf("Failed to load device identity: %v", err)
	}

	// 3. Local tier (detects embedded vs external automatically)
	local, err := storage.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to local database: %v", err)
	}

	// 4. Auto-migrate schema
	log.Println("🚀 Synchronizing database schema...")
	err = local.AutoMigrate(
		&models.Report{},
		&models.Entry{},
		&models.Photo{},
		&models.ContractorActivity{},
		&models.PersonnelCount{},
		&models.EquipmentRow{},
		&models.EditLock{},
		&models.OutboxItem{},
		&models.Project{},
		&models.Contractor{},
		&models.Inspector{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 5. Ephemeral tier + remote tier
	flags := storage.NewFlags()
	flags.Set(storage.FlagDeviceID, identity.DeviceID)
	flags.Set(storage.FlagDeviceName, identity.DeviceName)

	deviceToken, err := utils.GenerateDeviceToken(identity.DeviceID, cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to mint device token: %v", err)
	}
	remote := storage.NewRemote(cfg.Remote.BaseURL, deviceToken, cfg.Remote.Timeout)
	store := storage.NewManager(flags, local, remote)

	// 6. UI event hub
	hub := websocket.NewHub()
	go hub.Run()

	// 7. Sync engine over the durable outbox, draining on reconnect
	var engine *appsync.Engine
	monitor := appsync.NewMonitor(remote.Healthy, cfg.Sync.HealthInterval, func(online bool) {
		hub.Notify("connectivity_changed", map[string]bool{"online": online})
		if online && engine != nil {
			engine.DrainNow()
		}
	})
	engine = appsync.NewEngine(appsync.NewGormStore(local.DB), remote, monitor.IsOnline, cfg.Sync.DrainInterval)
	engine.SetNotifier(func(event string, data map[string]string) {
		hub.Notify(event, data)
	})
	engine.SetFailureObserver(monitor.ReportFailure)
	store.SetOnlineCheck(monitor.IsOnline)

	// 8. Edit-session lock + report service
	holderName := identity.DeviceName
	locks := lock.NewManager(remote, identity.DeviceID, holderName, cfg.Lock.Staleness, cfg.Lock.Heartbeat)
	service := report.NewService(store, locks, hub, cfg.Debounce)

	// 9. Photo pipeline
	photos := photo.NewPipeline(store, remote, monitor.IsOnline)

	// 10. AI refinement collaborator
	var refiner report.Refiner
	var gemini *ai.GeminiClient
	if cfg.AI.GeminiAPIKey != "" {
		gemini, err = ai.NewGeminiClient(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.Model)
		if err != nil {
			log.Printf("⚠️ AI refinement unavailable: %v", err)
		} else {
			refiner = ai.NewRefiner(gemini, cfg.AI.Timeout)
			log.Println("✅ AI refinement ready")
		}
	} else {
		log.Println("⚠️ GEMINI_API_KEY not set, refinement disabled")
	}

	// 11. Document builder
	docs := document.NewBuilder(remote, store, cfg.Remote.BaseURL)

	// 12. Reference data client (optional backend)
	var refClient *refdata.Client
	if cfg.RefData.URL != "" {
		refClient = refdata.NewClient(cfg.RefData.URL, cfg.RefData.Database, cfg.RefData.Username, cfg.RefData.Password)
	}

	// 13. Start background services
	if cfg.Sync.Enabled {
		monitor.Start()
		engine.Start()
	} else {
		log.Println("⚠️ Sync disabled by configuration, staying offline")
	}

	// Refresh reference data once reachable, without blocking startup
	if refClient != nil {
		go func() {
			time.Sleep(5 * time.Second)
			if monitor.IsOnline() {
				if err := refClient.RefreshCache(store); err != nil {
					log.Printf("⚠️ Initial reference data refresh failed: %v", err)
				}
			}
		}()
	}

	// 14. HTTP surface for the UI shell
	router := handlers.NewRouter(handlers.Deps{
		Service:   service,
		Store:     store,
		Engine:    engine,
		Monitor:   monitor,
		Photos:    photos,
		Refiner:   refiner,
		Docs:      docs,
		Hub:       hub,
		RefData:   refClient,
		JWTSecret: cfg.JWTSecret,
	})

	server := &http.Server{
		Addr:    "127.0.0.1:" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Agent (%s) listening on 127.0.0.1:%s\n", identity.DeviceName, cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Flush the open session and release the edit lock before dying
	if err := service.Close(ctx); err != nil && !errors.Is(err, report.ErrNoSession) {
		log.Printf("Session close error: %v", err)
	}

	engine.Stop()
	monitor.Stop()
	if gemini != nil {
		gemini.Close()
	}

	log.Println("🛑 Closing database connection...")
	if err := local.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
