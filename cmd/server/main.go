package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/internal/ai"
	"github.com/diewo77/inspection-workshop/internal/config"
	"github.com/diewo77/inspection-workshop/internal/db"
	"github.com/diewo77/inspection-workshop/internal/handlers"
	"github.com/diewo77/inspection-workshop/internal/nav"
	"github.com/diewo77/inspection-workshop/internal/notify"
	"github.com/diewo77/inspection-workshop/internal/policy"
	"github.com/diewo77/inspection-workshop/internal/poller"
	"github.com/diewo77/inspection-workshop/internal/prefs"
	"github.com/diewo77/inspection-workshop/internal/state"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/diewo77/inspection-workshop/internal/store"
	"github.com/joho/godotenv"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

// subjectCacheTTL bounds how long a permission change takes to apply.
const subjectCacheTTL = 30 * time.Second

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Load configuration from environment
	cfg := config.Load()

	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Handle migrate-only flag
	if *migrateOnlyFlag {
		if err := migrate(cfg); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}

	// Handle seed-only flag
	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seeding completed successfully")
		return
	}

	// Run migrations on startup if enabled
	if cfg.App.Migrations {
		if err := migrate(cfg); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed")
	}

	// Seed default settings and catalog
	if err := db.Seed(dbConn); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	files, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Server.BaseURL, cfg.Storage.MaxImageSide)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	client := store.New(dbConn, files)
	st := state.New(client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.Refresh(ctx); err != nil {
		log.Printf("Initial load failed: %v", err)
	}
	cancel()

	authGate := policy.NewAuthGate(client.Employees, subjectCacheTTL)
	sessions := auth.NewSessions(cfg.Auth.Secret, cfg.Auth.SessionTTL, cfg.Auth.CookieName, cfg.Auth.Secure)
	// Sessions of removed or disabled employees are rejected.
	sessions.SetVerifier(authGate.Verify)

	logger := log.New(os.Stderr, "[poller] ", log.LstdFlags)
	poll := poller.New(st, poller.WithInterval(cfg.App.RefreshInterval), poller.WithLogger(logger))
	poll.Start()

	userPrefs := prefs.New(client.ClientState)
	svc := &Services{
		Config: cfg,
		Deps: handlers.Deps{
			State:   st,
			Gate:    authGate,
			Notify:  notify.NewCenter(notify.WithTTL(cfg.App.NotificationTTL)),
			Storage: files,
			Logger:  log.New(os.Stderr, "[http] ", log.LstdFlags),
		},
		Sessions: sessions,
		Files:    files,
		Poller:   poll,
		Nav:      nav.NewNavigator(userPrefs, cfg.App.HistoryDepth),
		Prefs:    userPrefs,
		AI: ai.New(ai.Config{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AI.Timeout,
		}),
	}

	// Create server with config timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(NewApp(svc)),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s (dev=%v, ai=%v)", cfg.Server.Port, cfg.App.Dev, svc.AI.Enabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	poll.Stop()
	log.Println("Server stopped gracefully")
}

// migrate applies the versioned SQL migrations on PostgreSQL and gorm
// AutoMigrate on the other drivers.
func migrate(cfg *config.Config) error {
	if cfg.Database.Driver == "postgres" || cfg.Database.Driver == "" {
		return db.MigrateSQL(cfg.Database.URL())
	}
	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	return db.Migrate(dbConn)
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
