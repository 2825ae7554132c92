/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll browse server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, .env.local, process environment)
  2. Apply command-line overrides
  3. Open SQLite store, optionally seeding demo records
  4. Load the facet catalog (file or built-in payroll preset)
  5. Wire metrics, facet engine, API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database
  -seed    Load demo payroll records on startup (overrides SEED_DEMO)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Try it out with demo data
  ./server -db=":memory:" -seed

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  See config/config.go for the full list of variables.

SEE ALSO:
  - api/server.go: Router configuration
  - facet/engine.go: Facet engine
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-browse/api"
	"github.com/warp/payroll-browse/config"
	"github.com/warp/payroll-browse/facet"
	"github.com/warp/payroll-browse/factory"
	"github.com/warp/payroll-browse/metrics"
	"github.com/warp/payroll-browse/payroll"
	"github.com/warp/payroll-browse/store/sqlite"
)

func main() {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	seed := flag.Bool("seed", cfg.SeedDemo, "Load demo payroll records on startup")
	flag.Parse()
	cfg.Port, cfg.DBPath, cfg.SeedDemo = *port, *dbPath, *seed

	logger := cfg.Logger()

	// Initialize store
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			logger.WithError(err).Fatal("Failed to create data directory")
		}
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	if cfg.SeedDemo {
		records := payroll.DemoRecords()
		if err := store.InsertRecords(context.Background(), records...); err != nil {
			logger.WithError(err).Fatal("Failed to seed demo records")
		}
		logger.WithField("records", len(records)).Info("Seeded demo payroll")
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalog")
	}

	// Metrics
	var engineStore facet.Store = store
	opts := api.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)
		engineStore = m.WrapStore(store)
		opts.Metrics = m
		opts.MetricsHandler = metrics.Handler(reg)
		opts.MetricsPath = cfg.MetricsPath
	}

	// Initialize handler
	engine := facet.NewEngine(engineStore, catalog, cfg.Engine(), logger)
	handler := api.NewHandler(engine, logger)
	handler.Pinger = store

	// Create router
	router := api.NewRouter(handler, opts)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":       cfg.Port,
			"db":         cfg.DBPath,
			"dimensions": len(catalog.Dimensions()),
			"metrics":    cfg.MetricsEnabled,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// loadCatalog reads the catalog file when one is configured, otherwise it
// returns the built-in payroll preset.
func loadCatalog(path string) (*facet.Catalog, error) {
	if path == "" {
		return payroll.DefaultCatalog(), nil
	}
	return factory.NewCatalogFactory().LoadFile(path)
}
