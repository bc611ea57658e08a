/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Draw Cascade Engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Build the zap logger
  3. Load jurisdiction rule tables (built-ins, optionally overridden)
  4. Initialize SQLite store
  5. Create API handler with dependencies
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: cascade.db)
            Use ":memory:" for in-memory database
  -rules    Optional YAML rule file; entries override built-in tables
  -budget   Annual activity budget in dollars (0 disables the
            success-disaster check)
  -float    Concurrent float tolerance in dollars
  -days     Available field days per year (0 disables the day check)
  -dev      Development logging (human-readable, debug level)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and custom rules
  ./server -db="./data/cascade.db" -rules="./rules.yaml"

  # Run with in-memory database and planner thresholds
  ./server -db=":memory:" -budget=9000 -float=2000 -days=14

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - jurisdictions/rulefile.go: Rule file format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/draw-cascade/api"
	"github.com/warp/draw-cascade/engine"
	"github.com/warp/draw-cascade/jurisdictions"
	"github.com/warp/draw-cascade/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "cascade.db", "SQLite database path")
	ruleFile := flag.String("rules", "", "YAML rule file overriding built-in tables")
	budget := flag.Float64("budget", 0, "annual activity budget in dollars")
	floatLimit := flag.Float64("float", 0, "concurrent float tolerance in dollars")
	days := flag.Int("days", 0, "available field days per year")
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	// Logger
	logger, err := buildLogger(*dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Rule tables
	rules := jurisdictions.DefaultRules()
	if *ruleFile != "" {
		rules, err = jurisdictions.LoadRuleFile(*ruleFile)
		if err != nil {
			logger.Fatal("failed to load rule file", zap.String("path", *ruleFile), zap.Error(err))
		}
		logger.Info("rule file loaded", zap.String("path", *ruleFile), zap.Strings("codes", rules.Codes()))
	}

	// Planner config
	cfg := engine.DefaultConfig()
	cfg.AnnualActivityBudget = engine.NewMoney(*budget)
	cfg.FloatLimit = engine.NewMoney(*floatLimit)
	cfg.AvailableDays = *days

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer store.Close()

	// Initialize handler and router
	handler := api.NewHandler(store, rules, cfg, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("addr", fmt.Sprintf("http://localhost:%d", *port)),
			zap.String("db", *dbPath),
			zap.Int("jurisdictions", len(rules)),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
