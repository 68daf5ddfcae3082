/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Treasury Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load engine configuration (seeds the default on first run)
  4. Configure HTTP router and the escalation sweeper
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: treasury.db)
                   Use ":memory:" for in-memory database
  -sweep-interval  Escalation sweep interval (default: 1h)
  -no-sweep        Disable the background sweeper

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper, close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/treasury.db"

  # Run with in-memory database, sweeping every minute
  ./server -db=":memory:" -sweep-interval=1m

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Escalation sweeper
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/treasury-engine/api"
	"github.com/warp/treasury-engine/notify"
	"github.com/warp/treasury-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "treasury.db", "SQLite database path")
	sweepInterval := flag.Duration("sweep-interval", time.Hour, "escalation sweep interval")
	noSweep := flag.Bool("no-sweep", false, "disable the background escalation sweeper")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler and load configuration
	gateway := notify.LogGateway{}
	handler := api.NewHandler(store, gateway)
	if err := handler.LoadConfig(context.Background()); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Escalation sweeper
	sweeper := api.NewEscalationSweeper(store, handler, gateway)
	sweeper.SweepInterval = *sweepInterval
	sweeper.Enabled = !*noSweep
	handler.Sweeper = sweeper
	sweeper.Start()
	defer sweeper.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
