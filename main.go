package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/einzel-data/focal.report/internal/api"
	"github.com/einzel-data/focal.report/internal/config"
	"github.com/einzel-data/focal.report/internal/db"
	"github.com/einzel-data/focal.report/internal/units"
	"github.com/einzel-data/focal.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "focal_data.db", "Path to the query history database")
	outputUnits   = flag.String("units", "", "Output units for lengths (m, mm, um, nm); defaults to the config file value")
	configFile    = flag.String("config", "", "Path to a chip defaults JSON file")
	migrationsDir = flag.String("migrations", "migrations", "Path to schema migrations")
	runMigrations = flag.Bool("migrate", false, "Run schema migrations and exit")
)

func homeHandler(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "Welcome to the Einzel Lens Server!")
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyChipConfig()
	if *configFile != "" {
		loaded, err := config.LoadChipConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *outputUnits != "" && !units.IsValid(*outputUnits) {
		log.Fatalf("Invalid units %q, valid values: %s", *outputUnits, units.ValidUnitsString())
	}

	store, err := db.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if *runMigrations {
		if err := store.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		v, dirty, err := store.MigrateVersion(*migrationsDir)
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		log.Printf("Schema at version %d (dirty=%v)", v, dirty)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewServer(store, cfg, *outputUnits).ServeMux())
	mux.HandleFunc("/", homeHandler)

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	go func() {
		log.Printf("focal.report %s listening on %s", version.Version, *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("Graceful shutdown complete")
}
