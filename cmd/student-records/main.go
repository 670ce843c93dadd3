// Command student-records serves the student records API.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (plus env overrides)
//  2. Initialise the zerolog logger
//  3. Open the database and migrate the students table
//  4. Build the service and register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/student-records --config=config/local.yaml
//
// or
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/student-records
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/http/handlers/health"
	"github.com/aanand-mishra/student-records/internal/http/handlers/student"
	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/logger"
	"github.com/aanand-mishra/student-records/internal/observability"
	"github.com/aanand-mishra/student-records/internal/service"
	"github.com/aanand-mishra/student-records/internal/storage/gormstore"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad exits the process on any problem, so cfg is valid below.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Console output in dev, JSON in staging and prod.
	log := logger.New(cfg.Env, os.Stdout)
	log.Info().Str("env", cfg.Env).Str("version", "1.0.0").Msg("starting student-records")

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	// The driver (sqlite or postgres) comes from config. The rest of the
	// program only sees the storage.Storage interface.
	store, err := gormstore.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise storage")
	}
	defer store.Close()

	log.Info().Str("driver", cfg.Database.Driver).Msg("storage initialised")

	// ── 4. Wire Service and Routes ────────────────────────────────────────
	// Route table:
	//   POST   /api/students        → create a new student
	//   GET    /api/students        → list all students
	//   GET    /api/students/{id}   → get one student by ID
	//   PUT    /api/students/{id}   → merge fields into a student
	//   DELETE /api/students/{id}   → delete a student
	//   GET    /healthz             → database ping
	//   GET    /metrics             → Prometheus scrape endpoint
	studentService := service.NewStudentService(store, log)

	router := http.NewServeMux()
	student.Register(router, studentService, log)
	router.HandleFunc("GET /healthz", health.Check(store, log))
	router.Handle("GET /metrics", observability.MetricsHandler())

	// Middleware order, outermost first: request id, access log, metrics.
	// Metrics sits directly around the router so it can read r.Pattern.
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      middleware.Chain(router, middleware.RequestID, middleware.AccessLog(log), middleware.Metrics),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// ── 5. Start Server in a Goroutine ────────────────────────────────────
	// ListenAndServe blocks, so it runs on its own goroutine and main moves
	// on to wait for a signal. http.ErrServerClosed is the normal result of
	// Shutdown and is not an error.
	go func() {
		log.Info().Str("address", cfg.Addr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server encountered an error")
		}
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	// Buffered so a signal is not dropped while main is busy.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info().Msg("shutdown signal received, stopping server")

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	// Shutdown stops accepting connections and waits for active requests
	// until the deadline. The deferred store.Close runs after it.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
		return
	}

	log.Info().Msg("server stopped gracefully")
}
