package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/slack2zaim/internal/api/handlers"
	"github.com/dvloznov/slack2zaim/internal/api/middleware"
	"github.com/dvloznov/slack2zaim/internal/config"
	"github.com/dvloznov/slack2zaim/internal/gcs"
	"github.com/dvloznov/slack2zaim/internal/genre"
	"github.com/dvloznov/slack2zaim/internal/jobs/inmemory"
	"github.com/dvloznov/slack2zaim/internal/logger"
	"github.com/dvloznov/slack2zaim/internal/parser"
	"github.com/dvloznov/slack2zaim/internal/relay"
	"github.com/dvloznov/slack2zaim/internal/slack"
	"github.com/dvloznov/slack2zaim/internal/zaim"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (or set CONFIG_FILE env)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		l := logger.New("")
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	table, err := loadGenres(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load genre table")
	}
	if table.Len() == 0 {
		log.Warn().Msg("No genres configured - every message will be incomplete")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve timezone")
	}
	classifier := parser.NewClassifier(table, func() time.Time { return time.Now().In(loc) })

	zaimClient, err := zaim.NewClient(ctx, zaim.Credentials{
		ConsumerKey:       cfg.Zaim.ConsumerKey,
		ConsumerSecret:    cfg.Zaim.ConsumerSecret,
		AccessToken:       cfg.Zaim.OAuthToken,
		AccessTokenSecret: cfg.Zaim.OAuthTokenSecret,
	}, cfg.Zaim.APIURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Zaim client")
	}

	slackClient := slack.NewClient(cfg.Slack.Token, cfg.Slack.APIURL)
	rel := relay.New(classifier, table, zaimClient, slackClient, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore(cfg.Jobs.History)
	jobQueue := inmemory.NewQueue(cfg.Jobs.QueueSize, cfg.Jobs.WorkerCount, jobStore, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, rel.JobHandler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}
	log.Info().Int("workers", cfg.Jobs.WorkerCount).Int("genres", table.Len()).Msg("Job workers started")

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(jobQueue, cfg.Slack.WebhookToken, cfg.Slack.BotUserName, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	admin := middleware.BearerAuth(cfg.AdminToken)

	if cfg.AdminToken == "" {
		log.Warn().Msg("No ADMIN_TOKEN configured - job endpoints are disabled")
	}

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/slack/outgoing", webhookHandler.ServeHTTP)

	mux.Handle("/api/jobs", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/jobs/", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.HandleFunc("/health", handlers.Health)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(mux),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting relay server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting webhooks first so nothing new is queued.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// loadGenres reads the category table once at startup. A storage client is
// only created when the table lives in Cloud Storage.
func loadGenres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*genre.Table, error) {
	src := genre.Source{Inline: cfg.Zaim.Genre, URI: cfg.Zaim.GenreURI}

	var fetcher genre.ObjectFetcher
	if src.Inline == "" && strings.HasPrefix(src.URI, "gs://") {
		client, err := gcs.NewClient(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		defer client.Close()
		fetcher = client
	}

	table, err := genre.Load(ctx, src, fetcher)
	if err != nil {
		return nil, err
	}
	log.Info().Int("genres", table.Len()).Str("uri", src.URI).Msg("Genre table loaded")
	return table, nil
}
