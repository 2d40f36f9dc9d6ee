package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/slack2zaim/internal/api/middleware"
	"github.com/dvloznov/slack2zaim/internal/jobs"
	"github.com/dvloznov/slack2zaim/internal/jobs/inmemory"
	"github.com/dvloznov/slack2zaim/internal/logger"
	"github.com/dvloznov/slack2zaim/internal/slack"
	"github.com/rs/zerolog"
)

const (
	// maxWebhookBody caps the form body Slack may send.
	maxWebhookBody = 64 << 10

	// publishTimeout bounds how long the webhook waits for queue space.
	// Slack gives up on an outgoing webhook after three seconds.
	publishTimeout = time.Second
)

// WebhookHandler accepts Slack outgoing webhook posts.
// It always answers with an empty 200; the result is reported asynchronously.
type WebhookHandler struct {
	publisher jobs.Publisher
	token     string
	botName   string
	log       zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(publisher jobs.Publisher, token, botName string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		publisher: publisher,
		token:     token,
		botName:   botName,
		log:       log,
	}
}

// ServeHTTP handles POST /slack/outgoing
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOr(r.Context(), h.log)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	msg, err := slack.ParseOutgoing(r)
	switch {
	case errors.Is(err, slack.ErrEmptyForm):
		log.Info().Str("method", r.Method).Msg("Ignoring request without form data")
		w.WriteHeader(http.StatusOK)
		return
	case err != nil:
		log.Warn().Err(err).Msg("Failed to parse webhook form")
		w.WriteHeader(http.StatusOK)
		return
	}

	log = log.With().
		Str("channel_id", msg.ChannelID).
		Str("timestamp", msg.Timestamp).
		Str("user_name", msg.UserName).
		Logger()

	if !msg.ValidToken(h.token) {
		log.Warn().Str("team_id", msg.TeamID).Msg("Rejected webhook with invalid token")
		w.WriteHeader(http.StatusOK)
		return
	}

	if msg.UserName == h.botName {
		log.Info().Msg("Ignoring message posted by the bot")
		w.WriteHeader(http.StatusOK)
		return
	}

	job := &jobs.ExpenseJob{
		RequestID: middleware.GetRequestID(r.Context()),
		ChannelID: msg.ChannelID,
		Timestamp: msg.Timestamp,
		UserName:  msg.UserName,
		Text:      msg.Text,
	}

	ctx, cancel := context.WithTimeout(r.Context(), publishTimeout)
	defer cancel()

	if err := h.publisher.PublishExpense(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue expense job")
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Info().Str("job_id", job.JobID).Msg("Expense job enqueued")
	w.WriteHeader(http.StatusOK)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if errors.Is(err, inmemory.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		ChannelID: query.Get("channel_id"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
