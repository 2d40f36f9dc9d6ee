package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dvloznov/slack2zaim/internal/jobs"
	"github.com/dvloznov/slack2zaim/internal/jobs/inmemory"
	"github.com/rs/zerolog"
)

// MockPublisher is a mock implementation of jobs.Publisher for testing.
type MockPublisher struct {
	PublishExpenseFunc func(ctx context.Context, job *jobs.ExpenseJob) error

	published []*jobs.ExpenseJob
}

func (m *MockPublisher) PublishExpense(ctx context.Context, job *jobs.ExpenseJob) error {
	m.published = append(m.published, job)
	if m.PublishExpenseFunc != nil {
		return m.PublishExpenseFunc(ctx, job)
	}
	job.JobID = "job-1"
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func webhookRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/slack/outgoing", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func validForm() url.Values {
	return url.Values{
		"token":      {"hook-token"},
		"team_id":    {"T1"},
		"channel_id": {"C1"},
		"timestamp":  {"1700000000.000100"},
		"user_name":  {"taro"},
		"text":       {"2/14 食費 1200 ランチ"},
	}
}

func TestWebhookHandler(t *testing.T) {
	tests := []struct {
		name        string
		req         func() *http.Request
		wantPublish bool
	}{
		{
			name:        "valid message is enqueued",
			req:         func() *http.Request { return webhookRequest(validForm()) },
			wantPublish: true,
		},
		{
			name:        "GET is ignored",
			req:         func() *http.Request { return httptest.NewRequest(http.MethodGet, "/slack/outgoing", nil) },
			wantPublish: false,
		},
		{
			name:        "empty form is ignored",
			req:         func() *http.Request { return webhookRequest(url.Values{}) },
			wantPublish: false,
		},
		{
			name: "wrong token is dropped",
			req: func() *http.Request {
				f := validForm()
				f.Set("token", "other")
				return webhookRequest(f)
			},
			wantPublish: false,
		},
		{
			name: "bot's own message is dropped",
			req: func() *http.Request {
				f := validForm()
				f.Set("user_name", "slackbot")
				return webhookRequest(f)
			},
			wantPublish: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &MockPublisher{}
			h := NewWebhookHandler(pub, "hook-token", "slackbot", zerolog.Nop())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
			if got := len(pub.published) == 1; got != tt.wantPublish {
				t.Fatalf("published = %d jobs, wantPublish %v", len(pub.published), tt.wantPublish)
			}
			if !tt.wantPublish {
				return
			}
			job := pub.published[0]
			if job.ChannelID != "C1" || job.Timestamp != "1700000000.000100" || job.Text != "2/14 食費 1200 ランチ" || job.UserName != "taro" {
				t.Errorf("job = %+v", job)
			}
		})
	}
}

func TestWebhookHandler_PublishFailureStillAnswers200(t *testing.T) {
	pub := &MockPublisher{
		PublishExpenseFunc: func(ctx context.Context, job *jobs.ExpenseJob) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("expected publish context to carry a deadline")
			}
			return inmemory.ErrQueueClosed
		},
	}
	h := NewWebhookHandler(pub, "hook-token", "slackbot", zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, webhookRequest(validForm()))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookHandler_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	pub := &MockPublisher{}
	h := NewWebhookHandler(pub, "", "slackbot", zerolog.Nop())

	f := validForm()
	f.Set("token", "")
	h.ServeHTTP(httptest.NewRecorder(), webhookRequest(f))

	if len(pub.published) != 0 {
		t.Error("expected no job when no token is configured")
	}
}

func seedStore(t *testing.T) *inmemory.Store {
	t.Helper()
	store := inmemory.NewStore(10)
	for _, j := range []*jobs.ExpenseJob{
		{JobID: "a", ChannelID: "C1", Status: jobs.JobStatusCompleted},
		{JobID: "b", ChannelID: "C2", Status: jobs.JobStatusFailed, Error: "no data to register."},
		{JobID: "c", ChannelID: "C1", Status: jobs.JobStatusPending},
	} {
		if err := store.SaveJob(context.Background(), j); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestJobsHandler_GetJob(t *testing.T) {
	h := NewJobsHandler(seedStore(t), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/b", nil), "b")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var job jobs.ExpenseJob
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	if job.Error != "no data to register." {
		t.Errorf("job.Error = %q", job.Error)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/zzz", nil), "zzz")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

type failingStore struct{ jobs.JobStore }

func (failingStore) GetJob(ctx context.Context, jobID string) (*jobs.ExpenseJob, error) {
	return nil, errors.New("backend down")
}

func TestJobsHandler_GetJobStoreError(t *testing.T) {
	h := NewJobsHandler(failingStore{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/a", nil), "a")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestJobsHandler_ListJobs(t *testing.T) {
	h := NewJobsHandler(seedStore(t), zerolog.Nop())

	tests := []struct {
		query   string
		wantIDs []string
	}{
		{"", []string{"c", "b", "a"}},
		{"?channel_id=C1", []string{"c", "a"}},
		{"?status=failed", []string{"b"}},
		{"?limit=1&offset=1", []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp struct {
				Jobs  []jobs.ExpenseJob `json:"jobs"`
				Count int               `json:"count"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Count != len(tt.wantIDs) {
				t.Fatalf("count = %d, want %d", resp.Count, len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if resp.Jobs[i].JobID != id {
					t.Errorf("jobs[%d] = %s, want %s", i, resp.Jobs[i].JobID, id)
				}
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Health() = %d %s", rec.Code, rec.Body.String())
	}
}
