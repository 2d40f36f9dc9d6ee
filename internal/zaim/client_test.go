package zaim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/slack2zaim/internal/domain"
	"github.com/dvloznov/slack2zaim/internal/genre"
	"github.com/google/go-cmp/cmp"
)

var testCreds = Credentials{
	ConsumerKey:       "ck",
	ConsumerSecret:    "cs",
	AccessToken:       "at",
	AccessTokenSecret: "as",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), testCreds, srv.URL+"/v2")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func completeExpense() domain.Expense {
	var e domain.Expense
	e.SetDate(time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))
	e.SetAmount(1200)
	e.SetCategory(genre.Entry{CategoryID: "101", GenreID: "10101"})
	e.SetComment("ランチ (registered via chat: 2026/10/18)")
	return e
}

func TestClient_CreatePayment(t *testing.T) {
	var gotForm map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/home/money/payment" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Errorf("request not OAuth1 signed: %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
			return
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"money": {"id": 987, "place_uid": null}, "requested": 1760000000}`))
	})

	res, err := c.CreatePayment(context.Background(), completeExpense())
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	if res.MoneyID != 987 {
		t.Errorf("MoneyID = %d, want 987", res.MoneyID)
	}

	want := map[string]string{
		"mapping":     "1",
		"category_id": "101",
		"genre_id":    "10101",
		"amount":      "1200",
		"date":        "2026-02-14",
		"comment":     "ランチ (registered via chat: 2026/10/18)",
	}
	if diff := cmp.Diff(want, gotForm); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_CreatePaymentRejectsIncomplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an incomplete expense")
	})

	var e domain.Expense
	e.SetAmount(100)
	if _, err := c.CreatePayment(context.Background(), e); err == nil {
		t.Error("CreatePayment() expected error")
	}
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error", http.StatusBadRequest, `{"error": true, "message": "Invalid category_id"}`, "zaim: HTTP 400: Invalid category_id"},
		{"extra message", http.StatusUnauthorized, `{"error": true, "message": "Unauthorized", "extra_message": "token expired"}`, "zaim: HTTP 401: Unauthorized (token expired)"},
		{"plain text", http.StatusBadGateway, "upstream down\n", "zaim: HTTP 502: upstream down"},
		{"empty body", http.StatusInternalServerError, "", "zaim: HTTP 500"},
		{"error flag on 200", http.StatusOK, `{"error": true, "message": "quota exceeded"}`, "zaim: HTTP 200: quota exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.CreatePayment(context.Background(), completeExpense())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("CreatePayment() error = %v, want *APIError", err)
			}
			if apiErr.Error() != tt.wantMsg {
				t.Errorf("APIError = %q, want %q", apiErr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClient_Verify(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/home/user/verify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"me": {"id": 42, "name": "taro"}}`))
	})

	user, err := c.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if user.ID != 42 || user.Name != "taro" {
		t.Errorf("Verify() = %+v", user)
	}
}

func TestClient_GenresAndTable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/home/genre":
			w.Write([]byte(`{"genres": [
				{"id": 10101, "name": "食料品", "category_id": 101, "active": 1},
				{"id": 10102, "name": "カフェ", "category_id": 101, "active": 1},
				{"id": 10199, "name": "廃止", "category_id": 101, "active": -1}
			]}`))
		case "/v2/home/category":
			w.Write([]byte(`{"categories": [{"id": 101, "name": "食費", "mode": "payment", "active": 1}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	genres, err := c.Genres(context.Background())
	if err != nil {
		t.Fatalf("Genres() error = %v", err)
	}
	if len(genres) != 3 {
		t.Fatalf("Genres() len = %d, want 3", len(genres))
	}

	table := GenreTable(genres, false)
	if diff := cmp.Diff([]string{"食料品", "カフェ"}, table.Names()); diff != "" {
		t.Errorf("GenreTable names (-want +got):\n%s", diff)
	}
	if e, _ := table.Lookup("カフェ"); e.CategoryID != "101" || e.GenreID != "10102" {
		t.Errorf("Lookup(カフェ) = %+v", e)
	}
	if GenreTable(genres, true).Len() != 3 {
		t.Error("GenreTable(includeInactive) should keep inactive genres")
	}

	cats, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "食費" || cats[0].Mode != "payment" {
		t.Errorf("Categories() = %+v", cats)
	}
}

func TestCredentials_Complete(t *testing.T) {
	if !testCreds.Complete() {
		t.Error("full credentials should be complete")
	}
	partial := testCreds
	partial.AccessTokenSecret = ""
	if partial.Complete() {
		t.Error("partial credentials should not be complete")
	}
}

func TestCategoryJSON(t *testing.T) {
	cats := []Category{
		{ID: 101, Name: "食費", Active: 1},
		{ID: 102, Name: "日用<雑貨>", Active: 1},
		{ID: 199, Name: "old", Active: -1},
	}

	got, err := CategoryJSON(cats, false)
	if err != nil {
		t.Fatalf("CategoryJSON() error = %v", err)
	}
	want := `{"食費":101,"日用<雑貨>":102}`
	if string(got) != want {
		t.Errorf("CategoryJSON() = %s, want %s", got, want)
	}

	got, err = CategoryJSON(nil, false)
	if err != nil || string(got) != "{}" {
		t.Errorf("CategoryJSON(nil) = %s, %v", got, err)
	}
}
