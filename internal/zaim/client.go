// Package zaim is a small client for the Zaim household ledger API (v2).
package zaim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/dvloznov/slack2zaim/internal/domain"
)

// DefaultBaseURL is the Zaim v2 API root.
const DefaultBaseURL = "https://api.zaim.net/v2/"

// DefaultTimeout bounds every request so a background job cannot hang.
const DefaultTimeout = 20 * time.Second

// Credentials are the OAuth 1.0a consumer and access tokens.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Complete reports whether all four values are set.
func (c Credentials) Complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// APIError is a non-success answer from Zaim. Its message is shown to users as is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("zaim: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("zaim: HTTP %d: %s", e.StatusCode, e.Message)
}

// User is the authenticated Zaim account.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PaymentResult is what Zaim returns after a payment was recorded.
type PaymentResult struct {
	MoneyID   int64
	Requested int64
}

// Genre is one entry of GET /home/genre.
type Genre struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CategoryID    int64  `json:"category_id"`
	ParentGenreID int64  `json:"parent_genre_id"`
	Sort          int    `json:"sort"`
	Active        int    `json:"active"`
}

// Category is one entry of GET /home/category.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Sort   int    `json:"sort"`
	Active int    `json:"active"`
}

// Client talks to the Zaim API with OAuth1-signed requests.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(ctx context.Context, creds Credentials, baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("NewClient: base url: %w", err)
	}

	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	httpClient := config.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))
	httpClient.Timeout = DefaultTimeout

	return &Client{baseURL: u, httpClient: httpClient}, nil
}

// Verify checks that the access token is still accepted.
func (c *Client) Verify(ctx context.Context) (*User, error) {
	var resp struct {
		Me User `json:"me"`
	}
	if err := c.do(ctx, http.MethodGet, "home/user/verify", nil, &resp); err != nil {
		return nil, fmt.Errorf("Verify: %w", err)
	}
	return &resp.Me, nil
}

// CreatePayment records exp as a payment. It is called once; there is no retry.
func (c *Client) CreatePayment(ctx context.Context, exp domain.Expense) (*PaymentResult, error) {
	if !exp.Complete() {
		return nil, fmt.Errorf("CreatePayment: expense is incomplete: %s", exp)
	}

	var resp struct {
		Money struct {
			ID int64 `json:"id"`
		} `json:"money"`
		Requested int64 `json:"requested"`
	}
	if err := c.do(ctx, http.MethodPost, "home/money/payment", exp.Values(), &resp); err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}
	return &PaymentResult{MoneyID: resp.Money.ID, Requested: resp.Requested}, nil
}

// Genres lists every genre of the account.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var resp struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.do(ctx, http.MethodGet, "home/genre", nil, &resp); err != nil {
		return nil, fmt.Errorf("Genres: %w", err)
	}
	return resp.Genres, nil
}

// Categories lists every category of the account.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "home/category", nil, &resp); err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	return resp.Categories, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	var envelope struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error {
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Message      string `json:"message"`
		ExtraMessage string `json:"extra_message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		if body.ExtraMessage != "" {
			return body.Message + " (" + body.ExtraMessage + ")"
		}
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
