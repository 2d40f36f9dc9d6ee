package slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	slackgo "github.com/slack-go/slack"
)

// Reaction names used on the originating message.
const (
	ReactionOK     = "man-gesturing-ok"
	ReactionNG     = "man-gesturing-no"
	ReactionGenres = "book"
	ReactionFormat = "memo"
)

// Notifier posts feedback on a Slack message.
// This interface enables mocking in relay tests.
type Notifier interface {
	// React adds an emoji reaction to the message at channel/timestamp.
	React(ctx context.Context, channelID, timestamp, emoji string) error

	// Reply posts text as a threaded reply to the message at channel/timestamp.
	Reply(ctx context.Context, channelID, timestamp, text string) error
}

// Client is the concrete Notifier backed by the Slack Web API.
type Client struct {
	api *slackgo.Client
}

// NewClient creates a notifier for the given bot token. apiURL overrides the
// Web API root and is only set in tests.
func NewClient(token, apiURL string) *Client {
	opts := []slackgo.Option{
		slackgo.OptionHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	}
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slackgo.OptionAPIURL(apiURL))
	}
	return &Client{api: slackgo.New(token, opts...)}
}

// React implements Notifier.
func (c *Client) React(ctx context.Context, channelID, timestamp, emoji string) error {
	if err := c.api.AddReactionContext(ctx, emoji, slackgo.NewRefToMessage(channelID, timestamp)); err != nil {
		return fmt.Errorf("React: %w", err)
	}
	return nil
}

// Reply implements Notifier.
func (c *Client) Reply(ctx context.Context, channelID, timestamp, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slackgo.MsgOptionText(text, false),
		slackgo.MsgOptionTS(timestamp),
	)
	if err != nil {
		return fmt.Errorf("Reply: %w", err)
	}
	return nil
}

var _ Notifier = (*Client)(nil)
