// Package slack handles the Slack side of the relay: decoding outgoing
// webhook posts and answering in the message thread.
package slack

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyForm is returned when a webhook request carries no form data.
// Slack sends a few of these alongside real deliveries; they are ignored.
var ErrEmptyForm = errors.New("empty form data")

// OutgoingMessage is the form payload of a Slack outgoing webhook.
type OutgoingMessage struct {
	Token       string
	TeamID      string
	ChannelID   string
	ChannelName string
	Timestamp   string
	UserID      string
	UserName    string
	Text        string
	TriggerWord string
}

// ParseOutgoing decodes the form body of an outgoing webhook request.
func ParseOutgoing(r *http.Request) (OutgoingMessage, error) {
	if r.Method != http.MethodPost {
		return OutgoingMessage{}, ErrEmptyForm
	}
	if err := r.ParseForm(); err != nil {
		return OutgoingMessage{}, fmt.Errorf("ParseOutgoing: %w", err)
	}
	if len(r.PostForm) == 0 {
		return OutgoingMessage{}, ErrEmptyForm
	}

	f := r.PostForm
	return OutgoingMessage{
		Token:       f.Get("token"),
		TeamID:      f.Get("team_id"),
		ChannelID:   f.Get("channel_id"),
		ChannelName: f.Get("channel_name"),
		Timestamp:   f.Get("timestamp"),
		UserID:      f.Get("user_id"),
		UserName:    f.Get("user_name"),
		Text:        f.Get("text"),
		TriggerWord: f.Get("trigger_word"),
	}, nil
}

// ValidToken reports whether the message carries the expected shared token.
// An empty expected token never validates.
func (m OutgoingMessage) ValidToken(expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(m.Token), []byte(expected)) == 1
}
