package relay

import (
	"errors"
	"fmt"

	"github.com/dvloznov/slack2zaim/internal/domain"
	"github.com/dvloznov/slack2zaim/internal/zaim"
)

// ErrEmptyInput is returned for a message with no text at all.
var ErrEmptyInput = errors.New("no data to register")

// IncompleteError reports a message that did not fill all four slots.
// Expense holds whatever was collected.
type IncompleteError struct {
	Expense domain.Expense
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("not enough items to register: %s", e.Expense)
}

// UserMessage renders err as the text posted back to the Slack thread.
// A Zaim rejection is shown as the message Zaim sent; the status code only
// goes to the log.
func UserMessage(err error) string {
	var apiErr *zaim.APIError
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "no data to register."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return err.Error()
	}
}
