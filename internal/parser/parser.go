// Package parser turns a free-form chat message into a Zaim expense.
//
// A message is a whitespace-separated list of tokens in any order. Each token
// is classified as a date (contains "/"), an amount (ASCII digits only), a
// category (exact match in the genre table) or a comment (anything else).
// Later tokens of the same kind overwrite earlier ones.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/slack2zaim/internal/domain"
	"github.com/dvloznov/slack2zaim/internal/genre"
	"golang.org/x/text/unicode/norm"
)

// CommentMarker is appended to every comment so entries created from chat
// can be told apart in the ledger.
const CommentMarker = "registered via chat"

var (
	// ErrInvalidDate matches any *DateError.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidAmount matches any *AmountError.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Kind is the class a token was assigned to.
type Kind int

const (
	KindComment Kind = iota
	KindDate
	KindAmount
	KindCategory
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindAmount:
		return "amount"
	case KindCategory:
		return "category"
	default:
		return "comment"
	}
}

// Token is one classified unit of a normalised message.
type Token struct {
	Text string
	Kind Kind
}

// AmountError reports a digit-only token that does not fit in an int64.
type AmountError struct {
	Token string
	Err   error
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %v", e.Token, e.Err)
}

func (e *AmountError) Unwrap() error { return e.Err }

func (e *AmountError) Is(target error) bool { return target == ErrInvalidAmount }

// Classifier builds expenses against a fixed genre table.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	table *genre.Table
	now   func() time.Time
}

// NewClassifier returns a classifier using table for category tokens.
// now supplies the wall clock; its location decides what "today" is.
// A nil now uses time.Now.
func NewClassifier(table *genre.Table, now func() time.Time) *Classifier {
	if table == nil {
		table = genre.Empty()
	}
	if now == nil {
		now = time.Now
	}
	return &Classifier{table: table, now: now}
}

// Normalize applies NFKC so full-width digits, slashes and spaces become ASCII.
func Normalize(text string) string {
	return norm.NFKC.String(text)
}

// Split normalises text and splits it on runs of whitespace.
func Split(text string) []string {
	return strings.Fields(Normalize(text))
}

// Tokens classifies every token of text without interpreting values.
func (c *Classifier) Tokens(text string) []Token {
	words := Split(text)
	out := make([]Token, 0, len(words))
	for _, w := range words {
		out = append(out, Token{Text: w, Kind: c.kindOf(w)})
	}
	return out
}

func (c *Classifier) kindOf(word string) Kind {
	switch {
	case strings.Contains(word, "/"):
		return KindDate
	case isDigits(word):
		return KindAmount
	default:
		if _, ok := c.table.Lookup(word); ok {
			return KindCategory
		}
		return KindComment
	}
}

// Classify parses text into an expense and reports whether all four slots
// were filled. The only errors are a malformed date or an amount overflow;
// an incomplete record is not an error.
func (c *Classifier) Classify(text string) (domain.Expense, bool, error) {
	var (
		exp   domain.Expense
		now   = c.now()
		today = dateOf(now)
	)

	for _, tok := range c.Tokens(text) {
		switch tok.Kind {
		case KindDate:
			d, err := ParseDate(tok.Text, now)
			if err != nil {
				return exp, false, err
			}
			exp.SetDate(d)
		case KindAmount:
			n, err := strconv.ParseInt(tok.Text, 10, 64)
			if err != nil {
				return exp, false, &AmountError{Token: tok.Text, Err: err}
			}
			exp.SetAmount(n)
		case KindCategory:
			entry, _ := c.table.Lookup(tok.Text)
			exp.SetCategory(entry)
		default:
			exp.SetComment(annotate(tok.Text, today))
		}
	}

	return exp, exp.Complete(), nil
}

func annotate(word string, today time.Time) string {
	return fmt.Sprintf("%s (%s: %d/%d/%d)", word, CommentMarker, today.Year(), int(today.Month()), today.Day())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
