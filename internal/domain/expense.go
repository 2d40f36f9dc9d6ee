package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/slack2zaim/internal/genre"
)

// DateLayout is the date format Zaim expects.
const DateLayout = "2006-01-02"

// Slot identifies one of the four semantic fields of an Expense.
type Slot uint8

const (
	SlotDate Slot = 1 << iota
	SlotAmount
	SlotCategory
	SlotComment

	allSlots = SlotDate | SlotAmount | SlotCategory | SlotComment
)

func (s Slot) String() string {
	switch s {
	case SlotDate:
		return "date"
	case SlotAmount:
		return "amount"
	case SlotCategory:
		return "category"
	case SlotComment:
		return "comment"
	default:
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
}

// Expense is one payment parsed from a chat message.
// Fields are only meaningful when the matching slot is set.
type Expense struct {
	Date       time.Time // calendar date, midnight local
	Amount     int64     // smallest currency unit
	CategoryID genre.ID  // set together with GenreID
	GenreID    genre.ID  // set together with CategoryID
	Comment    string    // free text with the registration marker appended

	filled Slot
}

// SetDate stores the expense date.
func (e *Expense) SetDate(d time.Time) {
	e.Date = d
	e.filled |= SlotDate
}

// SetAmount stores the amount.
func (e *Expense) SetAmount(amount int64) {
	e.Amount = amount
	e.filled |= SlotAmount
}

// SetCategory stores the category pair. Both ids must be valid or nothing is stored.
func (e *Expense) SetCategory(entry genre.Entry) bool {
	if !entry.CategoryID.Valid() || !entry.GenreID.Valid() {
		return false
	}
	e.CategoryID = entry.CategoryID
	e.GenreID = entry.GenreID
	e.filled |= SlotCategory
	return true
}

// SetComment stores the annotated comment.
func (e *Expense) SetComment(comment string) {
	e.Comment = comment
	e.filled |= SlotComment
}

// Has reports whether the slot has been populated.
func (e Expense) Has(s Slot) bool {
	return e.filled&s == s
}

// Complete reports whether all four slots are populated.
func (e Expense) Complete() bool {
	return e.filled == allSlots
}

// Missing lists the unpopulated slots in a stable order.
func (e Expense) Missing() []Slot {
	var out []Slot
	for _, s := range []Slot{SlotDate, SlotAmount, SlotCategory, SlotComment} {
		if !e.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// String renders the populated slots, e.g. {amount: 1200, comment: ランチ (...)}.
func (e Expense) String() string {
	parts := make([]string, 0, 5)
	if e.Has(SlotDate) {
		parts = append(parts, "date: "+e.Date.Format(DateLayout))
	}
	if e.Has(SlotAmount) {
		parts = append(parts, "amount: "+strconv.FormatInt(e.Amount, 10))
	}
	if e.Has(SlotCategory) {
		parts = append(parts, "category_id: "+e.CategoryID.String(), "genre_id: "+e.GenreID.String())
	}
	if e.Has(SlotComment) {
		parts = append(parts, "comment: "+e.Comment)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Values returns the Zaim payment form fields.
func (e Expense) Values() url.Values {
	v := url.Values{}
	v.Set("mapping", "1")
	v.Set("category_id", e.CategoryID.String())
	v.Set("genre_id", e.GenreID.String())
	v.Set("amount", strconv.FormatInt(e.Amount, 10))
	v.Set("date", e.Date.Format(DateLayout))
	v.Set("comment", e.Comment)
	return v
}
