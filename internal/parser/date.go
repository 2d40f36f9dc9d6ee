package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const compactLayout = "20060102"

// DateError reports a slash-separated token that looked like a date but is
// not a real calendar day.
type DateError struct {
	Token string
	Err   error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: %v", e.Token, e.Err)
}

func (e *DateError) Unwrap() error { return e.Err }

func (e *DateError) Is(target error) bool { return target == ErrInvalidDate }

// ParseDate interprets a slash-separated token relative to now.
//
//	1/1, 01/01          -> January 1st of now's year
//	2018/1/1, 2018/01/01 -> January 1st 2018
//	anything else       -> now's date
//
// Month and day are zero padded; the year is used as written. A two or three
// part token that is not a valid calendar date returns a *DateError.
func ParseDate(token string, now time.Time) (time.Time, error) {
	parts := strings.Split(token, "/")

	var year, month, day string
	switch len(parts) {
	case 2:
		year, month, day = strconv.Itoa(now.Year()), parts[0], parts[1]
	case 3:
		year, month, day = parts[0], parts[1], parts[2]
	default:
		return dateOf(now), nil
	}

	t, err := time.Parse(compactLayout, year+zeroPad(month)+zeroPad(day))
	if err != nil {
		return time.Time{}, &DateError{Token: token, Err: err}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func zeroPad(s string) string {
	if len(s) >= 2 {
		return s
	}
	return strings.Repeat("0", 2-len(s)) + s
}
