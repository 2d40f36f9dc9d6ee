package parser

import (
	"errors"
	"testing"
	"time"
)

var jst = time.FixedZone("JST", 9*60*60)

func TestParseDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 22, 30, 0, 0, jst)

	tests := []struct {
		name  string
		token string
		want  time.Time
	}{
		{"month/day unpadded", "1/1", time.Date(2026, 1, 1, 0, 0, 0, 0, jst)},
		{"month/day padded", "01/01", time.Date(2026, 1, 1, 0, 0, 0, 0, jst)},
		{"month/day mixed", "2/14", time.Date(2026, 2, 14, 0, 0, 0, 0, jst)},
		{"year/month/day unpadded", "2018/1/1", time.Date(2018, 1, 1, 0, 0, 0, 0, jst)},
		{"year/month/day padded", "2018/01/01", time.Date(2018, 1, 1, 0, 0, 0, 0, jst)},
		{"leap day", "2024/2/29", time.Date(2024, 2, 29, 0, 0, 0, 0, jst)},
		{"no slash", "hello", time.Date(2026, 10, 18, 0, 0, 0, 0, jst)},
		{"four parts", "2018/1/1/1", time.Date(2026, 10, 18, 0, 0, 0, 0, jst)},
		{"url", "https://example.com/a", time.Date(2026, 10, 18, 0, 0, 0, 0, jst)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.token, now)
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.token, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseDate_TodayIgnoresTimeOfDay(t *testing.T) {
	now := time.Now()
	got, err := ParseDate("python", now)
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got.Year() != now.Year() || got.Month() != now.Month() || got.Day() != now.Day() {
		t.Errorf("ParseDate(python) = %v, want today (%v)", got, now)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("ParseDate(python) = %v, want midnight", got)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, jst)

	tokens := []string{
		"2/30",
		"13/1",
		"1/32",
		"2025/2/29",
		"18/1/1",
		"x/y",
		"1/",
		"/",
		"a/b/c",
		"100/1",
	}

	for _, token := range tokens {
		t.Run(token, func(t *testing.T) {
			_, err := ParseDate(token, now)
			if err == nil {
				t.Fatalf("ParseDate(%q) expected error", token)
			}
			if !errors.Is(err, ErrInvalidDate) {
				t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", token, err)
			}
			var dateErr *DateError
			if !errors.As(err, &dateErr) || dateErr.Token != token {
				t.Errorf("ParseDate(%q) error = %#v, want *DateError for the token", token, err)
			}
		})
	}
}
