package zaim

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/dvloznov/slack2zaim/internal/genre"
)

// GenreTable converts the Zaim genre list into the table the parser uses,
// keyed by genre name in API order. Inactive genres are skipped unless
// includeInactive is set.
func GenreTable(genres []Genre, includeInactive bool) *genre.Table {
	names := make([]string, 0, len(genres))
	entries := make(map[string]genre.Entry, len(genres))
	for _, g := range genres {
		if g.Active < 0 && !includeInactive {
			continue
		}
		if _, seen := entries[g.Name]; !seen {
			names = append(names, g.Name)
		}
		entries[g.Name] = genre.Entry{
			CategoryID: genre.ID(strconv.FormatInt(g.CategoryID, 10)),
			GenreID:    genre.ID(strconv.FormatInt(g.ID, 10)),
		}
	}
	return genre.NewTable(names, entries)
}

// CategoryJSON renders {"name": id, ...} in API order with names kept literal.
// A repeated name keeps its first position and the last id.
func CategoryJSON(categories []Category, includeInactive bool) ([]byte, error) {
	var names []string
	ids := make(map[string]int64, len(categories))
	for _, c := range categories {
		if c.Active < 0 && !includeInactive {
			continue
		}
		if _, seen := ids[c.Name]; !seen {
			names = append(names, c.Name)
		}
		ids[c.Name] = c.ID
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(name); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(ids[name], 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
