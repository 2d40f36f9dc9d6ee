package genre

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ID is a Zaim category or genre identifier.
// The Zaim API emits numbers while hand-written tables tend to use strings,
// so both JSON forms are accepted. A numeric 0, null or "" leave the id unset;
// the string "0" is kept as given.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("genre id: %w", err)
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("genre id: %w", err)
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("genre id %s is not an integer", n)
	}
	if v == 0 {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as JSON numbers so a dumped table
// round-trips to the shape the Zaim API uses.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Valid reports whether the id is set.
func (id ID) Valid() bool {
	return id != ""
}

func (id ID) String() string {
	return string(id)
}

// Entry is the id pair a category name resolves to.
type Entry struct {
	CategoryID ID `json:"category_id"`
	GenreID    ID `json:"genre_id"`
}

// Table maps category display names to their Zaim ids.
// It is read-only once built and keeps the order names were declared in.
// Lookups use the NFKC form of a name; Names returns names as written.
type Table struct {
	entries map[string]Entry
	display map[string]string
	keys    []string
}

// NewTable builds a table from names in the given order.
// Later duplicates overwrite the entry but keep the first position.
func NewTable(names []string, entries map[string]Entry) *Table {
	t := &Table{
		entries: make(map[string]Entry, len(names)),
		display: make(map[string]string, len(names)),
	}
	for _, name := range names {
		e, ok := entries[name]
		if !ok {
			continue
		}
		t.put(name, e)
	}
	return t
}

// Empty returns a table that never matches.
func Empty() *Table {
	return &Table{entries: map[string]Entry{}, display: map[string]string{}}
}

func (t *Table) put(name string, e Entry) {
	key := normalizeName(name)
	if key == "" {
		return
	}
	if _, exists := t.entries[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = e
	t.display[key] = strings.TrimSpace(name)
}

// Lookup returns the entry registered under name. The match is exact.
func (t *Table) Lookup(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[name]
	return e, ok
}

// Names lists the category names as written in the source, in declaration order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	for i, key := range t.keys {
		out[i] = t.display[key]
	}
	return out
}

// Len returns the number of names in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// UnmarshalJSON decodes {"name": {"category_id": .., "genre_id": ..}} keeping key order.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("genre table: %w", err)
	}
	if tok == nil {
		*t = *Empty()
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("genre table: expected object, got %v", tok)
	}

	out := Empty()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("genre table: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("genre table: unexpected key %v", keyTok)
		}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("genre table: entry %q: %w", name, err)
		}
		out.put(name, e)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("genre table: %w", err)
	}

	*t = *out
	return nil
}

// MarshalJSON writes the table in declaration order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(t.display[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalNoEscape(t.entries[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodes a table from its JSON source. Blank input yields an empty table.
func Parse(raw []byte) (*Table, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Empty(), nil
	}
	t := Empty()
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, err
	}
	return t, nil
}

// normalizeName applies the same NFKC folding the parser applies to tokens,
// so full-width names in the source still match typed input.
func normalizeName(name string) string {
	return strings.TrimSpace(norm.NFKC.String(name))
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
