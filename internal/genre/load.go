package genre

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ObjectFetcher reads objects from cloud storage.
type ObjectFetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// Source describes where the genre table comes from.
// Inline JSON takes precedence over URI. An empty source yields an empty table.
type Source struct {
	// Inline is the raw JSON, usually the ZAIM_GENRE environment variable.
	Inline string

	// URI is a local file path or a gs://bucket/object URI.
	URI string
}

// Load reads the table once at startup.
func Load(ctx context.Context, src Source, fetcher ObjectFetcher) (*Table, error) {
	if strings.TrimSpace(src.Inline) != "" {
		t, err := Parse([]byte(src.Inline))
		if err != nil {
			return nil, fmt.Errorf("Load: inline table: %w", err)
		}
		return t, nil
	}

	if src.URI == "" {
		return Empty(), nil
	}

	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(src.URI, "gs://") {
		if fetcher == nil {
			return nil, fmt.Errorf("Load: %s needs a storage client", src.URI)
		}
		raw, err = fetcher.FetchFromGCS(ctx, src.URI)
	} else {
		raw, err = os.ReadFile(src.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("Load: read %s: %w", src.URI, err)
	}

	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("Load: parse %s: %w", src.URI, err)
	}
	return t, nil
}
