// Package loader turns tabular data files (CSV, JSON, YAML) into ordered
// record sequences that back data feeds. Format parsing lives here; the
// feed engine only ever sees an ordered slice of records.
package loader

import (
	"context"
	"fmt"
	"strings"
)

// Record is a single row of data with named string fields.
type Record map[string]string

// Format identifies a supported data file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat normalizes a user-supplied format name, falling back to
// the file extension when the name is empty.
func ParseFormat(name, path string) (Format, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		switch {
		case strings.HasSuffix(path, ".csv"):
			s = "csv"
		case strings.HasSuffix(path, ".json"):
			s = "json"
		case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
			s = "yaml"
		}
	}
	switch s {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported data format %q for %q (want csv, json or yaml)", name, path)
	}
}

// Load reads the file at path and returns its records in file order.
// selector is only meaningful for JSON (see LoadJSON).
func Load(path string, format Format, selector string) ([]Record, error) {
	switch format {
	case FormatCSV:
		return LoadCSV(path)
	case FormatJSON:
		return LoadJSON(path, selector)
	case FormatYAML:
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported data format %q", format)
	}
}

// Supplier adapts Load into the one-shot supplier shape lazy feed
// sources expect. The file is read when the supplier runs, not when the
// supplier is built.
func Supplier(path string, format Format, selector string) func(ctx context.Context) ([]Record, error) {
	return func(ctx context.Context) ([]Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Load(path, format, selector)
	}
}
