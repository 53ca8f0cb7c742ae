package loader

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// LoadJSON reads a JSON file and returns its records in document order.
//
// With an empty selector the document must be an array of flat objects.
// A non-empty selector is a gjson path pointing at the record array
// inside a larger document, e.g. "data.users" or "result.items".
func LoadJSON(path, selector string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read JSON file: %w", err)
	}

	if selector != "" {
		return selectJSONRecords(data, selector, path)
	}

	var rawRecords []map[string]interface{}
	if err := json.Unmarshal(data, &rawRecords); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if len(rawRecords) == 0 {
		return nil, fmt.Errorf("JSON file %q contains an empty array", path)
	}

	records := make([]Record, 0, len(rawRecords))
	for i, rawRecord := range rawRecords {
		record := make(Record, len(rawRecord))
		for key, value := range rawRecord {
			record[key] = fmt.Sprintf("%v", value)
		}
		if len(record) == 0 {
			return nil, fmt.Errorf("JSON record %d in %q is empty", i, path)
		}
		records = append(records, record)
	}

	return records, nil
}

func selectJSONRecords(data []byte, selector, path string) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("file %q is not valid JSON", path)
	}

	result := gjson.GetBytes(data, selector)
	if !result.Exists() {
		return nil, fmt.Errorf("selector %q matched nothing in %q", selector, path)
	}
	if !result.IsArray() {
		return nil, fmt.Errorf("selector %q in %q must point at an array of objects", selector, path)
	}

	items := result.Array()
	if len(items) == 0 {
		return nil, fmt.Errorf("selector %q in %q matched an empty array", selector, path)
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		record := make(Record)
		item.ForEach(func(key, value gjson.Result) bool {
			record[key.String()] = value.String()
			return true
		})
		if len(record) == 0 {
			return nil, fmt.Errorf("selector %q item %d in %q is not an object", selector, i, path)
		}
		records = append(records, record)
	}

	return records, nil
}
