package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML file containing a list of flat mappings and
// returns one record per list entry, in file order.
func LoadYAML(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read YAML file: %w", err)
	}

	var rawRecords []map[string]interface{}
	if err := yaml.Unmarshal(data, &rawRecords); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if len(rawRecords) == 0 {
		return nil, fmt.Errorf("YAML file %q contains no records", path)
	}

	records := make([]Record, 0, len(rawRecords))
	for i, rawRecord := range rawRecords {
		record := make(Record, len(rawRecord))
		for key, value := range rawRecord {
			record[key] = fmt.Sprintf("%v", value)
		}
		if len(record) == 0 {
			return nil, fmt.Errorf("YAML record %d in %q is empty", i, path)
		}
		records = append(records, record)
	}

	return records, nil
}
