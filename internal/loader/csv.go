package loader

import (
	"encoding/csv"
	"fmt"
	"os"
)

// LoadCSV reads a CSV file whose first row names the fields and returns
// one record per data row, in file order.
func LoadCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file %q must have a header row and at least one data row", path)
	}

	header := rows[0]
	dataRows := rows[1:]

	records := make([]Record, 0, len(dataRows))
	for i, row := range dataRows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("CSV row %d has %d fields, expected %d", i+2, len(row), len(header))
		}

		record := make(Record, len(header))
		for j, field := range header {
			record[field] = row[j]
		}
		records = append(records, record)
	}

	return records, nil
}
