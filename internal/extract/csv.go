package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// extractCSV produces one line per row with the field values joined by
// single spaces, in original row order.
func extractCSV(content []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var buf strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse CSV: %w", err)
		}
		buf.WriteString(strings.Join(record, " "))
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
