// Package roster parses a competition roster upload into the competitor
// list a box is initialized with. It is deliberately the simplest possible
// ingestion (CSV, two columns, no spreadsheet dialects) since richer
// roster formats and persistent storage of a roster stay out of scope.
package roster

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/climbbox/boxhub/box"
	"github.com/climbbox/boxhub/errors"
)

// Parse reads name,club CSV rows from r into competitor inputs, in file
// order. A header row ("name,club", case-insensitive) is skipped if
// present. Blank names are rejected; duplicate names are rejected since a
// box's competitor list is keyed by name.
func Parse(r io.Reader) ([]box.CompetitorInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse roster csv")
	}

	var out []box.CompetitorInput
	seen := make(map[string]struct{})

	for i, row := range records {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if i == 0 && strings.EqualFold(name, "name") {
			continue
		}
		if name == "" {
			return nil, errors.Newf("roster row %d: empty competitor name", i+1)
		}
		club := ""
		if len(row) > 1 {
			club = strings.TrimSpace(row[1])
		}

		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, errors.Newf("roster row %d: duplicate competitor %q", i+1, name)
		}
		seen[key] = struct{}{}

		out = append(out, box.CompetitorInput{Name: name, Club: club})
	}

	if len(out) == 0 {
		return nil, errors.New("roster is empty")
	}
	return out, nil
}
