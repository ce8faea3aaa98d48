/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	ColID     = "ID"
	ColName   = "Name"
	ColRating = "Rating"
	ColRD     = "RD"
	ColRV     = "RV"
)

var requiredColumns = []string{ColID, ColName, ColRating}

var roundNumRe = regexp.MustCompile(`\d+`)

// splitLines returns the lines of text with surrounding whitespace and
// carriage returns removed. Interior blank lines are kept so that line
// positions stay stable.
func splitLines(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}

// splitHeader tokenizes the header line: tab-delimited, each token trimmed,
// empty trailing tokens removed.
func splitHeader(line string) []string {
	headers := strings.Split(line, "\t")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	return headers
}

func splitRow(line string) []string {
	values := strings.Split(line, "\t")
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return values
}

// rowFields maps header names to the row's values. Missing trailing cells
// map to the empty string and unnamed columns are ignored.
func rowFields(headers []string, values []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for idx, h := range headers {
		if h == "" {
			continue
		}
		if _, ok := fields[h]; ok {
			continue
		}
		v := ""
		if idx < len(values) {
			v = values[idx]
		}
		fields[h] = v
	}
	return fields
}

func hasColumn(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

func missingColumns(headers []string) []string {
	var missing []string
	for _, col := range requiredColumns {
		if !hasColumn(headers, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// IsRoundColumn reports whether a header names a round. The literal "RD"
// column holds rating deviations and is not a round.
func IsRoundColumn(h string) bool {
	if h == ColRD {
		return false
	}
	return strings.HasPrefix(h, "Rnd") || strings.HasPrefix(h, "Round ") ||
		strings.HasPrefix(h, "RD ")
}

func roundNumber(col string) int {
	m := roundNumRe.FindString(col)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// RoundColumns returns the round columns among headers ordered by the first
// integer embedded in their name, not by file order.
func RoundColumns(headers []string) []string {
	var rounds []string
	for _, h := range headers {
		if IsRoundColumn(h) {
			rounds = append(rounds, h)
		}
	}
	sort.SliceStable(rounds, func(i, j int) bool {
		return roundNumber(rounds[i]) < roundNumber(rounds[j])
	})
	return rounds
}

func isAutoID(id string) bool {
	return strings.EqualFold(strings.TrimSpace(id), string(AutoID))
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Parse converts raw tournament text into typed rows. Rows that do not match
// the schema are rejected here so that nothing downstream has to re-check
// them.
func Parse(text string) (*Sheet, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	headers := splitHeader(lines[0])
	if missing := missingColumns(headers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingColumns,
			strings.Join(missing, ", "))
	}

	sheet := &Sheet{
		Headers:      headers,
		RoundColumns: RoundColumns(headers),
		HasRD:        hasColumn(headers, ColRD),
		HasRV:        hasColumn(headers, ColRV),
	}
	if len(sheet.RoundColumns) == 0 {
		return nil, ErrNoRounds
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		fields := rowFields(headers, splitRow(lines[i]))

		row := Row{
			Number:  RowIndex(i),
			ID:      PlayerID(fields[ColID]),
			Name:    fields[ColName],
			Results: make(map[string]string, len(sheet.RoundColumns)),
		}
		if row.ID == "" {
			return nil, fmt.Errorf("line %v: %w", i+1, ErrMissingID)
		}

		var err error
		row.Rating, err = parseNumber(fields[ColRating])
		if err != nil {
			return nil, fmt.Errorf("player %v: %w %q", row.ID, ErrInvalidRating,
				fields[ColRating])
		}
		if v := fields[ColRD]; sheet.HasRD && v != "" {
			if row.RD, err = parseNumber(v); err != nil {
				return nil, fmt.Errorf("player %v: %w: RD %q", row.ID,
					ErrInvalidRating, v)
			}
		}
		if v := fields[ColRV]; sheet.HasRV && v != "" {
			if row.RV, err = parseNumber(v); err != nil {
				return nil, fmt.Errorf("player %v: %w: RV %q", row.ID,
					ErrInvalidRating, v)
			}
		}
		for _, col := range sheet.RoundColumns {
			row.Results[col] = fields[col]
		}

		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

// RewriteIDs replaces the ID cell of the given rows. It is used to substitute
// freshly provisioned identifiers for AUTO placeholders before processing.
func RewriteIDs(text string, ids map[RowIndex]PlayerID) (string, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return "", ErrEmptyFile
	}
	headers := splitHeader(lines[0])
	idCol := -1
	for idx, h := range headers {
		if h == ColID {
			idCol = idx
			break
		}
	}
	if idCol < 0 {
		return "", fmt.Errorf("%w: %v", ErrMissingColumns, ColID)
	}

	for i := 1; i < len(lines); i++ {
		id, ok := ids[RowIndex(i)]
		if !ok {
			continue
		}
		values := strings.Split(lines[i], "\t")
		for len(values) <= idCol {
			values = append(values, "")
		}
		values[idCol] = string(id)
		lines[i] = strings.Join(values, "\t")
	}

	return strings.Join(lines, "\n"), nil
}
