/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"fmt"
	"strings"
)

// Validation is the advisory report produced by Validate. Errors block
// processing; warnings do not.
type Validation struct {
	Valid    bool              `json:"valid"`
	Errors   []string          `json:"errors"`
	Warnings []string          `json:"warnings"`
	Summary  ValidationSummary `json:"summary"`
}

type ValidationSummary struct {
	PlayerCount int `json:"playerCount"`
	RoundCount  int `json:"roundCount"`
}

func (v *Validation) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

type validationRow struct {
	number RowIndex
	fields map[string]string
}

// Validate performs a structural pre-check of tournament text without
// touching any ratings. It never fails; problems are reported in the
// returned Validation.
func Validate(text string) Validation {
	v := Validation{
		Errors:   []string{},
		Warnings: []string{},
	}

	lines := splitLines(text)
	if len(lines) == 0 {
		v.errorf("File is empty")
		return v
	}

	headers := splitHeader(lines[0])
	if missing := missingColumns(headers); len(missing) > 0 {
		v.errorf("Missing required columns: %v", strings.Join(missing, ", "))
	}

	rounds := RoundColumns(headers)
	if len(rounds) == 0 {
		v.errorf("No round columns found (expected Rnd1, Rnd2, etc.)")
	}

	var rows []validationRow
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		rows = append(rows, validationRow{
			number: RowIndex(i),
			fields: rowFields(headers, splitRow(lines[i])),
		})
	}

	numbers := make(map[RowIndex]bool, len(rows))
	seen := make(map[string]RowIndex)
	for _, row := range rows {
		numbers[row.number] = true
		id := row.fields[ColID]
		if id == "" {
			v.errorf("Player on line %v missing ID", row.number+1)
		} else if prev, ok := seen[id]; ok && !isAutoID(id) {
			v.errorf("Player %v appears on lines %v and %v", id, prev+1,
				row.number+1)
		} else {
			seen[id] = row.number
		}
		if row.fields[ColName] == "" {
			v.warnf("Player %v missing name", id)
		}
		if _, err := parseNumber(row.fields[ColRating]); err != nil {
			v.errorf("Player %v has invalid rating", id)
		}
	}

	for _, round := range rounds {
		for _, row := range rows {
			id := row.fields[ColID]
			code := row.fields[round]
			res, err := ParseResult(code)
			if err != nil {
				if len(code) > 0 && !strings.ContainsRune("WLD", rune(code[0])) {
					v.errorf("Invalid result '%v' for player %v in %v", code, id,
						round)
				}
				v.errorf("Invalid opponent number '%v' for player %v in %v",
					strings.TrimSpace(code[min(1, len(code)):]), id, round)
				continue
			}
			if !res.Outcome.IsGame() {
				continue
			}
			if res.Outcome == ResultUnknown {
				v.errorf("Invalid result '%v' for player %v in %v", code, id, round)
			}
			// row numbers count blank lines, so check membership not range
			if !numbers[res.Opponent] {
				v.errorf("Invalid opponent number %v for player %v in %v",
					res.Opponent, id, round)
			}
		}
	}

	v.Valid = len(v.Errors) == 0
	v.Summary = ValidationSummary{
		PlayerCount: len(rows),
		RoundCount:  len(rounds),
	}

	return v
}
