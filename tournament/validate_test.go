/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"strings"
	"testing"
)

func containsMsg(msgs []string, sub string) bool {
	for _, m := range msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func TestValidateOK(t *testing.T) {
	text := "ID\tName\tRating\tRnd1\tRnd2\n" +
		"A1\tAlice\t1500\tW2\t-B-\n" +
		"A2\t\t1500\tL1\t-H-\n"

	v := Validate(text)
	if !v.Valid {
		t.Fatalf("expected valid, got errors %v", v.Errors)
	}
	if len(v.Warnings) != 1 || !containsMsg(v.Warnings, "missing name") {
		t.Errorf("expected missing name warning, got %v", v.Warnings)
	}
	if v.Summary.PlayerCount != 2 || v.Summary.RoundCount != 2 {
		t.Errorf("unexpected summary: %+v", v.Summary)
	}
}

func TestValidateMissingRating(t *testing.T) {
	text := "ID\tName\tRnd1\n" +
		"A1\tAlice\tW2\n" +
		"A2\tBob\tL1\n"

	v := Validate(text)
	if v.Valid {
		t.Fatalf("expected invalid")
	}
	if !containsMsg(v.Errors, "Missing required columns: Rating") {
		t.Errorf("unexpected errors: %v", v.Errors)
	}
}

func TestValidateErrors(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty",
			text: "",
			want: "File is empty",
		},
		{
			name: "no rounds",
			text: "ID\tName\tRating\tRD\nA1\tAlice\t1500\t350\n",
			want: "No round columns found",
		},
		{
			name: "missing id",
			text: "ID\tName\tRating\tRnd1\n\tAlice\t1500\t-B-\n",
			want: "missing ID",
		},
		{
			name: "bad rating",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\tn/a\t-B-\n",
			want: "invalid rating",
		},
		{
			name: "unknown letter",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\t1500\tX2\nA2\tBob\t1500\tL1\n",
			want: "Invalid result 'X2'",
		},
		{
			name: "opponent out of range",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\t1500\tW3\nA2\tBob\t1500\tL1\n",
			want: "Invalid opponent number 3",
		},
		{
			name: "opponent zero",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\t1500\tW0\nA2\tBob\t1500\t-B-\n",
			want: "Invalid opponent number 0",
		},
		{
			name: "non-numeric opponent",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\t1500\tWx\nA2\tBob\t1500\t-B-\n",
			want: "Invalid opponent number 'x'",
		},
		{
			name: "duplicate id",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\t1500\t-B-\nA1\tBob\t1500\t-B-\n",
			want: "appears on lines 2 and 3",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := Validate(tc.text)
			if v.Valid {
				t.Fatalf("expected invalid")
			}
			if !containsMsg(v.Errors, tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want,
					v.Errors)
			}
		})
	}
}

func TestValidateAutoDuplicatesAllowed(t *testing.T) {
	text := "ID\tName\tRating\tRnd1\n" +
		"AUTO\tAlice\t1500\tW2\n" +
		"auto\tBob\t1500\tL1\n"

	v := Validate(text)
	if !v.Valid {
		t.Fatalf("expected valid, got %v", v.Errors)
	}
}

func TestValidateBlankLineNumbering(t *testing.T) {
	// Alice is row 1, the blank line is row 2 and Bob is row 3
	text := "ID\tName\tRating\tRnd1\tRnd2\n" +
		"A1\tAlice\t1500\tW3\t-B-\n" +
		"\n" +
		"A2\tBob\t1500\tL1\t-B-\n"

	v := Validate(text)
	if !v.Valid {
		t.Fatalf("expected valid, got %v", v.Errors)
	}
	if v.Summary.PlayerCount != 2 {
		t.Errorf("player count %v want 2", v.Summary.PlayerCount)
	}

	sheet, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sheet.Rows[1].Number != 3 {
		t.Errorf("Bob row number %v want 3", sheet.Rows[1].Number)
	}

	blank := strings.Replace(text, "W3", "W2", 1)
	v = Validate(blank)
	if v.Valid || !containsMsg(v.Errors, "Invalid opponent number 2") {
		t.Fatalf("expected blank row reference to be rejected, got %v",
			v.Errors)
	}
}
