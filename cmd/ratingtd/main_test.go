/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"strings"
	"testing"

	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
)

func TestPreviewFileFromSheet(t *testing.T) {
	text := "ID\tName\tRating\tRD\tRnd1\tRnd2\n" +
		"1\tAlice\t1600\t80\tW2\t-B-\n" +
		"2\tBob\t1500\t\tL1\tD3\n" +
		"3\tCarol\t1450\t120\t-H-\tD2\n"

	preview, out, err := previewFile(context.Background(), nil,
		store.RatingRapid, tournament.ModeLenient, text)
	if err != nil {
		t.Fatalf("previewFile: %v", err)
	}
	if out != text {
		t.Errorf("file source must not rewrite the file")
	}
	if preview.Summary.TotalPlayers != 3 {
		t.Fatalf("expected 3 players, got %+v", preview.Summary)
	}

	byID := make(map[tournament.PlayerID]tournament.Change)
	for _, c := range preview.Changes {
		byID[c.PlayerID] = c
	}
	if byID["1"].OldRating != 1600 || byID["1"].RatingChange <= 0 {
		t.Errorf("expected Alice to gain: %+v", byID["1"])
	}
	if byID["2"].RatingChange >= 0 {
		t.Errorf("expected Bob to lose: %+v", byID["2"])
	}
}

func TestFormatTable(t *testing.T) {
	got := formatTable([]string{"ID", "Name"},
		[][]string{{"1", "Alice"}, {"22", "Bo"}})
	expected := "ID  Name \n" +
		"1   Alice\n" +
		"22  Bo   \n"
	if got != expected {
		t.Errorf("unexpected table:\n%q", got)
	}
	if !strings.HasSuffix(formatTable([]string{"A"}, nil), "A\n") {
		t.Errorf("header only table")
	}
}
