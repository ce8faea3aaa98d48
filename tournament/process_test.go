/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/mikeb26/clubratings/glicko2"
)

const twoPlayerText = "ID\tName\tRating\tRD\tRV\tRnd1\n" +
	"A1\tAlice\t1500\t350\t0.06\tW2\n" +
	"A2\tBob\t1500\t350\t0.06\tL1\n"

const fourPlayerText = "ID\tName\tRating\tRnd1\tRnd2\tRnd3\n" +
	"P1\tAnn\t1500\tW2\tD3\tL4\n" +
	"P2\tBen\t1500\tL1\tW4\tD3\n" +
	"P3\tCal\t1500\tW4\tD1\tD2\n" +
	"P4\tDee\t1500\tL3\tL2\tW1\n"

func testStats(t *testing.T, text string) (PlayerStats, *Sheet) {
	t.Helper()
	sheet, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return StatsFromSheet(nil, sheet), sheet
}

func TestProcessTwoPlayers(t *testing.T) {
	stats, _ := testStats(t, twoPlayerText)
	before := stats.Clone()

	out, err := NewProcessor(nil).Process(stats, twoPlayerText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantA, wantB, err := glicko2.New().Rate1vs1(stats["A1"].Rating,
		stats["A2"].Rating, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alice := out.UpdatedStats["A1"].Rating
	bob := out.UpdatedStats["A2"].Rating
	if alice != wantA || bob != wantB {
		t.Fatalf("got %v/%v want %v/%v", alice, bob, wantA, wantB)
	}
	if alice.Mu <= 1500 || bob.Mu >= 1500 {
		t.Errorf("expected alice up and bob down: %v %v", alice, bob)
	}

	if len(out.RoundDiffs["A1"]) != 1 || len(out.RoundDiffs["A2"]) != 1 {
		t.Fatalf("unexpected round diffs: %v", out.RoundDiffs)
	}
	if math.Abs(out.RoundDiffs["A1"]["Rnd1"]-(alice.Mu-1500)) > 1e-9 {
		t.Errorf("alice diff: %v", out.RoundDiffs["A1"]["Rnd1"])
	}
	if math.Abs(out.RoundDiffs["A2"]["Rnd1"]-(bob.Mu-1500)) > 1e-9 {
		t.Errorf("bob diff: %v", out.RoundDiffs["A2"]["Rnd1"])
	}
	if out.InitialRatings["A1"] != 1500 || out.InitialRatings["A2"] != 1500 {
		t.Errorf("unexpected initial ratings: %v", out.InitialRatings)
	}

	// input left untouched
	for id, entry := range before {
		if stats[id] != entry {
			t.Errorf("input stats for %v mutated", id)
		}
	}
}

func TestProcessRoundIdempotentPairing(t *testing.T) {
	stats, sheet := testStats(t, twoPlayerText)
	lookup := map[RowIndex]PlayerID{1: "A1", 2: "A2"}
	p := NewProcessor(nil)

	both, err := p.ProcessRound(sheet.Rows, stats, lookup, "Rnd1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	onlyX, err := p.ProcessRound(sheet.Rows[:1], stats, lookup, "Rnd1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	onlyY, err := p.ProcessRound(sheet.Rows[1:], stats, lookup, "Rnd1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []PlayerID{"A1", "A2"} {
		if both.Stats[id] != onlyX.Stats[id] {
			t.Errorf("%v: both rows %v, first row only %v", id,
				both.Stats[id], onlyX.Stats[id])
		}
		if both.Stats[id] != onlyY.Stats[id] {
			t.Errorf("%v: both rows %v, loss row only %v", id,
				both.Stats[id], onlyY.Stats[id])
		}
	}
}

func TestProcessOrderDependency(t *testing.T) {
	stats, sheet := testStats(t, fourPlayerText)
	p := NewProcessor(nil)

	fwd, err := p.ProcessSheet(stats, sheet, sheet.RoundColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rev := []string{"Rnd3", "Rnd2", "Rnd1"}
	bwd, err := p.ProcessSheet(stats, sheet, rev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	differs := false
	for _, id := range stats.IDs() {
		f := fwd.UpdatedStats[id].Rating
		b := bwd.UpdatedStats[id].Rating
		if math.Abs(f.Mu-b.Mu) > 1e-9 || math.Abs(f.Phi-b.Phi) > 1e-9 {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("expected round order to change final ratings")
	}
}

func TestProcessByesLeaveRatingUnchanged(t *testing.T) {
	text := "ID\tName\tRating\tRnd1\tRnd2\n" +
		"A1\tAlice\t1600\t-B-\tW2\n" +
		"A2\tBob\t1500\t-H-\tL1\n" +
		"A3\tCal\t1400\t-U-\t\n"
	stats, _ := testStats(t, text)

	out, err := NewProcessor(nil).Process(stats, text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.UpdatedStats["A3"] != stats["A3"] {
		t.Errorf("unpaired player changed: %v", out.UpdatedStats["A3"])
	}
	for _, id := range []PlayerID{"A1", "A2", "A3"} {
		if out.RoundDiffs[id]["Rnd1"] != 0 {
			t.Errorf("%v: expected zero Rnd1 diff, got %v", id,
				out.RoundDiffs[id]["Rnd1"])
		}
	}
	if out.RoundDiffs["A1"]["Rnd2"] <= 0 {
		t.Errorf("expected positive Rnd2 diff for A1")
	}
}

func TestProcessUnknownLetter(t *testing.T) {
	text := "ID\tName\tRating\tRnd1\n" +
		"A1\tAlice\t1500\tX2\n" +
		"A2\tBob\t1500\tL1\n"
	stats, _ := testStats(t, text)

	out, err := NewProcessor(nil).Process(stats, text)
	if err != nil {
		t.Fatalf("lenient: unexpected error: %v", err)
	}
	if out.UpdatedStats["A1"] != stats["A1"] ||
		out.UpdatedStats["A2"] != stats["A2"] {
		t.Errorf("lenient: skipped pairing changed ratings")
	}
	if len(out.Skipped) != 1 || out.Skipped[0].Code != "X2" ||
		out.Skipped[0].Opponent != "A2" {
		t.Errorf("lenient: unexpected skipped list %+v", out.Skipped)
	}

	_, err = NewProcessor(nil, WithMode(ModeStrict)).Process(stats, text)
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("strict: expected ErrInvalidResult, got %v", err)
	}
}

func TestProcessErrors(t *testing.T) {
	testCases := []struct {
		name  string
		text  string
		stats PlayerStats
		want  error
	}{
		{
			name: "missing player",
			text: twoPlayerText,
			stats: PlayerStats{
				"A1": {Name: "Alice", Rating: glicko2.NewRating(1500, 350, 0.06)},
			},
			want: ErrPlayerNotFound,
		},
		{
			name: "unknown opponent",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\t1500\tW5\n",
			stats: PlayerStats{
				"A1": {Name: "Alice", Rating: glicko2.NewRating(1500, 350, 0.06)},
			},
			want: ErrUnknownOpponent,
		},
		{
			name: "malformed code",
			text: "ID\tName\tRating\tRnd1\nA1\tAlice\t1500\tWin\n",
			stats: PlayerStats{
				"A1": {Name: "Alice", Rating: glicko2.NewRating(1500, 350, 0.06)},
			},
			want: ErrMalformedResult,
		},
		{
			name:  "parse error",
			text:  "ID\tName\tRnd1\n",
			stats: PlayerStats{},
			want:  ErrMissingColumns,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProcessor(nil).Process(tc.stats, tc.text)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}
}

func TestProcessRejectsAuto(t *testing.T) {
	text := "ID\tName\tRating\tRnd1\nAUTO\tAlice\t1500\t-B-\n"
	_, err := NewProcessor(nil).Process(PlayerStats{}, text)
	if err == nil || !strings.Contains(err.Error(), "AUTO") {
		t.Fatalf("expected unprovisioned AUTO error, got %v", err)
	}
}

func TestStatsFromSheetDefaults(t *testing.T) {
	text := "ID\tName\tRating\tRD\tRnd1\n" +
		"A1\tAlice\t1700\t80\t-B-\n" +
		"A2\tBob\t1400\t\t-B-\n"
	stats, _ := testStats(t, text)

	if r := stats["A1"].Rating; r.Mu != 1700 || r.Phi != 80 || r.Sigma != 0.06 {
		t.Errorf("alice: %v", r)
	}
	if r := stats["A2"].Rating; r.Mu != 1400 || r.Phi != 350 || r.Sigma != 0.06 {
		t.Errorf("bob: %v", r)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("strict"); err != nil || m != ModeStrict {
		t.Errorf("strict: %v %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != ModeLenient {
		t.Errorf("default: %v %v", m, err)
	}
	if _, err := ParseMode("loose"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}
