/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"math"
	"strings"
	"testing"
)

func TestBuildPreview(t *testing.T) {
	stats, _ := testStats(t, fourPlayerText)
	out, err := NewProcessor(nil).Process(stats, fourPlayerText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := BuildPreview(out, stats, []PlayerID{"P4"})
	if p.Summary.TotalPlayers != 4 || p.Summary.RoundsPlayed != 3 {
		t.Fatalf("unexpected summary: %+v", p.Summary)
	}
	if len(p.Changes) != 4 {
		t.Fatalf("expected 4 changes, got %v", len(p.Changes))
	}

	total := 0
	for i, c := range p.Changes {
		if i > 0 && absInt(c.RatingChange) > absInt(p.Changes[i-1].RatingChange) {
			t.Errorf("changes not sorted by magnitude: %+v", p.Changes)
		}
		updated := out.UpdatedStats[c.PlayerID].Rating
		if c.NewRating != int(math.Round(updated.Mu)) ||
			c.NewRD != int(math.Round(updated.Phi)) ||
			c.NewSigma != updated.Sigma {
			t.Errorf("%v: change does not match outcome: %+v", c.PlayerID, c)
		}
		if c.OldRating != 1500 {
			t.Errorf("%v: old rating %v", c.PlayerID, c.OldRating)
		}
		if len(c.RoundChanges) != 3 {
			t.Errorf("%v: round changes %v", c.PlayerID, c.RoundChanges)
		}
		if c.IsNew != (c.PlayerID == "P4") {
			t.Errorf("%v: isNew %v", c.PlayerID, c.IsNew)
		}
		total += absInt(c.RatingChange)
	}
	want := int(math.Round(float64(total) / 4))
	if p.Summary.AverageChange != want {
		t.Errorf("average change: got %v want %v", p.Summary.AverageChange, want)
	}

	txt := BuildPreviewOutput(p)
	for _, s := range []string{"Rnd1", "Ann", "Dee*", "newly registered",
		"Players: 4"} {
		if !strings.Contains(txt, s) {
			t.Errorf("output missing %q:\n%v", s, txt)
		}
	}
}

func TestBuildPreviewEmpty(t *testing.T) {
	p := BuildPreview(&Outcome{}, nil, nil)
	if p.Summary.TotalPlayers != 0 || p.Summary.AverageChange != 0 {
		t.Fatalf("unexpected summary: %+v", p.Summary)
	}
	if p.Changes == nil {
		t.Fatalf("expected empty, non-nil changes")
	}
}
