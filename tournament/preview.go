/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Change is one player's line in a rating preview. Ratings are rounded to
// whole points for display; NewMu, NewPhi and NewSigma keep full precision so
// that the preview can be applied without reprocessing.
type Change struct {
	PlayerID     PlayerID       `json:"playerId"`
	PlayerName   string         `json:"playerName"`
	OldRating    int            `json:"oldRating"`
	NewRating    int            `json:"newRating"`
	NewRD        int            `json:"newRd"`
	NewSigma     float64        `json:"newSigma"`
	RatingChange int            `json:"ratingChange"`
	RoundChanges map[string]int `json:"roundChanges"`
	IsNew        bool           `json:"isNew,omitempty"`

	NewMu  float64 `json:"newMu"`
	NewPhi float64 `json:"newPhi"`
}

type Summary struct {
	TotalPlayers  int `json:"totalPlayers"`
	RoundsPlayed  int `json:"roundsPlayed"`
	AverageChange int `json:"averageChange"`
}

type Preview struct {
	Changes      []Change      `json:"changes"`
	Summary      Summary       `json:"summary"`
	RoundColumns []string      `json:"roundColumns"`
	Skipped      []SkippedGame `json:"skipped,omitempty"`
}

func round(v float64) int {
	return int(math.Round(v))
}

// BuildPreview converts a processing outcome into per-player changes.
// oldStats holds the ratings the tournament started from; newPlayers flags
// players that were provisioned for this tournament.
func BuildPreview(outcome *Outcome, oldStats PlayerStats,
	newPlayers []PlayerID) Preview {

	isNew := make(map[PlayerID]bool, len(newPlayers))
	for _, id := range newPlayers {
		isNew[id] = true
	}

	p := Preview{
		Changes:      []Change{},
		RoundColumns: outcome.RoundColumns,
		Skipped:      outcome.Skipped,
	}
	seen := make(map[PlayerID]bool)
	for _, row := range outcome.Rows {
		if seen[row.ID] {
			continue
		}
		seen[row.ID] = true

		updated, ok := outcome.UpdatedStats[row.ID]
		if !ok {
			continue
		}
		oldMu := outcome.InitialRatings[row.ID]
		if old, ok := oldStats[row.ID]; ok {
			oldMu = old.Rating.Mu
		}

		c := Change{
			PlayerID:     row.ID,
			PlayerName:   updated.Name,
			OldRating:    round(oldMu),
			NewRating:    round(updated.Rating.Mu),
			NewRD:        round(updated.Rating.Phi),
			NewSigma:     updated.Rating.Sigma,
			RatingChange: round(updated.Rating.Mu - oldMu),
			RoundChanges: make(map[string]int, len(outcome.RoundColumns)),
			IsNew:        isNew[row.ID],
			NewMu:        updated.Rating.Mu,
			NewPhi:       updated.Rating.Phi,
		}
		for rnd, diff := range outcome.RoundDiffs[row.ID] {
			c.RoundChanges[rnd] = round(diff)
		}
		p.Changes = append(p.Changes, c)
	}

	sort.SliceStable(p.Changes, func(i, j int) bool {
		ai := absInt(p.Changes[i].RatingChange)
		aj := absInt(p.Changes[j].RatingChange)
		if ai != aj {
			return ai > aj
		}
		return p.Changes[i].PlayerID < p.Changes[j].PlayerID
	})

	p.Summary = Summary{
		TotalPlayers: len(p.Changes),
		RoundsPlayed: len(outcome.RoundColumns),
	}
	if len(p.Changes) > 0 {
		total := 0
		for _, c := range p.Changes {
			total += absInt(c.RatingChange)
		}
		p.Summary.AverageChange = round(float64(total) /
			float64(len(p.Changes)))
	}

	return p
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func signed(v int) string {
	if v > 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}

func toAnySlice(strs []string) []any {
	ret := make([]any, len(strs))
	for i, s := range strs {
		ret[i] = s
	}
	return ret
}

// BuildPreviewOutput renders a preview as a fixed-width text table.
func BuildPreviewOutput(p Preview) string {
	var sb strings.Builder

	headers := []string{"ID", "Name", "Rating", "RD", "Chg"}
	headers = append(headers, p.RoundColumns...)

	newFound := false
	var rows [][]string
	for _, c := range p.Changes {
		name := c.PlayerName
		if c.IsNew {
			name += "*"
			newFound = true
		}
		row := []string{
			string(c.PlayerID),
			name,
			fmt.Sprintf("%v->%v", c.OldRating, c.NewRating),
			fmt.Sprintf("%v", c.NewRD),
			signed(c.RatingChange),
		}
		for _, rnd := range p.RoundColumns {
			row = append(row, signed(c.RoundChanges[rnd]))
		}
		rows = append(rows, row)
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	var fmtStrBuilder strings.Builder
	for _, w := range colWidths {
		fmtStrBuilder.WriteString(fmt.Sprintf("%%-%ds  ", w))
	}
	fmtStr := strings.TrimRight(fmtStrBuilder.String(), " ") + "\n"

	sb.WriteString(fmt.Sprintf(fmtStr, toAnySlice(headers)...))
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf(fmtStr, toAnySlice(row)...))
	}
	if newFound {
		sb.WriteString("* indicates a newly registered player\n")
	}
	for _, s := range p.Skipped {
		sb.WriteString(fmt.Sprintf("skipped %v: %v vs %v '%v'\n", s.Round,
			s.PlayerID, s.Opponent, s.Code))
	}
	sb.WriteString(fmt.Sprintf("Players: %v  Rounds: %v  Avg change: ±%v\n",
		p.Summary.TotalPlayers, p.Summary.RoundsPlayed,
		p.Summary.AverageChange))

	return sb.String()
}
