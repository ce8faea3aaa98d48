/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/tournament"
)

type TournamentResult struct {
	TournamentName string `json:"tournamentName"`
	TournamentDate string `json:"tournamentDate"`
	OldRating      int    `json:"oldRating"`
	NewRating      int    `json:"newRating"`
	Change         int    `json:"change"`
}

// TypeChange summarizes one player's movement in one rating type.
type TypeChange struct {
	TotalChange       int                `json:"totalChange"`
	TournamentCount   int                `json:"tournamentCount"`
	StartingRating    int                `json:"startingRating"`
	EndingRating      int                `json:"endingRating"`
	FirstTournament   string             `json:"firstTournament"`
	LastTournament    string             `json:"lastTournament"`
	TournamentHistory []TournamentResult `json:"tournamentHistory"`

	total float64
}

type PlayerChange struct {
	PlayerID   tournament.PlayerID `json:"playerId"`
	PlayerName string              `json:"playerName"`
	Rapid      *TypeChange         `json:"rapid"`
	Blitz      *TypeChange         `json:"blitz"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ChangesSummary struct {
	TotalPlayers     int       `json:"totalPlayers"`
	RapidCount       int       `json:"rapidCount"`
	BlitzCount       int       `json:"blitzCount"`
	RapidTournaments int       `json:"rapidTournaments"`
	BlitzTournaments int       `json:"blitzTournaments"`
	AvgRapidChange   int       `json:"avgRapidChange"`
	AvgBlitzChange   int       `json:"avgBlitzChange"`
	DateRange        DateRange `json:"dateRange"`
}

type RatingChangesReport struct {
	Players []PlayerChange `json:"players"`
	Summary ChangesSummary `json:"summary"`
}

// RatingChanges aggregates rating history between start and end inclusive.
// A zero start or end leaves that side open; an empty rt includes both
// rating types. Players are ordered by the magnitude of their largest total
// change.
func (s *Store) RatingChanges(ctx context.Context, start time.Time,
	end time.Time, rt RatingType) (*RatingChangesReport, error) {

	var conds []string
	var args []any
	if !start.IsZero() {
		args = append(args, start.Format(internal.DateLayout))
		conds = append(conds, fmt.Sprintf("t.tournament_date >= $%d", len(args)))
	}
	if !end.IsZero() {
		args = append(args, end.Format(internal.DateLayout))
		conds = append(conds, fmt.Sprintf("t.tournament_date <= $%d", len(args)))
	}
	if rt != "" {
		if _, _, _, err := rt.columns(); err != nil {
			return nil, err
		}
		args = append(args, string(rt))
		conds = append(conds, fmt.Sprintf("rh.tournament_type = $%d", len(args)))
	}

	query := `SELECT rh.player_id, p.name, rh.tournament_type, t.name,
		t.tournament_date, rh.old_rating, rh.new_rating
		FROM rating_history rh
		JOIN tournaments t ON rh.tournament_id = t.id
		JOIN players p ON rh.player_id = p.id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.tournament_date, rh.created_at, t.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store.ratingchanges: %w", err)
	}
	defer rows.Close()

	byPlayer := make(map[tournament.PlayerID]*PlayerChange)
	var order []tournament.PlayerID
	for rows.Next() {
		var pid, name, typ, tname, tdate string
		var oldMu, newMu float64
		if err := rows.Scan(&pid, &name, &typ, &tname, &tdate, &oldMu,
			&newMu); err != nil {
			return nil, fmt.Errorf("store.ratingchanges: scan: %w", err)
		}

		id := tournament.PlayerID(pid)
		pc, ok := byPlayer[id]
		if !ok {
			pc = &PlayerChange{PlayerID: id, PlayerName: name}
			byPlayer[id] = pc
			order = append(order, id)
		}
		tc := &pc.Rapid
		if RatingType(typ) == RatingBlitz {
			tc = &pc.Blitz
		}
		if *tc == nil {
			*tc = &TypeChange{
				StartingRating:  int(math.Round(oldMu)),
				FirstTournament: tdate,
			}
		}
		c := *tc
		c.total += newMu - oldMu
		c.TournamentCount++
		c.EndingRating = int(math.Round(newMu))
		c.LastTournament = tdate
		c.TournamentHistory = append(c.TournamentHistory, TournamentResult{
			TournamentName: tname,
			TournamentDate: tdate,
			OldRating:      int(math.Round(oldMu)),
			NewRating:      int(math.Round(newMu)),
			Change:         int(math.Round(newMu - oldMu)),
		})
		c.TotalChange = int(math.Round(c.total))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.ratingchanges: %w", err)
	}

	report := &RatingChangesReport{Players: make([]PlayerChange, 0, len(order))}
	for _, id := range order {
		report.Players = append(report.Players, *byPlayer[id])
	}
	sort.SliceStable(report.Players, func(i, j int) bool {
		return largestChange(report.Players[i]) > largestChange(report.Players[j])
	})

	sum := &report.Summary
	sum.TotalPlayers = len(report.Players)
	rapidAbs, blitzAbs := 0, 0
	for _, p := range report.Players {
		if p.Rapid != nil {
			sum.RapidCount++
			sum.RapidTournaments += p.Rapid.TournamentCount
			rapidAbs += absInt(p.Rapid.TotalChange)
		}
		if p.Blitz != nil {
			sum.BlitzCount++
			sum.BlitzTournaments += p.Blitz.TournamentCount
			blitzAbs += absInt(p.Blitz.TotalChange)
		}
	}
	if sum.RapidCount > 0 {
		sum.AvgRapidChange = int(math.Round(float64(rapidAbs) /
			float64(sum.RapidCount)))
	}
	if sum.BlitzCount > 0 {
		sum.AvgBlitzChange = int(math.Round(float64(blitzAbs) /
			float64(sum.BlitzCount)))
	}
	sum.DateRange = DateRange{Start: "all time", End: "present"}
	if !start.IsZero() {
		sum.DateRange.Start = start.Format(internal.DateLayout)
	}
	if !end.IsZero() {
		sum.DateRange.End = end.Format(internal.DateLayout)
	}

	return report, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func largestChange(p PlayerChange) int {
	ret := 0
	if p.Rapid != nil {
		ret = absInt(p.Rapid.TotalChange)
	}
	if p.Blitz != nil && absInt(p.Blitz.TotalChange) > ret {
		ret = absInt(p.Blitz.TotalChange)
	}
	return ret
}
