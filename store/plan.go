/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/tournament"
)

// Plan is a tournament file ready to be processed against the database.
type Plan struct {
	// Text is the file with AUTO rows given their planned identifiers.
	Text       string
	Sheet      *tournament.Sheet
	Stats      tournament.PlayerStats
	NewPlayers []tournament.PlayerID
}

// PlanTournament prepares text for processing with rt ratings. AUTO rows are
// assigned identifiers and start from system's default rating; nothing is
// written. Any other player missing from the database is an error.
func (s *Store) PlanTournament(ctx context.Context, rt RatingType,
	text string, system *glicko2.System) (*Plan, error) {

	text, newIDs, err := s.PlanAuto(ctx, text)
	if err != nil {
		return nil, err
	}
	sheet, err := tournament.Parse(text)
	if err != nil {
		return nil, err
	}

	names := make(map[tournament.PlayerID]string, len(sheet.Rows))
	ids := make([]tournament.PlayerID, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		names[row.ID] = row.Name
		ids = append(ids, row.ID)
	}
	stats, missing, err := s.LoadStats(ctx, rt, ids)
	if err != nil {
		return nil, err
	}

	isNew := make(map[tournament.PlayerID]bool, len(newIDs))
	for _, id := range newIDs {
		isNew[id] = true
	}
	var notFound []string
	for _, id := range missing {
		if !isNew[id] {
			notFound = append(notFound, string(id))
			continue
		}
		stats[id] = tournament.PlayerEntry{
			Name:   names[id],
			Rating: system.CreateRating(),
		}
	}
	if len(notFound) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnregistered,
			strings.Join(notFound, ", "))
	}
	if newIDs == nil {
		newIDs = []tournament.PlayerID{}
	}

	return &Plan{
		Text:       text,
		Sheet:      sheet,
		Stats:      stats,
		NewPlayers: newIDs,
	}, nil
}
