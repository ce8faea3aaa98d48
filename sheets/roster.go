/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
)

// Roster columns of the legacy ratings sheet. Rapid uses Rating_1/RD/RV and
// blitz uses Rating_2/RD_1/RV_1.
const (
	rosterRapidRating = "Rating_1"
	rosterRapidRD     = "RD"
	rosterRapidRV     = "RV"
	rosterBlitzRating = "Rating_2"
	rosterBlitzRD     = "RD_1"
	rosterBlitzRV     = "RV_1"
)

// FetchRoster downloads a published roster sheet and parses it.
func FetchRoster(ctx context.Context, hc *http.Client,
	url string) ([]store.PlayerImport, error) {

	text, err := FetchPublished(ctx, hc, url)
	if err != nil {
		return nil, err
	}
	return ParseRoster(text)
}

// ParseRoster reads a tab-delimited roster with one row per player carrying
// both rapid and blitz ratings. A leading R or B on the ID is dropped and
// only the first row of each resulting ID is kept. Missing or unparseable
// rating cells take the default rating values.
func ParseRoster(text string) ([]store.PlayerImport, error) {
	records, err := readRecords(strings.NewReader(text), '\t')
	if err != nil {
		return nil, fmt.Errorf("sheets.roster: %w", err)
	}

	def := glicko2.New().CreateRating()
	seen := make(map[tournament.PlayerID]bool)
	var ret []store.PlayerImport
	for _, rec := range records {
		raw := rec[tournament.ColID]
		if strings.HasPrefix(raw, "R") || strings.HasPrefix(raw, "B") {
			raw = raw[1:]
		}
		id := tournament.PlayerID(raw)
		if id == "" {
			return nil, fmt.Errorf("sheets.roster: %w: %v",
				tournament.ErrMissingID, rec[tournament.ColName])
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		ret = append(ret, store.PlayerImport{
			ID:   id,
			Name: rec[tournament.ColName],
			Team: rec["Team"],
			Rapid: glicko2.NewRating(
				cellOr(rec[rosterRapidRating], def.Mu),
				cellOr(rec[rosterRapidRD], def.Phi),
				cellOr(rec[rosterRapidRV], def.Sigma)),
			Blitz: glicko2.NewRating(
				cellOr(rec[rosterBlitzRating], def.Mu),
				cellOr(rec[rosterBlitzRD], def.Phi),
				cellOr(rec[rosterBlitzRV], def.Sigma)),
		})
	}

	return ret, nil
}

func cellOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v == 0 {
		return def
	}
	return v
}
