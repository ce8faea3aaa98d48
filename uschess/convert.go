/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package uschess

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/tournament"
)

// TournamentText renders one section's crosstable as a tab-delimited
// tournament file. Players keep their pairing order so that opponent
// references become row numbers. Members are identified by USCF id and
// start from their pre-event rating; unrated players get the default
// rating. Forfeits are not rated: a forfeit win becomes a full-point bye
// and a forfeit loss becomes unpaired.
func TournamentText(xt *CrossTable) string {
	rowOf := make(map[int]int, len(xt.PlayerEntries))
	for idx, e := range xt.PlayerEntries {
		rowOf[e.PairNum] = idx + 1
	}

	var sb strings.Builder
	headers := []string{tournament.ColID, tournament.ColName,
		tournament.ColRating}
	for i := 1; i <= xt.NumRounds; i++ {
		headers = append(headers, fmt.Sprintf("Rnd%d", i))
	}
	sb.WriteString(strings.Join(headers, "\t"))
	sb.WriteString("\n")

	for _, e := range xt.PlayerEntries {
		id := string(tournament.AutoID)
		if e.PlayerId > 0 {
			id = strconv.Itoa(int(e.PlayerId))
		}
		rating := e.PlayerRatingPre
		if rating <= 0 {
			rating = int(glicko2.DefaultMu)
		}

		cells := make([]string, xt.NumRounds)
		for _, res := range e.Results {
			if res.Round < 1 || res.Round > xt.NumRounds {
				continue
			}
			cells[res.Round-1] = resultCode(xt, e, res, rowOf)
		}
		for i := range cells {
			if cells[i] == "" {
				cells[i] = "-U-"
			}
		}

		row := append([]string{id, e.PlayerName, strconv.Itoa(rating)},
			cells...)
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}

	return sb.String()
}

func resultCode(xt *CrossTable, e CrossTableEntry, res RoundResult,
	rowOf map[int]int) string {

	var letter string
	switch res.Outcome {
	case ResultWin:
		letter = "W"
	case ResultLoss:
		letter = "L"
	case ResultDraw:
		letter = "D"
	case ResultFullBye, ResultWinByForfeit:
		return "-B-"
	case ResultHalfBye:
		return "-H-"
	default:
		return "-U-"
	}

	opp, ok := rowOf[res.OpponentPairNum]
	if !ok {
		log.Printf("uschess: %v round %d: %v has unknown opponent %d",
			xt.SectionName, res.Round, e.PlayerName, res.OpponentPairNum)
		return "-U-"
	}
	return letter + strconv.Itoa(opp)
}
