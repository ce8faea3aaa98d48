/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package uschess

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/mikeb26/clubratings/internal"
	"golang.org/x/sync/errgroup"
)

// maximum concurrent section standings requests
const maxSectionFetches = 4

// Result represents the outcome of a round.
type Result int

const (
	ResultWin Result = iota
	ResultLoss
	ResultDraw
	ResultFullBye
	ResultHalfBye
	ResultLossByForfeit
	ResultWinByForfeit
	ResultUnplayedGame
	ResultUnknown
)

type MemID int

// RoundResult holds the result of a single round for a player.
type RoundResult struct {
	Round           int
	OpponentPairNum int
	Outcome         Result
	Color           string
}

// CrossTableEntry holds the data for one player in the cross table.
type CrossTableEntry struct {
	PairNum          int
	PlayerName       string
	PlayerId         MemID
	PlayerRatingPre  int
	PlayerRatingPost int
	TotalPoints      float64
	Results          []RoundResult
}

type RatingType int

const (
	RatingTypeRegular RatingType = iota
	RatingTypeQuick
	RatingTypeBlitz
)

func (rt RatingType) String() string {
	switch rt {
	case RatingTypeQuick:
		return "quick"
	case RatingTypeBlitz:
		return "blitz"
	default:
		return "regular"
	}
}

// CrossTable holds the full cross table data, one per section.
type CrossTable struct {
	SectionNum    int
	SectionName   string
	NumRounds     int
	RType         RatingType
	PlayerEntries []CrossTableEntry
}

// Tournament encapsulates the overall event and its cross tables.
type Tournament struct {
	Event       Event
	CrossTables []*CrossTable
}

type apiRatedEventResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Sections  []struct {
		ID     string `json:"id"`
		Number int    `json:"number"`
		Name   string `json:"name"`
	} `json:"sections"`
}

type apiStandingsResponse struct {
	Items []apiStandingItem `json:"items"`
}

type apiStandingItem struct {
	Ordinal       int               `json:"ordinal"`
	PairingNumber int               `json:"pairingNumber"`
	MemberID      string            `json:"memberId"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	Score         float64           `json:"score"`
	RoundOutcomes []apiRoundOutcome `json:"roundOutcomes"`
	Ratings       []apiRatingChange `json:"ratings"`
}

type apiRoundOutcome struct {
	RoundNumber     int    `json:"roundNumber"`
	Outcome         string `json:"outcome"`
	Color           string `json:"color"`
	OpponentOrdinal int    `json:"opponentOrdinal"`
}

type apiRatingChange struct {
	PreRating    int    `json:"preRating"`
	PostRating   int    `json:"postRating"`
	RatingSystem string `json:"ratingSystem"`
}

// FetchCrossTables retrieves a Tournament with all sections' cross tables
// for the given event id. Sections whose standings cannot be fetched are
// logged and left out.
func (client *Client) FetchCrossTables(ctx context.Context,
	id EventID) (*Tournament, error) {

	var eventData apiRatedEventResponse
	err := client.getJSON(ctx, client.httpClient30day,
		fmt.Sprintf("%v/rated-events/%v", client.apiBase, id), &eventData)
	if err != nil {
		return nil, err
	}

	xts := make([]*CrossTable, len(eventData.Sections))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSectionFetches)
	for i, section := range eventData.Sections {
		g.Go(func() error {
			var standings apiStandingsResponse
			url := fmt.Sprintf("%v/rated-events/%v/sections/%d/standings",
				client.apiBase, id, section.Number)
			err := client.getJSON(gctx, client.httpClient30day, url, &standings)
			if err != nil {
				log.Printf("warning: failed to fetch section %d: %v",
					section.Number, err)
				return nil
			}
			xts[i] = convertStandingsToCrossTable(&standings, section.Number,
				section.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ret := &Tournament{
		Event: Event{
			Name: eventData.Name,
			ID:   id,
		},
	}
	ret.Event.EndDate, err = internal.ParseDateOrZero(eventData.EndDate)
	if err != nil {
		log.Printf("warning: unable to parse event end date %v: %v",
			eventData.EndDate, err)
	}
	for _, xt := range xts {
		if xt != nil {
			ret.CrossTables = append(ret.CrossTables, xt)
		}
	}
	sort.Slice(ret.CrossTables, func(i, j int) bool {
		return ret.CrossTables[i].SectionNum < ret.CrossTables[j].SectionNum
	})

	return ret, nil
}

// sectionRatingType picks the section's rating system from its first rated
// player, preferring regular ratings in dual-rated sections.
func sectionRatingType(items []apiStandingItem) RatingType {
	for _, item := range items {
		if len(item.Ratings) == 0 {
			continue
		}
		for _, rating := range item.Ratings {
			if rating.RatingSystem == "R" || rating.RatingSystem == "D" {
				return RatingTypeRegular
			}
		}
		switch item.Ratings[0].RatingSystem {
		case "B":
			return RatingTypeBlitz
		case "Q":
			return RatingTypeQuick
		}
		return RatingTypeRegular
	}

	return RatingTypeRegular
}

func (rt RatingType) matches(system string) bool {
	switch rt {
	case RatingTypeBlitz:
		return system == "B"
	case RatingTypeQuick:
		return system == "Q"
	}
	return system == "R" || system == "D"
}

func convertStandingsToCrossTable(standings *apiStandingsResponse,
	sectionNum int, sectionName string) *CrossTable {

	xt := &CrossTable{
		SectionNum:  sectionNum,
		SectionName: sectionName,
		RType:       sectionRatingType(standings.Items),
	}

	for _, item := range standings.Items {
		entry := CrossTableEntry{
			PairNum:     item.Ordinal,
			PlayerName:  internal.NormalizeName(item.FirstName + " " + item.LastName),
			TotalPoints: item.Score,
		}
		if item.MemberID != "" {
			memberID, err := strconv.Atoi(item.MemberID)
			if err != nil {
				log.Printf("warning: failed to convert member ID %v to int: %v",
					item.MemberID, err)
			}
			entry.PlayerId = MemID(memberID)
		}
		for _, rating := range item.Ratings {
			if xt.RType.matches(rating.RatingSystem) {
				entry.PlayerRatingPre = rating.PreRating
				entry.PlayerRatingPost = rating.PostRating
				break
			}
		}

		for idx, outcome := range item.RoundOutcomes {
			rnd := outcome.RoundNumber
			if rnd <= 0 {
				rnd = idx + 1
			}
			entry.Results = append(entry.Results, RoundResult{
				Round:           rnd,
				OpponentPairNum: outcome.OpponentOrdinal,
				Outcome:         convertOutcome(outcome.Outcome),
				Color:           convertColor(outcome.Color),
			})
			if rnd > xt.NumRounds {
				xt.NumRounds = rnd
			}
		}
		sort.Slice(entry.Results, func(i, j int) bool {
			return entry.Results[i].Round < entry.Results[j].Round
		})

		xt.PlayerEntries = append(xt.PlayerEntries, entry)
	}
	sort.SliceStable(xt.PlayerEntries, func(i, j int) bool {
		return xt.PlayerEntries[i].PairNum < xt.PlayerEntries[j].PairNum
	})

	return xt
}

func convertOutcome(outcome string) Result {
	switch outcome {
	case "Win":
		return ResultWin
	case "Loss":
		return ResultLoss
	case "Draw":
		return ResultDraw
	case "ByeFull":
		return ResultFullBye
	case "ByeHalf":
		return ResultHalfBye
	case "LossByForfeit", "LossForfeit":
		return ResultLossByForfeit
	case "WinByForfeit", "WinForfeit":
		return ResultWinByForfeit
	case "Unplayed", "Unpaired":
		return ResultUnplayedGame
	default:
		return ResultUnknown
	}
}

func convertColor(color string) string {
	switch strings.ToLower(color) {
	case "white":
		return "white"
	case "black":
		return "black"
	default:
		return ""
	}
}
