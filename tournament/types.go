/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package tournament replays a tab-delimited tournament results file round by
// round through the Glicko-2 rating engine.
//
// The package performs no I/O. Callers supply the current ratings of every
// competing player and receive the updated ratings plus a per-round audit
// trail of rating changes.
package tournament

import (
	"errors"
	"sort"

	"github.com/mikeb26/clubratings/glicko2"
)

var (
	ErrEmptyFile       = errors.New("empty tournament file")
	ErrMissingColumns  = errors.New("missing required columns")
	ErrNoRounds        = errors.New("no round columns found")
	ErrMissingID       = errors.New("player missing ID")
	ErrInvalidRating   = errors.New("invalid rating")
	ErrMalformedResult = errors.New("malformed result code")
	ErrUnknownOpponent = errors.New("unknown opponent")
	ErrInvalidResult   = errors.New("invalid result")
	ErrPlayerNotFound  = errors.New("player not found in player stats")
)

// PlayerID is the persisted, cross-tournament player identifier.
type PlayerID string

// AutoID marks a player that has not been registered yet. It must be
// rewritten to a real identifier before processing.
const AutoID PlayerID = "AUTO"

// RowIndex is a 1-based row position within a single tournament file. It is
// only meaningful for resolving opponents inside that file.
type RowIndex int

// PlayerEntry is one player's display name and current rating.
type PlayerEntry struct {
	Name   string
	Rating glicko2.Rating
}

// PlayerStats maps each player to their current rating. It is owned by the
// caller; processing returns updated copies and never mutates its input.
type PlayerStats map[PlayerID]PlayerEntry

func (ps PlayerStats) Clone() PlayerStats {
	ret := make(PlayerStats, len(ps))
	for id, entry := range ps {
		ret[id] = entry
	}
	return ret
}

// IDs returns the player identifiers in sorted order.
func (ps PlayerStats) IDs() []PlayerID {
	ids := make([]PlayerID, 0, len(ps))
	for id := range ps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Row is one parsed data line of a tournament file.
type Row struct {
	Number RowIndex
	ID     PlayerID
	Name   string
	Rating float64
	// RD and RV are zero when the file has no such column
	RD      float64
	RV      float64
	Results map[string]string
}

// IsAuto reports whether the row's player still needs an identifier.
func (r *Row) IsAuto() bool {
	return isAutoID(string(r.ID))
}

// Sheet is a parsed tournament file.
type Sheet struct {
	Headers      []string
	RoundColumns []string
	Rows         []Row
	HasRD        bool
	HasRV        bool
}

// RoundDiffs holds each player's rating change per round column.
type RoundDiffs map[PlayerID]map[string]float64

// SkippedGame records a pairing left unrated because its result letter was
// not recognized.
type SkippedGame struct {
	Round    string   `json:"round"`
	PlayerID PlayerID `json:"playerId"`
	Opponent PlayerID `json:"opponentId"`
	Code     string   `json:"code"`
}

// Outcome is the result of processing a whole tournament.
type Outcome struct {
	UpdatedStats   PlayerStats
	RoundDiffs     RoundDiffs
	InitialRatings map[PlayerID]float64
	RoundColumns   []string
	Rows           []Row
	Skipped        []SkippedGame
}
