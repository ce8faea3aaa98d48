/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"fmt"
	"log"

	"github.com/mikeb26/clubratings/glicko2"
)

// Mode selects how a well-formed result code with an unrecognized letter is
// handled while processing a round.
type Mode int

const (
	// ModeLenient leaves the pairing unrated and records it in
	// Outcome.Skipped.
	ModeLenient Mode = iota
	// ModeStrict aborts processing with ErrInvalidResult, matching Validate.
	ModeStrict
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "lenient"
}

// ParseMode converts "strict" or "lenient" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return ModeStrict, nil
	case "lenient", "":
		return ModeLenient, nil
	default:
		return ModeLenient, fmt.Errorf("unknown mode %q", s)
	}
}

// Processor replays tournaments through a rating system.
type Processor struct {
	system *glicko2.System
	mode   Mode
}

type ProcessorOption func(*Processor)

func WithMode(mode Mode) ProcessorOption {
	return func(p *Processor) { p.mode = mode }
}

func NewProcessor(system *glicko2.System, opts ...ProcessorOption) *Processor {
	if system == nil {
		system = glicko2.New()
	}
	p := &Processor{system: system}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) Mode() Mode {
	return p.mode
}

// RoundUpdate is the effect of applying a single round.
type RoundUpdate struct {
	Stats   PlayerStats
	Diffs   map[PlayerID]float64
	Skipped []SkippedGame
}

// updateRatings resolves a result letter into the pair of new ratings. A
// loss is computed as the opponent's win so that the update is the same no
// matter which of the two rows is processed first.
func (p *Processor) updateRatings(self glicko2.Rating, opp glicko2.Rating,
	outcome Result) (glicko2.Rating, glicko2.Rating, error) {

	switch outcome {
	case ResultWin:
		return p.system.Rate1vs1(self, opp, false)
	case ResultLoss:
		oppNew, selfNew, err := p.system.Rate1vs1(opp, self, false)
		return selfNew, oppNew, err
	case ResultDraw:
		return p.system.Rate1vs1(self, opp, true)
	default:
		return self, opp, fmt.Errorf("%w: %v", ErrInvalidResult, outcome)
	}
}

// ProcessRound applies one round column to stats and returns the updated
// copy. stats itself is not modified. lookup resolves row numbers to player
// identifiers for this file.
func (p *Processor) ProcessRound(rows []Row, stats PlayerStats,
	lookup map[RowIndex]PlayerID, round string) (*RoundUpdate, error) {

	update := &RoundUpdate{
		Stats: stats.Clone(),
		Diffs: make(map[PlayerID]float64),
	}
	seen := make(map[PlayerID]bool)

	for _, row := range rows {
		p1ID := row.ID
		if seen[p1ID] {
			continue
		}
		seen[p1ID] = true

		code := row.Results[round]
		res, err := ParseResult(code)
		if err != nil {
			return nil, fmt.Errorf("%v player %v: %w", round, p1ID, err)
		}
		if !res.Outcome.IsGame() {
			continue
		}

		p1, ok := update.Stats[p1ID]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrPlayerNotFound, p1ID)
		}
		p2ID, ok := lookup[res.Opponent]
		if !ok {
			return nil, fmt.Errorf("%v player %v: %w: %v", round, p1ID,
				ErrUnknownOpponent, res.Opponent)
		}
		seen[p2ID] = true
		p2, ok := update.Stats[p2ID]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrPlayerNotFound, p2ID)
		}

		if res.Outcome == ResultUnknown {
			if p.mode == ModeStrict {
				return nil, fmt.Errorf("%v player %v: %w '%v'", round, p1ID,
					ErrInvalidResult, code)
			}
			log.Printf("tournament.round: invalid game result '%v' for %v in %v; skipping game",
				code, p1ID, round)
			update.Skipped = append(update.Skipped, SkippedGame{
				Round:    round,
				PlayerID: p1ID,
				Opponent: p2ID,
				Code:     code,
			})
			continue
		}

		p1New, p2New, err := p.updateRatings(p1.Rating, p2.Rating, res.Outcome)
		if err != nil {
			return nil, fmt.Errorf("%v %v vs %v: %w", round, p1ID, p2ID, err)
		}

		update.Diffs[p1ID] = p1New.Mu - p1.Rating.Mu
		update.Diffs[p2ID] = p2New.Mu - p2.Rating.Mu

		update.Stats[p1ID] = PlayerEntry{Name: p1.Name, Rating: p1New}
		update.Stats[p2ID] = PlayerEntry{Name: p2.Name, Rating: p2New}
	}

	return update, nil
}

// Process parses text and replays every round in chronological order
// starting from stats. The caller's stats map is left untouched.
func (p *Processor) Process(stats PlayerStats, text string) (*Outcome,
	error) {

	sheet, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return p.ProcessSheet(stats, sheet, sheet.RoundColumns)
}

// ProcessSheet replays the given rounds in the order supplied. Each round
// consumes the ratings left by the previous one, so the order matters.
func (p *Processor) ProcessSheet(stats PlayerStats, sheet *Sheet,
	rounds []string) (*Outcome, error) {

	lookup := make(map[RowIndex]PlayerID, len(sheet.Rows))
	initial := make(map[PlayerID]float64, len(sheet.Rows))
	diffs := make(RoundDiffs, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row.IsAuto() {
			return nil, fmt.Errorf("row %v: unprovisioned %v player",
				row.Number, AutoID)
		}
		lookup[row.Number] = row.ID
		initial[row.ID] = row.Rating
		diffs[row.ID] = make(map[string]float64, len(rounds))
		for _, round := range rounds {
			diffs[row.ID][round] = 0
		}
	}

	out := &Outcome{
		UpdatedStats:   stats.Clone(),
		RoundDiffs:     diffs,
		InitialRatings: initial,
		RoundColumns:   append([]string(nil), rounds...),
		Rows:           sheet.Rows,
	}

	for _, round := range rounds {
		update, err := p.ProcessRound(sheet.Rows, out.UpdatedStats, lookup, round)
		if err != nil {
			return nil, err
		}
		for id, diff := range update.Diffs {
			if _, ok := out.RoundDiffs[id]; !ok {
				out.RoundDiffs[id] = make(map[string]float64)
			}
			out.RoundDiffs[id][round] = diff
		}
		out.Skipped = append(out.Skipped, update.Skipped...)
		out.UpdatedStats = update.Stats
	}

	return out, nil
}

// StatsFromSheet builds PlayerStats from the file's own Rating, RD and RV
// columns. Missing RD/RV values fall back to the system defaults.
func StatsFromSheet(system *glicko2.System, sheet *Sheet) PlayerStats {
	if system == nil {
		system = glicko2.New()
	}
	def := system.CreateRating()
	stats := make(PlayerStats, len(sheet.Rows))
	for _, row := range sheet.Rows {
		r := glicko2.NewRating(row.Rating, def.Phi, def.Sigma)
		if row.RD > 0 {
			r.Phi = row.RD
		}
		if row.RV > 0 {
			r.Sigma = row.RV
		}
		stats[row.ID] = PlayerEntry{Name: row.Name, Rating: r}
	}
	return stats
}
