/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/tournament"
)

const actionApplyRatings = "apply_tournament_ratings"

// ApplyRequest describes a previewed tournament to commit.
type ApplyRequest struct {
	Name       string
	Date       time.Time
	Type       RatingType
	Club       string
	AdminEmail string
	ArchiveKey string
	Changes    []tournament.Change
}

type Tournament struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        string     `json:"date"`
	Type        RatingType `json:"type"`
	Club        string     `json:"club"`
	ProcessedBy string     `json:"processedBy"`
	ArchiveKey  string     `json:"archiveKey,omitempty"`
}

// Club groups tournaments for display.
type Club struct {
	Name        string       `json:"name"`
	Tournaments []Tournament `json:"tournaments"`
}

type TournamentChange struct {
	PlayerID     tournament.PlayerID `json:"playerId"`
	PlayerName   string              `json:"playerName"`
	OldRating    int                 `json:"oldRating"`
	NewRating    int                 `json:"newRating"`
	RatingChange int                 `json:"ratingChange"`
	OldRD        int                 `json:"oldRd"`
	NewRD        int                 `json:"newRd"`
}

type TournamentSummary struct {
	TotalPlayers  int               `json:"totalPlayers"`
	AverageChange int               `json:"averageChange"`
	TopGainer     *TournamentChange `json:"topGainer"`
	BiggestDrop   *TournamentChange `json:"biggestDrop"`
}

type TournamentDetail struct {
	Tournament Tournament         `json:"tournament"`
	Changes    []TournamentChange `json:"changes"`
	Summary    TournamentSummary  `json:"summary"`
}

// newRatingOf returns the full-precision rating a change moves to, falling
// back to the rounded display values when the precise ones are absent.
func newRatingOf(c tournament.Change) glicko2.Rating {
	r := glicko2.NewRating(c.NewMu, c.NewPhi, c.NewSigma)
	if r.Mu == 0 && r.Phi == 0 {
		r.Mu = float64(c.NewRating)
		r.Phi = float64(c.NewRD)
	}
	return r
}

// ApplyRatings records a tournament and moves every listed player to their
// new rating in a single transaction. Players flagged IsNew that are not yet
// registered are created with default ratings first. The rating history
// keeps the rating each player held immediately before the update.
func (s *Store) ApplyRatings(ctx context.Context, req ApplyRequest) (string,
	error) {

	muCol, rdCol, sigmaCol, err := req.Type.columns()
	if err != nil {
		return "", err
	}
	if req.Name == "" {
		return "", fmt.Errorf("store.apply: missing tournament name")
	}
	if len(req.Changes) == 0 {
		return "", fmt.Errorf("store.apply: no rating changes")
	}
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store.apply: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	tournamentID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `INSERT INTO tournaments (id, name,
		tournament_date, tournament_type, club, processed_by, archive_key,
		created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tournamentID, req.Name, date.Format(internal.DateLayout),
		string(req.Type), req.Club, req.AdminEmail, req.ArchiveKey, now)
	if err != nil {
		return "", fmt.Errorf("store.apply: insert tournament: %w", err)
	}

	def := glicko2.New().CreateRating()
	for _, c := range req.Changes {
		if !c.IsNew {
			continue
		}
		name := internal.NormalizeName(c.PlayerName)
		var existing string
		err = tx.QueryRowContext(ctx, `SELECT name FROM players WHERE id = $1`,
			string(c.PlayerID)).Scan(&existing)
		switch {
		case err == nil:
			// registered by an earlier apply or provision of the same file
			if existing != name {
				return "", fmt.Errorf("store.apply: %w: %v is %v, not %v",
					ErrIDConflict, c.PlayerID, existing, name)
			}
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return "", fmt.Errorf("store.apply: read %v: %w", c.PlayerID, err)
		}
		err = s.insertPlayer(ctx, tx, c.PlayerID, name, "", def, def)
		if err != nil {
			return "", fmt.Errorf("store.apply: %w", err)
		}
	}

	for _, c := range req.Changes {
		var old glicko2.Rating
		err = tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT %v, %v, %v
			FROM ratings WHERE player_id = $1`, muCol, rdCol, sigmaCol),
			string(c.PlayerID)).Scan(&old.Mu, &old.Phi, &old.Sigma)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", fmt.Errorf("store.apply: %w: %v", ErrPlayerNotFound,
					c.PlayerID)
			}
			return "", fmt.Errorf("store.apply: read %v: %w", c.PlayerID, err)
		}

		updated := newRatingOf(c)
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`UPDATE ratings
			SET %v = $1, %v = $2, %v = $3, updated_at = $4
			WHERE player_id = $5`, muCol, rdCol, sigmaCol),
			updated.Mu, updated.Phi, updated.Sigma, now, string(c.PlayerID))
		if err != nil {
			return "", fmt.Errorf("store.apply: update %v: %w", c.PlayerID, err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO rating_history (id,
			player_id, tournament_id, tournament_type, old_rating, old_rd,
			old_sigma, new_rating, new_rd, new_sigma, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.NewString(), string(c.PlayerID), tournamentID,
			string(req.Type), old.Mu, old.Phi, old.Sigma, updated.Mu,
			updated.Phi, updated.Sigma, now)
		if err != nil {
			return "", fmt.Errorf("store.apply: history %v: %w", c.PlayerID, err)
		}
	}

	details, err := json.Marshal(map[string]any{
		"playerCount":    len(req.Changes),
		"tournamentType": req.Type,
	})
	if err != nil {
		return "", fmt.Errorf("store.apply: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO admin_actions (id, admin_email,
		action_type, tournament_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, uuid.NewString(), req.AdminEmail,
		actionApplyRatings, tournamentID, string(details), now)
	if err != nil {
		return "", fmt.Errorf("store.apply: audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store.apply: commit: %w", err)
	}

	return tournamentID, nil
}

func scanTournament(row scanner) (Tournament, error) {
	var t Tournament
	var rt string
	err := row.Scan(&t.ID, &t.Name, &t.Date, &rt, &t.Club, &t.ProcessedBy,
		&t.ArchiveKey)
	t.Type = RatingType(rt)
	return t, err
}

const tournamentColumns = `id, name, tournament_date, tournament_type, club,
  processed_by, archive_key`

// ListTournaments returns tournaments grouped by club, newest first within
// each club. Tournaments without a club are grouped under "Other".
func (s *Store) ListTournaments(ctx context.Context) ([]Club, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tournamentColumns+`
		FROM tournaments ORDER BY tournament_date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store.listtournaments: %w", err)
	}
	defer rows.Close()

	ret := []Club{}
	idx := make(map[string]int)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("store.listtournaments: scan: %w", err)
		}
		club := t.Club
		if club == "" {
			club = "Other"
		}
		i, ok := idx[club]
		if !ok {
			i = len(ret)
			idx[club] = i
			ret = append(ret, Club{Name: club})
		}
		ret[i].Tournaments = append(ret[i].Tournaments, t)
	}

	return ret, rows.Err()
}

func (s *Store) GetTournament(ctx context.Context,
	id string) (*TournamentDetail, error) {

	row := s.db.QueryRowContext(ctx, `SELECT `+tournamentColumns+`
		FROM tournaments WHERE id = $1`, id)
	t, err := scanTournament(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrTournamentNotFound, id)
		}
		return nil, fmt.Errorf("store.gettournament: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT rh.player_id, p.name,
		rh.old_rating, rh.new_rating, rh.old_rd, rh.new_rd
		FROM rating_history rh JOIN players p ON rh.player_id = p.id
		WHERE rh.tournament_id = $1
		ORDER BY (rh.new_rating - rh.old_rating) DESC, rh.player_id`, id)
	if err != nil {
		return nil, fmt.Errorf("store.gettournament: changes: %w", err)
	}
	defer rows.Close()

	ret := &TournamentDetail{Tournament: t, Changes: []TournamentChange{}}
	for rows.Next() {
		var pid string
		var name string
		var oldMu, newMu, oldRD, newRD float64
		if err := rows.Scan(&pid, &name, &oldMu, &newMu, &oldRD,
			&newRD); err != nil {
			return nil, fmt.Errorf("store.gettournament: scan: %w", err)
		}
		ret.Changes = append(ret.Changes, TournamentChange{
			PlayerID:     tournament.PlayerID(pid),
			PlayerName:   name,
			OldRating:    int(math.Round(oldMu)),
			NewRating:    int(math.Round(newMu)),
			RatingChange: int(math.Round(newMu - oldMu)),
			OldRD:        int(math.Round(oldRD)),
			NewRD:        int(math.Round(newRD)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.gettournament: %w", err)
	}

	ret.Summary.TotalPlayers = len(ret.Changes)
	if len(ret.Changes) > 0 {
		total := 0
		for _, c := range ret.Changes {
			if c.RatingChange < 0 {
				total -= c.RatingChange
			} else {
				total += c.RatingChange
			}
		}
		ret.Summary.AverageChange = int(math.Round(float64(total) /
			float64(len(ret.Changes))))
		ret.Summary.TopGainer = &ret.Changes[0]
		ret.Summary.BiggestDrop = &ret.Changes[len(ret.Changes)-1]
	}

	return ret, nil
}
