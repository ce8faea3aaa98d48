/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/tournament"
)

type Player struct {
	ID    tournament.PlayerID `json:"id"`
	Name  string              `json:"name"`
	Team  string              `json:"team"`
	Rapid glicko2.Rating      `json:"rapid"`
	Blitz glicko2.Rating      `json:"blitz"`
}

func (p *Player) Rating(rt RatingType) glicko2.Rating {
	if rt == RatingBlitz {
		return p.Blitz
	}
	return p.Rapid
}

// HistoryEntry is one tournament's effect on one player's rating.
type HistoryEntry struct {
	TournamentID   string         `json:"tournamentId"`
	TournamentName string         `json:"tournamentName"`
	TournamentDate string         `json:"tournamentDate"`
	RatingType     RatingType     `json:"tournamentType"`
	Old            glicko2.Rating `json:"old"`
	New            glicko2.Rating `json:"new"`
}

func (h HistoryEntry) Change() float64 {
	return h.New.Mu - h.Old.Mu
}

type PlayerDetail struct {
	Player
	History []HistoryEntry `json:"history"`
}

const playerColumns = `p.id, p.name, p.team,
  r.rapid_rating, r.rapid_rd, r.rapid_sigma,
  r.blitz_rating, r.blitz_rd, r.blitz_sigma`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (Player, error) {
	var p Player
	var id string
	err := row.Scan(&id, &p.Name, &p.Team,
		&p.Rapid.Mu, &p.Rapid.Phi, &p.Rapid.Sigma,
		&p.Blitz.Mu, &p.Blitz.Phi, &p.Blitz.Sigma)
	p.ID = tournament.PlayerID(id)
	return p, err
}

// ListPlayers returns every player ordered by rating of rt, highest first.
func (s *Store) ListPlayers(ctx context.Context, rt RatingType) ([]Player,
	error) {

	muCol, _, _, err := rt.columns()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+playerColumns+`
		FROM players p JOIN ratings r ON p.id = r.player_id
		ORDER BY r.`+muCol+` DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("store.listplayers: %w", err)
	}
	defer rows.Close()

	ret := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("store.listplayers: scan: %w", err)
		}
		ret = append(ret, p)
	}

	return ret, rows.Err()
}

// TopPlayers returns up to n players with the highest rt rating.
func (s *Store) TopPlayers(ctx context.Context, rt RatingType,
	n int) ([]Player, error) {

	players, err := s.ListPlayers(ctx, rt)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(players) > n {
		players = players[:n]
	}
	return players, nil
}

func (s *Store) GetPlayer(ctx context.Context,
	id tournament.PlayerID) (*PlayerDetail, error) {

	row := s.db.QueryRowContext(ctx, `SELECT `+playerColumns+`
		FROM players p JOIN ratings r ON p.id = r.player_id
		WHERE p.id = $1`, string(id))
	p, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrPlayerNotFound, id)
		}
		return nil, fmt.Errorf("store.getplayer: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.name, t.tournament_date,
		rh.tournament_type, rh.old_rating, rh.old_rd, rh.old_sigma,
		rh.new_rating, rh.new_rd, rh.new_sigma
		FROM rating_history rh JOIN tournaments t ON rh.tournament_id = t.id
		WHERE rh.player_id = $1
		ORDER BY t.tournament_date, rh.created_at`, string(id))
	if err != nil {
		return nil, fmt.Errorf("store.getplayer: history: %w", err)
	}
	defer rows.Close()

	ret := &PlayerDetail{Player: p, History: []HistoryEntry{}}
	for rows.Next() {
		var h HistoryEntry
		var rt string
		if err := rows.Scan(&h.TournamentID, &h.TournamentName,
			&h.TournamentDate, &rt, &h.Old.Mu, &h.Old.Phi, &h.Old.Sigma,
			&h.New.Mu, &h.New.Phi, &h.New.Sigma); err != nil {
			return nil, fmt.Errorf("store.getplayer: scan: %w", err)
		}
		h.RatingType = RatingType(rt)
		ret.History = append(ret.History, h)
	}

	return ret, rows.Err()
}

// LoadStats returns the rt ratings of the requested players together with
// the identifiers that are not in the database.
func (s *Store) LoadStats(ctx context.Context, rt RatingType,
	ids []tournament.PlayerID) (tournament.PlayerStats, []tournament.PlayerID,
	error) {

	muCol, rdCol, sigmaCol, err := rt.columns()
	if err != nil {
		return nil, nil, err
	}

	stats := make(tournament.PlayerStats, len(ids))
	if len(ids) == 0 {
		return stats, nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT p.id, p.name,
		r.%v, r.%v, r.%v
		FROM players p JOIN ratings r ON p.id = r.player_id
		WHERE p.id IN (%v)`, muCol, rdCol, sigmaCol,
		placeholders(1, len(ids))), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("store.loadstats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var entry tournament.PlayerEntry
		if err := rows.Scan(&id, &entry.Name, &entry.Rating.Mu,
			&entry.Rating.Phi, &entry.Rating.Sigma); err != nil {
			return nil, nil, fmt.Errorf("store.loadstats: scan: %w", err)
		}
		stats[tournament.PlayerID(id)] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("store.loadstats: %w", err)
	}

	var missing []tournament.PlayerID
	seen := make(map[tournament.PlayerID]bool)
	for _, id := range ids {
		if _, ok := stats[id]; !ok && !seen[id] {
			missing = append(missing, id)
		}
		seen[id] = true
	}

	return stats, missing, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result,
		error)
}

func (s *Store) insertPlayer(ctx context.Context, ex execer,
	id tournament.PlayerID, name string, team string, rapid glicko2.Rating,
	blitz glicko2.Rating) error {

	now := s.now().Unix()
	_, err := ex.ExecContext(ctx, `INSERT INTO players (id, name, team,
		created_at, updated_at) VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING`, string(id), name, team, now)
	if err != nil {
		return fmt.Errorf("insert player %v: %w", id, err)
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO ratings (player_id,
		rapid_rating, rapid_rd, rapid_sigma, blitz_rating, blitz_rd, blitz_sigma,
		updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (player_id) DO NOTHING`, string(id),
		rapid.Mu, rapid.Phi, rapid.Sigma, blitz.Mu, blitz.Phi, blitz.Sigma, now)
	if err != nil {
		return fmt.Errorf("insert ratings %v: %w", id, err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows,
		error)
}

// nextNumericID returns one more than the largest all-digit player id.
func nextNumericID(ctx context.Context, q queryer) (int, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM players`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(id); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, rows.Err()
}

func autoRows(text string) ([]tournament.Row, error) {
	sheet, err := tournament.Parse(text)
	if err != nil {
		return nil, err
	}
	var ret []tournament.Row
	for _, row := range sheet.Rows {
		if row.IsAuto() {
			ret = append(ret, row)
		}
	}
	return ret, nil
}

// PlanAuto assigns the next free numeric identifiers to the AUTO rows of a
// tournament file without registering anyone. The rewritten file and the
// assigned identifiers, in file order, are returned; ApplyRatings registers
// the players once the tournament is committed.
func (s *Store) PlanAuto(ctx context.Context,
	text string) (string, []tournament.PlayerID, error) {

	rows, err := autoRows(text)
	if err != nil {
		return "", nil, err
	}
	if len(rows) == 0 {
		return text, nil, nil
	}
	next, err := nextNumericID(ctx, s.db)
	if err != nil {
		return "", nil, fmt.Errorf("store.planauto: next id: %w", err)
	}

	ids := make(map[tournament.RowIndex]tournament.PlayerID, len(rows))
	var newIDs []tournament.PlayerID
	for _, row := range rows {
		id := tournament.PlayerID(strconv.Itoa(next))
		next++
		ids[row.Number] = id
		newIDs = append(newIDs, id)
	}
	newText, err := tournament.RewriteIDs(text, ids)
	if err != nil {
		return "", nil, err
	}

	return newText, newIDs, nil
}

// ProvisionAuto registers every AUTO row of a tournament file as a new
// player with default ratings and returns the file rewritten to use the new
// identifiers, in file order.
func (s *Store) ProvisionAuto(ctx context.Context,
	text string) (string, []tournament.PlayerID, error) {

	rows, err := autoRows(text)
	if err != nil {
		return "", nil, err
	}
	if len(rows) == 0 {
		return text, nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("store.provision: %w", err)
	}
	defer tx.Rollback()

	next, err := nextNumericID(ctx, tx)
	if err != nil {
		return "", nil, fmt.Errorf("store.provision: next id: %w", err)
	}

	def := glicko2.New().CreateRating()
	ids := make(map[tournament.RowIndex]tournament.PlayerID, len(rows))
	var newIDs []tournament.PlayerID
	for _, row := range rows {
		id := tournament.PlayerID(strconv.Itoa(next))
		next++
		name := internal.NormalizeName(row.Name)
		if err := s.insertPlayer(ctx, tx, id, name, "", def, def); err != nil {
			return "", nil, fmt.Errorf("store.provision: %w", err)
		}
		ids[row.Number] = id
		newIDs = append(newIDs, id)
	}

	newText, err := tournament.RewriteIDs(text, ids)
	if err != nil {
		return "", nil, err
	}
	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("store.provision: commit: %w", err)
	}

	return newText, newIDs, nil
}

// PlayerImport is one row of a bulk roster import.
type PlayerImport struct {
	ID    tournament.PlayerID
	Name  string
	Team  string
	Rapid glicko2.Rating
	Blitz glicko2.Rating
}

// UpsertPlayers inserts or replaces players and both of their ratings.
func (s *Store) UpsertPlayers(ctx context.Context,
	players []PlayerImport) (int, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store.upsert: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].ID < players[j].ID
	})
	for _, p := range players {
		_, err = tx.ExecContext(ctx, `INSERT INTO players (id, name, team,
			created_at, updated_at) VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
			team = EXCLUDED.team, updated_at = EXCLUDED.updated_at`,
			string(p.ID), p.Name, p.Team, now)
		if err != nil {
			return 0, fmt.Errorf("store.upsert: player %v: %w", p.ID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO ratings (player_id,
			rapid_rating, rapid_rd, rapid_sigma, blitz_rating, blitz_rd,
			blitz_sigma, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (player_id) DO UPDATE SET
			rapid_rating = EXCLUDED.rapid_rating, rapid_rd = EXCLUDED.rapid_rd,
			rapid_sigma = EXCLUDED.rapid_sigma,
			blitz_rating = EXCLUDED.blitz_rating, blitz_rd = EXCLUDED.blitz_rd,
			blitz_sigma = EXCLUDED.blitz_sigma, updated_at = EXCLUDED.updated_at`,
			string(p.ID), p.Rapid.Mu, p.Rapid.Phi, p.Rapid.Sigma,
			p.Blitz.Mu, p.Blitz.Phi, p.Blitz.Sigma, now)
		if err != nil {
			return 0, fmt.Errorf("store.upsert: ratings %v: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store.upsert: commit: %w", err)
	}
	return len(players), nil
}
