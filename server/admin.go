/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
	"golang.org/x/sync/errgroup"
)

// number of unknown ids listed in the validation warning
const maxListedNewPlayers = 5

var errNoFile = errors.New("no file provided")

// readUpload returns the uploaded tournament file and rating type of a
// multipart admin request.
func readUpload(w http.ResponseWriter, r *http.Request) (string,
	store.RatingType, error) {

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", fmt.Errorf("bad upload: %w", err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return "", "", errNoFile
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", "", fmt.Errorf("bad upload: %w", err)
	}
	rt, err := store.ParseRatingType(r.FormValue("tournamentType"))
	if err != nil {
		return "", "", err
	}

	return string(data), rt, nil
}

type validationResponse struct {
	tournament.Validation
	NewPlayers     []tournament.PlayerID `json:"newPlayers"`
	TournamentType store.RatingType      `json:"tournamentType"`
}

// POST /api/admin/validate-tournament
func (s *Server) validateTournament(w http.ResponseWriter, r *http.Request) {
	text, rt, err := readUpload(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, tournament.Validation{
			Errors:   []string{err.Error()},
			Warnings: []string{},
		})
		return
	}

	// the structural check and the database lookup are independent
	var validation tournament.Validation
	newPlayers := []tournament.PlayerID{}
	autoCount := 0
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		validation = tournament.Validate(text)
		return nil
	})
	g.Go(func() error {
		sheet, err := tournament.Parse(text)
		if err != nil {
			// reported by Validate
			return nil
		}
		var ids []tournament.PlayerID
		for _, row := range sheet.Rows {
			if row.IsAuto() {
				autoCount++
				continue
			}
			ids = append(ids, row.ID)
		}
		_, missing, err := s.store.LoadStats(ctx, rt, ids)
		if err != nil {
			return err
		}
		newPlayers = append(newPlayers, missing...)
		return nil
	})
	if err := g.Wait(); err != nil {
		writeErr(w, err)
		return
	}

	resp := validationResponse{
		Validation:     validation,
		NewPlayers:     newPlayers,
		TournamentType: rt,
	}
	if !validation.Valid {
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	if len(newPlayers) > 0 {
		listed := newPlayers
		more := ""
		if len(listed) > maxListedNewPlayers {
			listed = listed[:maxListedNewPlayers]
			more = "..."
		}
		strs := make([]string, len(listed))
		for i, id := range listed {
			strs[i] = string(id)
		}
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("%v player(s) not found in database: %v%v",
				len(newPlayers), strings.Join(strs, ", "), more))
	}
	if autoCount > 0 {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("%v AUTO player(s) will be registered with default ratings",
				autoCount))
	}

	writeJSON(w, http.StatusOK, resp)
}

type processResponse struct {
	Success        bool             `json:"success"`
	TournamentType store.RatingType `json:"tournamentType"`
	tournament.Preview
	NewPlayers     []tournament.PlayerID `json:"newPlayers"`
	TournamentText string                `json:"tournamentText"`
}

// POST /api/admin/process-tournament
//
// AUTO rows are given the identifiers they will be registered under but
// nothing is written until the preview is applied.
func (s *Server) processTournament(w http.ResponseWriter, r *http.Request) {
	text, rt, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := tournament.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := s.store.PlanTournament(r.Context(), rt, text, s.system)
	if err != nil {
		writeErr(w, err)
		return
	}

	proc := tournament.NewProcessor(s.system, tournament.WithMode(mode))
	outcome, err := proc.ProcessSheet(plan.Stats, plan.Sheet,
		plan.Sheet.RoundColumns)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Success:        true,
		TournamentType: rt,
		Preview:        tournament.BuildPreview(outcome, plan.Stats, plan.NewPlayers),
		NewPlayers:     plan.NewPlayers,
		TournamentText: plan.Text,
	})
}

type applyRequest struct {
	TournamentName string              `json:"tournamentName"`
	TournamentDate string              `json:"tournamentDate"`
	TournamentType string              `json:"tournamentType"`
	Club           string              `json:"club"`
	Changes        []tournament.Change `json:"changes"`
	// optional; archived when an archive is configured
	TournamentText string `json:"tournamentText"`
}

// POST /api/admin/apply-ratings
func (s *Server) applyRatings(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.TournamentName == "" || req.TournamentDate == "" ||
		req.TournamentType == "" || len(req.Changes) == 0 {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	rt, err := store.ParseRatingType(req.TournamentType)
	if err != nil {
		writeErr(w, err)
		return
	}
	date, err := internal.ParseDateOrZero(req.TournamentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("bad tournamentDate %q: %v", req.TournamentDate, err))
		return
	}

	ctx := r.Context()
	var archiveKey string
	if s.archive != nil && req.TournamentText != "" {
		archiveKey, err = s.archive.ArchiveTournament(ctx, req.TournamentName,
			string(rt), req.TournamentText)
		if err != nil {
			log.Printf("server.apply: archive %v: %v", req.TournamentName, err)
			archiveKey = ""
		}
	}

	id, err := s.store.ApplyRatings(ctx, store.ApplyRequest{
		Name:       req.TournamentName,
		Date:       date,
		Type:       rt,
		Club:       req.Club,
		AdminEmail: AdminEmailFromContext(ctx),
		ArchiveKey: archiveKey,
		Changes:    req.Changes,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	s.cache.Invalidate(ctx)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"tournamentId":   id,
		"playersUpdated": len(req.Changes),
		"archiveKey":     archiveKey,
	})
}

// GET /api/admin/rating-changes?startDate&endDate&tournamentType
func (s *Server) ratingChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := internal.ParseDateOrZero(q.Get("startDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad startDate: "+err.Error())
		return
	}
	end, err := internal.ParseDateOrZero(q.Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad endDate: "+err.Error())
		return
	}
	var rt store.RatingType
	if v := q.Get("tournamentType"); v != "" && v != "all" {
		if rt, err = store.ParseRatingType(v); err != nil {
			writeErr(w, err)
			return
		}
	}

	report, err := s.store.RatingChanges(r.Context(), start, end, rt)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
