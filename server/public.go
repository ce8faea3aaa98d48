/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mikeb26/clubratings/sheets"
	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
)

// GET /api/players?type=rapid|blitz
func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	rt := store.RatingRapid
	if v := r.URL.Query().Get("type"); v != "" {
		var err error
		if rt, err = store.ParseRatingType(v); err != nil {
			writeErr(w, err)
			return
		}
	}

	ctx := r.Context()
	if body, ok := s.cache.Get(ctx, string(rt)); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Write(body)
		return
	}

	players, err := s.store.ListPlayers(ctx, rt)
	if err != nil {
		writeErr(w, err)
		return
	}
	body, err := json.Marshal(players)
	if err != nil {
		writeErr(w, err)
		return
	}
	body = append(body, '\n')
	s.cache.Set(ctx, string(rt), body)

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// GET /api/players/{id}
func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	id := tournament.PlayerID(chi.URLParam(r, "id"))
	p, err := s.store.GetPlayer(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/tournaments
func (s *Server) listTournaments(w http.ResponseWriter, r *http.Request) {
	clubs, err := s.store.ListTournaments(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clubs)
}

// GET /api/tournaments/{id}
func (s *Server) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTournament(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GET /api/drive
func (s *Server) listDrive(w http.ResponseWriter, r *http.Request) {
	if s.drive == nil {
		writeError(w, http.StatusServiceUnavailable, "drive is not configured")
		return
	}
	clubs, err := s.drive.ListClubTournaments(r.Context(), s.driveRoot)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clubs)
}

// GET /api/calendar
func (s *Server) listCalendar(w http.ResponseWriter, r *http.Request) {
	if s.calendarURL == "" {
		writeError(w, http.StatusServiceUnavailable,
			"calendar is not configured")
		return
	}
	events, err := sheets.FetchUpcoming(r.Context(), s.httpClient,
		s.calendarURL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}
