/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package server exposes the ratings database and the tournament
// processing pipeline over HTTP. Public routes serve players and applied
// tournaments; admin routes validate, preview and apply tournament files.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/sheets"
	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
)

const (
	requestTimeout = 60 * time.Second
	maxUploadBytes = 4 << 20
)

// Archiver keeps a copy of each applied tournament file.
type Archiver interface {
	ArchiveTournament(ctx context.Context, name string, ratingType string,
		text string) (string, error)
}

// DriveLister lists the tournament spreadsheets kept per club.
type DriveLister interface {
	ListClubTournaments(ctx context.Context,
		rootFolderID string) ([]sheets.ClubTournaments, error)
}

type Server struct {
	store  *store.Store
	auth   *AuthService
	cache  PlayerCache
	system *glicko2.System

	archive     Archiver
	drive       DriveLister
	driveRoot   string
	httpClient  *http.Client
	calendarURL string
	origins     []string
}

type Option func(*Server)

func WithCache(c PlayerCache) Option {
	return func(s *Server) { s.cache = c }
}

func WithArchive(a Archiver) Option {
	return func(s *Server) { s.archive = a }
}

func WithDrive(d DriveLister, rootFolderID string) Option {
	return func(s *Server) {
		s.drive = d
		s.driveRoot = rootFolderID
	}
}

// WithCalendar serves the upcoming event calendar published at csvURL,
// fetched through hc.
func WithCalendar(hc *http.Client, csvURL string) Option {
	return func(s *Server) {
		s.httpClient = hc
		s.calendarURL = csvURL
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func WithRatingSystem(system *glicko2.System) Option {
	return func(s *Server) { s.system = system }
}

func New(st *store.Store, auth *AuthService, opts ...Option) *Server {
	s := &Server{
		store:   st,
		auth:    auth,
		cache:   NewMemoryCache(),
		system:  glicko2.New(),
		origins: []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router serving every API route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger,
		middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/players", s.listPlayers)
		r.Get("/players/{id}", s.getPlayer)
		r.Get("/tournaments", s.listTournaments)
		r.Get("/tournaments/{id}", s.getTournament)
		r.Get("/drive", s.listDrive)
		r.Get("/calendar", s.listCalendar)

		r.Post("/admin/login", LoginHandler(s.auth))
		r.Group(func(ar chi.Router) {
			ar.Use(JWTMiddleware(s.auth))
			ar.Post("/admin/validate-tournament", s.validateTournament)
			ar.Post("/admin/process-tournament", s.processTournament)
			ar.Post("/admin/apply-ratings", s.applyRatings)
			ar.Get("/admin/rating-changes", s.ratingChanges)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an error from the store or the processing pipeline to an
// HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrPlayerNotFound),
		errors.Is(err, store.ErrTournamentNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrIDConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidRatingType),
		errors.Is(err, tournament.ErrEmptyFile),
		errors.Is(err, tournament.ErrMissingColumns),
		errors.Is(err, tournament.ErrNoRounds),
		errors.Is(err, tournament.ErrMissingID),
		errors.Is(err, tournament.ErrInvalidRating),
		errors.Is(err, tournament.ErrMalformedResult),
		errors.Is(err, tournament.ErrUnknownOpponent),
		errors.Is(err, tournament.ErrInvalidResult),
		errors.Is(err, tournament.ErrPlayerNotFound),
		errors.Is(err, store.ErrUnregistered):
		return http.StatusBadRequest
	case errors.Is(err, glicko2.ErrInvalidRating),
		errors.Is(err, glicko2.ErrNoConvergence):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("server: %v", err)
	}
	writeError(w, status, err.Error())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
