/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/sheets"
	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdmin    = "td@example.com"
	testPassword = "s3cret"
)

const autoText = "ID\tName\tRating\tRnd1\tRnd2\n" +
	"1\tAlice\t1600\tW2\tW3\n" +
	"2\tBob\t1500\tL1\t-B-\n" +
	"AUTO\tDOE, JANE\t1500\t-B-\tL1\n"

type fakeArchive struct {
	names []string
	texts []string
}

func (f *fakeArchive) ArchiveTournament(_ context.Context, name string,
	ratingType string, text string) (string, error) {

	f.names = append(f.names, name)
	f.texts = append(f.texts, text)
	return fmt.Sprintf("tournaments/%v/%v.tsv.gz", ratingType, len(f.names)), nil
}

type fakeDrive struct{}

func (fakeDrive) ListClubTournaments(_ context.Context,
	root string) ([]sheets.ClubTournaments, error) {

	if root != "root-folder" {
		return nil, errors.New("unexpected root")
	}
	return []sheets.ClubTournaments{{Name: "Boylston",
		Tournaments: []sheets.SheetRef{{Name: "2026 01/15 Rapid"}}}}, nil
}

type testEnv struct {
	store   *store.Store
	auth    *AuthService
	archive *fakeArchive
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, store.DriverSQLite,
		"file:"+filepath.Join(t.TempDir(), "ratings.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	_, err = st.UpsertPlayers(ctx, []store.PlayerImport{
		{ID: "1", Name: "Alice", Team: "Knights",
			Rapid: glicko2.NewRating(1600, 80, 0.06),
			Blitz: glicko2.NewRating(1550, 120, 0.06)},
		{ID: "2", Name: "Bob",
			Rapid: glicko2.NewRating(1500, 100, 0.06),
			Blitz: glicko2.NewRating(1650, 90, 0.06)},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword),
		bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	auth := NewAuthService("test-secret", testAdmin, string(hash))
	archive := &fakeArchive{}
	srv := New(st, auth, WithArchive(archive),
		WithDrive(fakeDrive{}, "root-folder"))

	return &testEnv{
		store:   st,
		auth:    auth,
		archive: archive,
		handler: srv.Handler(),
	}
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, err := e.auth.IssueJWT(testAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path string, text string, rt string,
	fields map[string]string) *httptest.ResponseRecorder {

	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "tournament.tsv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte(text))
	mw.WriteField("tournamentType", rt)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t))
	return e.do(req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"ok", `{"email":"TD@example.com","password":"s3cret"}`, http.StatusOK},
		{"wrong password", `{"email":"td@example.com","password":"nope"}`,
			http.StatusUnauthorized},
		{"wrong user", `{"email":"x@example.com","password":"s3cret"}`,
			http.StatusUnauthorized},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/login",
				strings.NewReader(tc.body))
			rec := e.do(req)
			if rec.Code != tc.wantCode {
				t.Fatalf("code %v want %v: %v", rec.Code, tc.wantCode,
					rec.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var resp map[string]string
			decode(t, rec, &resp)
			claims, err := e.auth.Parse(resp["access_token"])
			if err != nil || claims.Email != testAdmin {
				t.Errorf("bad token: %+v %v", claims, err)
			}
		})
	}
}

func TestAuthParseRejects(t *testing.T) {
	a := NewAuthService("secret", testAdmin, "")
	if _, err := a.Login(testAdmin, ""); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("login without a configured hash: %v", err)
	}

	other := NewAuthService("other", testAdmin, "")
	tok, err := other.IssueJWT(testAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := a.Parse(tok); err == nil {
		t.Errorf("token signed with another secret was accepted")
	}

	a.now = func() time.Time { return time.Now().Add(-2 * tokenTTL) }
	old, err := a.IssueJWT(testAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	a.now = time.Now
	if _, err := a.Parse(old); err == nil {
		t.Errorf("expired token was accepted")
	}
}

func TestAdminRequiresToken(t *testing.T) {
	e := newTestEnv(t)

	for _, auth := range []string{"", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/rating-changes",
			nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		if rec := e.do(req); rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: code %v", auth, rec.Code)
		}
	}
}

func TestValidateTournament(t *testing.T) {
	e := newTestEnv(t)

	text := "ID\tName\tRating\tRnd1\n" +
		"1\tAlice\t1600\tW2\n" +
		"42\tNew Guy\t1500\tL1\n" +
		"AUTO\tWalk In\t1500\t-B-\n"
	rec := e.upload(t, "/api/admin/validate-tournament", text, "rapid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code %v: %v", rec.Code, rec.Body.String())
	}
	var resp validationResponse
	decode(t, rec, &resp)
	if !resp.Valid || resp.TournamentType != store.RatingRapid {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.NewPlayers) != 1 || resp.NewPlayers[0] != "42" {
		t.Errorf("unexpected new players: %v", resp.NewPlayers)
	}
	if len(resp.Warnings) != 2 ||
		!strings.Contains(resp.Warnings[0], "1 player(s) not found in database: 42") ||
		!strings.Contains(resp.Warnings[1], "1 AUTO player(s)") {
		t.Errorf("unexpected warnings: %v", resp.Warnings)
	}

	rec = e.upload(t, "/api/admin/validate-tournament",
		"ID\tName\tRnd1\n1\tAlice\tW2\n", "rapid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code %v: %v", rec.Code, rec.Body.String())
	}
	decode(t, rec, &resp)
	if resp.Valid || len(resp.Errors) == 0 {
		t.Errorf("expected errors: %+v", resp)
	}

	rec = e.upload(t, "/api/admin/validate-tournament", text, "bullet", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad rating type accepted: %v", rec.Code)
	}
}

type processResult struct {
	Success        bool                  `json:"success"`
	TournamentType store.RatingType      `json:"tournamentType"`
	Changes        []tournament.Change   `json:"changes"`
	Summary        tournament.Summary    `json:"summary"`
	RoundColumns   []string              `json:"roundColumns"`
	NewPlayers     []tournament.PlayerID `json:"newPlayers"`
	TournamentText string                `json:"tournamentText"`
}

func TestProcessAndApply(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rec := e.upload(t, "/api/admin/process-tournament", autoText, "rapid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("process code %v: %v", rec.Code, rec.Body.String())
	}
	var preview processResult
	decode(t, rec, &preview)
	if !preview.Success || len(preview.Changes) != 3 ||
		preview.Summary.TotalPlayers != 3 || preview.Summary.RoundsPlayed != 2 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if len(preview.NewPlayers) != 1 || preview.NewPlayers[0] != "3" ||
		!strings.Contains(preview.TournamentText, "3\tDOE, JANE") {
		t.Fatalf("AUTO row not planned: %+v", preview)
	}
	for _, c := range preview.Changes {
		if c.IsNew != (c.PlayerID == "3") {
			t.Errorf("%v: isNew=%v", c.PlayerID, c.IsNew)
		}
		if c.PlayerID == "1" && c.RatingChange <= 0 {
			t.Errorf("Alice won twice but changed by %v", c.RatingChange)
		}
	}
	if _, err := e.store.GetPlayer(ctx, "3"); !errors.Is(err, store.ErrPlayerNotFound) {
		t.Fatalf("preview registered a player: %v", err)
	}

	body, _ := json.Marshal(applyRequest{
		TournamentName: "Thursday Rapid",
		TournamentDate: "2026-01-15",
		TournamentType: "rapid",
		Club:           "Boylston",
		Changes:        preview.Changes,
		TournamentText: preview.TournamentText,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/apply-ratings",
		bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+e.token(t))
	rec = e.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply code %v: %v", rec.Code, rec.Body.String())
	}
	var applied struct {
		TournamentID   string `json:"tournamentId"`
		PlayersUpdated int    `json:"playersUpdated"`
		ArchiveKey     string `json:"archiveKey"`
	}
	decode(t, rec, &applied)
	if applied.PlayersUpdated != 3 || applied.ArchiveKey != "tournaments/rapid/1.tsv.gz" {
		t.Errorf("unexpected apply response: %+v", applied)
	}
	if len(e.archive.texts) != 1 || e.archive.texts[0] != preview.TournamentText {
		t.Errorf("file not archived: %v", e.archive.names)
	}

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/players/3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get player code %v", rec.Code)
	}
	var p store.PlayerDetail
	decode(t, rec, &p)
	if p.Name != "Jane Doe" || len(p.History) != 1 || p.Blitz.Mu != 1500 {
		t.Errorf("unexpected new player: %+v", p)
	}

	rec = e.do(httptest.NewRequest(http.MethodGet,
		"/api/tournaments/"+applied.TournamentID, nil))
	var detail store.TournamentDetail
	decode(t, rec, &detail)
	if detail.Tournament.ProcessedBy != testAdmin ||
		detail.Tournament.Date != "2026-01-15" ||
		detail.Tournament.ArchiveKey != applied.ArchiveKey ||
		detail.Summary.TotalPlayers != 3 {
		t.Errorf("unexpected tournament: %+v", detail)
	}

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/tournaments", nil))
	var clubs []store.Club
	decode(t, rec, &clubs)
	if len(clubs) != 1 || clubs[0].Name != "Boylston" {
		t.Errorf("unexpected clubs: %+v", clubs)
	}

	req = httptest.NewRequest(http.MethodGet,
		"/api/admin/rating-changes?startDate=2026-01-01&tournamentType=rapid", nil)
	req.Header.Set("Authorization", "Bearer "+e.token(t))
	rec = e.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rating changes code %v: %v", rec.Code, rec.Body.String())
	}
	var report store.RatingChangesReport
	decode(t, rec, &report)
	if report.Summary.TotalPlayers != 3 || report.Summary.RapidTournaments != 3 ||
		report.Summary.DateRange.Start != "2026-01-01" {
		t.Errorf("unexpected report: %+v", report.Summary)
	}
}

func TestProcessErrors(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name     string
		text     string
		fields   map[string]string
		wantCode int
	}{
		{"unknown player", "ID\tName\tRating\tRnd1\n1\tAlice\t1600\tW2\n" +
			"99\tGhost\t1500\tL1\n", nil, http.StatusBadRequest},
		{"no rounds", "ID\tName\tRating\n1\tAlice\t1600\n", nil,
			http.StatusBadRequest},
		{"strict unknown letter", "ID\tName\tRating\tRnd1\n1\tAlice\t1600\tX2\n" +
			"2\tBob\t1500\tX1\n", map[string]string{"mode": "strict"},
			http.StatusBadRequest},
		{"bad mode", autoText, map[string]string{"mode": "loose"},
			http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.upload(t, "/api/admin/process-tournament", tc.text, "blitz",
				tc.fields)
			if rec.Code != tc.wantCode {
				t.Errorf("code %v want %v: %v", rec.Code, tc.wantCode,
					rec.Body.String())
			}
		})
	}

	rec := e.upload(t, "/api/admin/process-tournament",
		"ID\tName\tRating\tRnd1\n1\tAlice\t1600\tX2\n2\tBob\t1500\tX1\n",
		"blitz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lenient code %v: %v", rec.Code, rec.Body.String())
	}
	var lenient struct {
		Skipped []tournament.SkippedGame `json:"skipped"`
	}
	decode(t, rec, &lenient)
	if len(lenient.Skipped) != 1 || lenient.Skipped[0].Code != "X2" {
		t.Errorf("expected one skipped pairing: %+v", lenient.Skipped)
	}
}

func TestApplyErrors(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name     string
		req      applyRequest
		wantCode int
	}{
		{"missing fields", applyRequest{TournamentName: "x"},
			http.StatusBadRequest},
		{"bad type", applyRequest{TournamentName: "x", TournamentDate: "2026-01-01",
			TournamentType: "bullet",
			Changes:        []tournament.Change{{PlayerID: "1"}}},
			http.StatusBadRequest},
		{"unknown player", applyRequest{TournamentName: "x",
			TournamentDate: "2026-01-01", TournamentType: "rapid",
			Changes: []tournament.Change{{PlayerID: "77", NewMu: 1500,
				NewPhi: 200, NewSigma: 0.06}}},
			http.StatusNotFound},
		{"id conflict", applyRequest{TournamentName: "x",
			TournamentDate: "2026-01-01", TournamentType: "rapid",
			Changes: []tournament.Change{{PlayerID: "2", PlayerName: "Not Bob",
				IsNew: true, NewMu: 1500, NewPhi: 200, NewSigma: 0.06}}},
			http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.req)
			req := httptest.NewRequest(http.MethodPost, "/api/admin/apply-ratings",
				bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+e.token(t))
			if rec := e.do(req); rec.Code != tc.wantCode {
				t.Errorf("code %v want %v: %v", rec.Code, tc.wantCode,
					rec.Body.String())
			}
		})
	}
}

func TestPlayersCache(t *testing.T) {
	e := newTestEnv(t)

	get := func(path string) *httptest.ResponseRecorder {
		return e.do(httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := get("/api/players?type=blitz")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("first request: %v %v", rec.Code, rec.Header())
	}
	var players []store.Player
	decode(t, rec, &players)
	if len(players) != 2 || players[0].ID != "2" {
		t.Errorf("unexpected blitz order: %+v", players)
	}

	rec = get("/api/players?type=blitz")
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("expected cache hit")
	}
	rec = get("/api/players")
	if rec.Header().Get("X-Cache") != "" {
		t.Errorf("rapid list served from blitz cache")
	}
	decode(t, rec, &players)
	if players[0].ID != "1" {
		t.Errorf("unexpected rapid order: %+v", players)
	}

	if rec := get("/api/players?type=bullet"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad type code %v", rec.Code)
	}
	if rec := get("/api/players/404"); rec.Code != http.StatusNotFound {
		t.Errorf("missing player code %v", rec.Code)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "rapid", []byte("x"))
	if v, ok := c.Get(ctx, "rapid"); !ok || string(v) != "x" {
		t.Fatalf("miss after set")
	}
	now = now.Add(playersCacheTTL + time.Second)
	if _, ok := c.Get(ctx, "rapid"); ok {
		t.Errorf("entry did not expire")
	}
	c.Set(ctx, "blitz", []byte("y"))
	c.Invalidate(ctx)
	if _, ok := c.Get(ctx, "blitz"); ok {
		t.Errorf("entry survived invalidate")
	}
}

func TestRedisCacheFallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewRedisCache(ctx, "redis://127.0.0.1:1/0")
	if _, ok := c.(*MemoryCache); !ok {
		t.Skip("a redis server is listening on 127.0.0.1:1")
	}
	if _, ok := NewRedisCache(ctx, "not a url").(*MemoryCache); !ok {
		t.Errorf("bad url did not fall back")
	}
}

func TestDriveAndCalendar(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/drive", nil))
	var clubs []sheets.ClubTournaments
	decode(t, rec, &clubs)
	if rec.Code != http.StatusOK || len(clubs) != 1 || clubs[0].Name != "Boylston" {
		t.Errorf("unexpected drive listing: %v %+v", rec.Code, clubs)
	}

	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/calendar", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured calendar code %v", rec.Code)
	}

	cal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {
		w.Write([]byte("id,name,date\n1,Spring Swiss,2026-04-04\n"))
	}))
	defer cal.Close()
	srv := New(e.store, e.auth, WithCalendar(cal.Client(), cal.URL))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/calendar", nil))
	var events []sheets.Event
	decode(t, rec, &events)
	if len(events) != 1 || events[0].Name != "Spring Swiss" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", store.ErrPlayerNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: 99", store.ErrUnregistered), http.StatusBadRequest},
		{store.ErrIDConflict, http.StatusConflict},
		{fmt.Errorf("round 1: %w", tournament.ErrUnknownOpponent),
			http.StatusBadRequest},
		{glicko2.ErrNoConvergence, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("%v: got %v want %v", tc.err, got, tc.want)
		}
	}
}
