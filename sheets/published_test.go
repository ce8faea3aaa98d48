/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const pubHTML = `<html><body>
<div id="sheets-viewport"><table class="waffle">
<thead><tr><th></th><th>A</th><th>B</th><th>C</th><th>D</th></tr></thead>
<tbody>
<tr><th>1</th><td>ID</td><td>Name</td><td>Rating</td><td>Rnd1</td></tr>
<tr><th>2</th><td>1</td><td> Alice </td><td>1600</td><td>W2</td></tr>
<tr><th>3</th><td>2</td><td>Bob</td><td>1500</td><td>L1</td></tr>
<tr><th>4</th><td></td><td></td><td></td><td></td></tr>
</tbody></table></div></body></html>`

const calendarCSV = "id,name,date,time,location,format,timeControl,entryFee,prizes,registrationDeadline,paypalButton,status\n" +
	"2,Spring Swiss,2026-04-04,10:00,Boylston,Swiss,G/45,$30,$300,2026-04-01,,open\n" +
	"3,TBD Blitz,,19:00,Boylston,Swiss,G/5,$10,,,,\n" +
	"1,\"Winter Rapid, Open\",2026-01-10,10:00,Boylston,Swiss,G/25,$20,,,,closed\n" +
	",,,,,,,,,,,\n"

func TestFetchPublished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		switch r.URL.Path {
		case "/pub":
			if r.URL.Query().Get("output") == "tsv" {
				w.Header().Set("Content-Type", "text/tab-separated-values")
				w.Write([]byte("\ufeffID\tName\tRating\tRnd1\r\n1\tAlice\t1600\tW2\r\n"))
				return
			}
			http.NotFound(w, r)
		case "/pubhtml":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(pubHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"tsv", srv.URL + "/pub?output=tsv",
			"ID\tName\tRating\tRnd1\r\n1\tAlice\t1600\tW2\r\n", false},
		{"pubhtml", srv.URL + "/pubhtml",
			"ID\tName\tRating\tRnd1\n1\tAlice\t1600\tW2\n2\tBob\t1500\tL1\n", false},
		{"not found", srv.URL + "/missing", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FetchPublished(ctx, srv.Client(), tc.url)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestFetchUpcoming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {
		w.Write([]byte(calendarCSV))
	}))
	defer srv.Close()

	events, err := FetchUpcoming(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("FetchUpcoming: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	if events[0].ID != "1" || events[0].Name != "Winter Rapid, Open" ||
		events[0].Status != "closed" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].ID != "2" || events[1].Registration != "2026-04-01" ||
		events[1].TimeControl != "G/45" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
	if events[2].ID != "3" || !events[2].StartDate.IsZero() {
		t.Errorf("undated event should sort last: %+v", events[2])
	}
}

func TestParseRoster(t *testing.T) {
	text := "ID\tName\tTeam\tRating_1\tRD\tRV\tRating_2\tRD_1\tRV_1\n" +
		"R12\tAlice\tKnights\t1650\t80\t0.059\t1600\t90\t0.06\n" +
		"B12\tAlice\tKnights\t1650\t80\t0.059\t1600\t90\t0.06\n" +
		"7\tBob\t\t\t\t\tabc\t\t\n"

	players, err := ParseRoster(text)
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %+v", players)
	}
	a := players[0]
	if a.ID != "12" || a.Team != "Knights" || a.Rapid.Mu != 1650 ||
		a.Rapid.Phi != 80 || a.Rapid.Sigma != 0.059 || a.Blitz.Mu != 1600 {
		t.Errorf("unexpected first player: %+v", a)
	}
	b := players[1]
	if b.ID != "7" || b.Rapid.Mu != 1500 || b.Rapid.Phi != 350 ||
		b.Blitz.Mu != 1500 || b.Blitz.Sigma != 0.06 {
		t.Errorf("expected defaults: %+v", b)
	}

	_, err = ParseRoster("ID\tName\n\tNobody\n")
	if err == nil || !strings.Contains(err.Error(), "Nobody") {
		t.Errorf("expected missing id error, got %v", err)
	}
}
