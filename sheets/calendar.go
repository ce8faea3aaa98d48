/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mikeb26/clubratings/internal"
)

// Event is an upcoming tournament listed in the club calendar sheet.
type Event struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Location     string    `json:"location"`
	Format       string    `json:"format"`
	TimeControl  string    `json:"timeControl"`
	EntryFee     string    `json:"entryFee"`
	Prizes       string    `json:"prizes"`
	Registration string    `json:"registration"`
	PayPalButton string    `json:"paypalButton"`
	Status       string    `json:"status"`
	StartDate    time.Time `json:"startDate"`
}

// FetchUpcoming downloads the calendar sheet's CSV export and returns its
// events ordered by date. Events whose date cannot be parsed sort last.
func FetchUpcoming(ctx context.Context, hc *http.Client,
	csvURL string) ([]Event, error) {

	resp, err := fetch(ctx, hc, csvURL)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	return ParseCalendar(resp.Body)
}

// ParseCalendar reads calendar CSV with a header row.
func ParseCalendar(r io.Reader) ([]Event, error) {
	records, err := readRecords(r, ',')
	if err != nil {
		return nil, fmt.Errorf("unable to parse calendar: %w", err)
	}

	events := []Event{}
	for _, rec := range records {
		e := Event{
			ID:           rec["id"],
			Name:         rec["name"],
			Date:         rec["date"],
			Time:         rec["time"],
			Location:     rec["location"],
			Format:       rec["format"],
			TimeControl:  rec["timeControl"],
			EntryFee:     rec["entryFee"],
			Prizes:       rec["prizes"],
			Registration: rec["registrationDeadline"],
			PayPalButton: rec["paypalButton"],
			Status:       rec["status"],
		}
		if e.Name == "" && e.Date == "" {
			continue
		}
		e.StartDate, err = internal.ParseDateOrZero(e.Date)
		if err != nil {
			e.StartDate = time.Time{}
		}
		events = append(events, e)
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].StartDate, events[j].StartDate
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.Before(b)
	})

	return events, nil
}

// readRecords returns each data row keyed by its trimmed header.
func readRecords(r io.Reader, comma rune) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := rows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff"))
	}
	var ret []map[string]string
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
				if rec[h] != "" {
					empty = false
				}
			}
		}
		if !empty {
			ret = append(ret, rec)
		}
	}

	return ret, nil
}
