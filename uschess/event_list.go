/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package uschess

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/mikeb26/clubratings/internal"
)

type EventID int

type Event struct {
	EndDate time.Time
	Name    string
	ID      EventID
}

type apiAffiliateEventsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		EndDate string `json:"endDate"`
	} `json:"items"`
	Offset      int  `json:"offset"`
	PageSize    int  `json:"pageSize"`
	HasNextPage bool `json:"hasNextPage"`
}

const eventsPageSize = 100

// GetAffiliateEvents returns every rated event run by the given USCF
// affiliate, most recent first as reported by the API.
func (client *Client) GetAffiliateEvents(ctx context.Context,
	affiliateCode string) ([]Event, error) {

	var events []Event
	for offset := 0; ; offset += eventsPageSize {
		q := url.Values{}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("pageSize", strconv.Itoa(eventsPageSize))
		eventsURL := fmt.Sprintf("%v/affiliates/%v/events?%v", client.apiBase,
			url.PathEscape(affiliateCode), q.Encode())

		var page apiAffiliateEventsResponse
		err := client.getJSON(ctx, client.httpClient1day, eventsURL, &page)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			id, err := strconv.Atoi(item.ID)
			if err != nil {
				log.Printf("uschess: skipping event %q with id %q", item.Name,
					item.ID)
				continue
			}
			endDate, _ := internal.ParseDateOrZero(item.EndDate)
			events = append(events, Event{
				EndDate: endDate,
				Name:    item.Name,
				ID:      EventID(id),
			})
		}

		if !page.HasNextPage {
			break
		}
	}

	return events, nil
}
