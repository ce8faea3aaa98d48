/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package uschess imports rated events from the USCF ratings API and
// converts their crosstables into tournament files.
package uschess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mikeb26/clubratings/internal"
)

const defaultAPIBase = "https://ratings-api.uschess.org/api/v1"

type Client struct {
	httpClient30day *http.Client
	httpClient1day  *http.Client
	apiBase         string
}

func NewClient(ctx context.Context) *Client {
	return &Client{
		// rated events are rarely (if ever) updated
		httpClient30day: internal.NewCachedHttpClient(ctx,
			internal.WebCacheBucket, 30*24*time.Hour),
		httpClient1day: internal.NewCachedHttpClient(ctx,
			internal.WebCacheBucket, 24*time.Hour),
		apiBase: defaultAPIBase,
	}
}

func newClientWithBase(hc *http.Client, apiBase string) *Client {
	return &Client{
		httpClient30day: hc,
		httpClient1day:  hc,
		apiBase:         apiBase,
	}
}

func (client *Client) getJSON(ctx context.Context, hc *http.Client,
	url string, out any) error {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("User-Agent", internal.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("unable to fetch %v: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d fetching %v: %s",
			resp.StatusCode, url, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse JSON from %v: %w", url, err)
	}

	return nil
}
