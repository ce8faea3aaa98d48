/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mikeb26/clubratings/internal"
)

func fetch(ctx context.Context, hc *http.Client, url string) (*http.Response,
	error) {

	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", internal.UserAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d fetching %s", resp.StatusCode, url)
	}

	return resp, nil
}

// FetchPublished downloads a sheet that was published to the web and
// returns it as tab-delimited text. Both the output=tsv export and the
// pubhtml page are understood.
func FetchPublished(ctx context.Context, hc *http.Client,
	url string) (string, error) {

	resp, err := fetch(ctx, hc, url)
	if err != nil {
		return "", fmt.Errorf("sheets.published: %w", err)
	}
	defer resp.Body.Close()

	isHTML := strings.Contains(url, "pubhtml") ||
		strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html")
	if !isHTML {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("sheets.published: read: %w", err)
		}
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("sheets.published: parse: %w", err)
	}
	return htmlTableToText(doc)
}

// htmlTableToText converts the first table of a pubhtml page. The row
// number column Google adds in a th is dropped.
func htmlTableToText(doc *goquery.Document) (string, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return "", fmt.Errorf("sheets.published: no table found")
	}

	var lines []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		vals := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			vals = append(vals, strings.TrimSpace(cell.Text()))
		})
		lines = append(lines, strings.Join(vals, "\t"))
	})

	// trailing all-empty rows are padding
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("sheets.published: table is empty")
	}

	return strings.Join(lines, "\n") + "\n", nil
}
