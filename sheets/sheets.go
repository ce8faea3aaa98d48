/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package sheets reads tournament files and club folders kept in Google
// Sheets and Google Drive.
package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	spreadsheetURLBase  = "https://docs.google.com/spreadsheets/d/"

	// concurrent club folder listings
	maxFolderFetches = 4
)

var (
	spreadsheetIDRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	yearPrefixRe    = regexp.MustCompile(`^(19|20)\d{2}`)
)

// Client reads spreadsheets and lists drive folders using a service account.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewClient creates a client from service account credentials.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON,
		sheets.SpreadsheetsReadonlyScope, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to parse credentials: %w", err)
	}
	hc := config.Client(ctx)

	return newClient(ctx, []option.ClientOption{option.WithHTTPClient(hc)},
		[]option.ClientOption{option.WithHTTPClient(hc)})
}

func newClient(ctx context.Context, sheetsOpts []option.ClientOption,
	driveOpts []option.ClientOption) (*Client, error) {

	ss, err := sheets.NewService(ctx, sheetsOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to create sheets service: %w", err)
	}
	ds, err := drive.NewService(ctx, driveOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to create drive service: %w", err)
	}

	return &Client{sheets: ss, drive: ds}, nil
}

// ExtractSpreadsheetID returns the spreadsheet id embedded in a Google
// Sheets URL. A bare id is returned unchanged.
func ExtractSpreadsheetID(url string) (string, error) {
	if !strings.Contains(url, "/") {
		if url == "" {
			return "", fmt.Errorf("sheets: empty spreadsheet url")
		}
		return url, nil
	}
	matches := spreadsheetIDRe.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("sheets: could not extract spreadsheet ID from URL: %s",
			url)
	}
	return matches[1], nil
}

// TournamentText reads one tab of a spreadsheet as tab-delimited text with
// one line per sheet row. An empty sheetName selects the first tab.
func (c *Client) TournamentText(ctx context.Context, url string,
	sheetName string) (string, error) {

	id, err := ExtractSpreadsheetID(url)
	if err != nil {
		return "", err
	}

	if sheetName == "" {
		ss, err := c.sheets.Spreadsheets.Get(id).
			Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("sheets: get %v: %w", id, err)
		}
		if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
			return "", fmt.Errorf("sheets: spreadsheet %v has no tabs", id)
		}
		sheetName = ss.Sheets[0].Properties.Title
	}

	vr, err := c.sheets.Spreadsheets.Values.Get(id, sheetName).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sheets: read %v!%v: %w", id, sheetName, err)
	}

	return valuesToText(vr.Values), nil
}

func valuesToText(values [][]interface{}) string {
	var sb strings.Builder
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strings.TrimSpace(fmt.Sprint(v))
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// SheetRef is a tournament spreadsheet found in a club folder.
type SheetRef struct {
	Name     string `json:"name"`
	Date     string `json:"date"`
	SheetURL string `json:"sheetUrl"`
}

// ClubTournaments lists the tournament spreadsheets of one club.
type ClubTournaments struct {
	Name        string     `json:"name"`
	Tournaments []SheetRef `json:"tournaments"`
}

// ListClubTournaments walks the club folders directly below rootFolderID
// and returns each club's spreadsheets whose names start with a year,
// newest first.
func (c *Client) ListClubTournaments(ctx context.Context,
	rootFolderID string) ([]ClubTournaments, error) {

	folders, err := c.drive.Files.List().
		Q(fmt.Sprintf("'%v' in parents and mimeType='%v'", rootFolderID,
			folderMimeType)).
		Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: list club folders: %w", err)
	}

	ret := make([]ClubTournaments, len(folders.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFolderFetches)
	for i, folder := range folders.Files {
		ret[i].Name = folder.Name
		g.Go(func() error {
			files, err := c.drive.Files.List().
				Q(fmt.Sprintf("'%v' in parents and mimeType='%v'", folder.Id,
					spreadsheetMimeType)).
				Fields("files(id, name)").OrderBy("createdTime desc").
				Context(gctx).Do()
			if err != nil {
				return fmt.Errorf("sheets: list %v: %w", folder.Name, err)
			}
			ret[i].Tournaments = []SheetRef{}
			for _, f := range files.Files {
				if !yearPrefixRe.MatchString(f.Name) {
					continue
				}
				ret[i].Tournaments = append(ret[i].Tournaments, SheetRef{
					Name:     f.Name,
					Date:     sheetDate(f.Name),
					SheetURL: spreadsheetURLBase + f.Id,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ret, nil
}

// sheetDate returns the second word of a "<year> <date> ..." sheet name.
func sheetDate(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
