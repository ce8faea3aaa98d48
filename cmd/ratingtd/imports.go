/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/sheets"
	"github.com/mikeb26/clubratings/tournament"
	"github.com/mikeb26/clubratings/uschess"
)

// published sheets change while a tournament is running
const publishedMaxAge = 5 * time.Minute

func handleImportUSCF(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("import-uscf", flag.ExitOnError)
	eventID := fs.Int("eventid", 0, "USCF rated event ID")
	section := fs.String("section", "", "Section name (required for multi-section events)")
	out := fs.String("out", "", "Write the tournament file here (default stdout)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *eventID <= 0 {
		fmt.Fprintln(os.Stderr, "Please provide a valid --eventid ID.")
		fs.Usage()
		os.Exit(1)
	}

	client := uschess.NewClient(ctx)
	tourney, err := client.FetchCrossTables(ctx, uschess.EventID(*eventID))
	if err != nil {
		log.Fatalf("Error fetching event %d: %v", *eventID, err)
	}
	if len(tourney.CrossTables) == 0 {
		log.Fatalf("Event %d has no sections", *eventID)
	}

	var xt *uschess.CrossTable
	if len(tourney.CrossTables) == 1 && *section == "" {
		xt = tourney.CrossTables[0]
	}
	for _, candidate := range tourney.CrossTables {
		if *section != "" && strings.EqualFold(candidate.SectionName, *section) {
			xt = candidate
			break
		}
	}
	if xt == nil {
		fmt.Fprintf(os.Stderr, "%v has %d sections; choose one with --section:\n",
			tourney.Event.Name, len(tourney.CrossTables))
		for _, candidate := range tourney.CrossTables {
			fmt.Fprintf(os.Stderr, "  - %v (%v players, %v rated)\n",
				candidate.SectionName, len(candidate.PlayerEntries),
				candidate.RType)
		}
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%v: %v ended %v (%v rated)\n", tourney.Event.Name,
		xt.SectionName, tourney.Event.EndDate.Format(internal.DateLayout),
		xt.RType)
	writeOutput(*out, uschess.TournamentText(xt))
}

func handleUSCFEvents(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("uscf-events", flag.ExitOnError)
	affiliate := fs.String("affiliate", "", "USCF affiliate ID")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *affiliate == "" {
		fmt.Fprintln(os.Stderr, "Please provide an --affiliate ID.")
		fs.Usage()
		os.Exit(1)
	}

	events, err := uschess.NewClient(ctx).GetAffiliateEvents(ctx, *affiliate)
	if err != nil {
		log.Fatalf("Error fetching events for %v: %v", *affiliate, err)
	}
	for _, ev := range events {
		fmt.Printf("%v  %v (EventID:%v)\n", ev.EndDate.Format(internal.DateLayout),
			ev.Name, ev.ID)
	}
	fmt.Printf("\nRun '%s import-uscf --eventid <EventID>' to convert an event\n",
		os.Args[0])
}

// handleSeedCache warms the http cache with the crosstables of an
// affiliate's events.
func handleSeedCache(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("seed-cache", flag.ExitOnError)
	affiliate := fs.String("affiliate", "", "USCF affiliate ID")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *affiliate == "" {
		fmt.Fprintln(os.Stderr, "Please provide an --affiliate ID.")
		fs.Usage()
		os.Exit(1)
	}

	client := uschess.NewClient(ctx)
	events, err := client.GetAffiliateEvents(ctx, *affiliate)
	if err != nil {
		log.Fatalf("Error fetching events for %v: %v", *affiliate, err)
	}
	for _, event := range events {
		_, err := client.FetchCrossTables(ctx, event.ID)
		time.Sleep(2 * time.Second) // avoid pegging uschess.org
		if err != nil {
			// best effort
			continue
		}

		fmt.Printf("seeded ev:%v\n", event.Name)
	}
}

func handleImportSheet(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("import-sheet", flag.ExitOnError)
	url := fs.String("url", "", "Spreadsheet URL or ID")
	sheetName := fs.String("sheet", "", "Tab to read (default first tab)")
	published := fs.Bool("published", false, "Read a published-to-web sheet without credentials")
	out := fs.String("out", "", "Write the tournament file here (default stdout)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *url == "" {
		fmt.Fprintln(os.Stderr, "Please provide a --url.")
		fs.Usage()
		os.Exit(1)
	}

	var text string
	var err error
	if *published {
		hc := internal.NewCachedHttpClient(ctx, cfg.WebCacheBucket,
			publishedMaxAge)
		text, err = sheets.FetchPublished(ctx, hc, *url)
	} else {
		text, err = sheetsClient(ctx, cfg).TournamentText(ctx, *url, *sheetName)
	}
	if err != nil {
		log.Fatalf("Error reading sheet: %v", err)
	}

	v := tournament.Validate(text)
	for _, e := range v.Errors {
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	writeOutput(*out, text)
}

func sheetsClient(ctx context.Context, cfg internal.Config) *sheets.Client {
	creds, err := cfg.GoogleCredentials()
	if err != nil {
		log.Fatalf("%v", err)
	}
	client, err := sheets.NewClient(ctx, creds)
	if err != nil {
		log.Fatalf("Error creating sheets client: %v", err)
	}
	return client
}

func handleDrive(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("drive", flag.ExitOnError)
	root := fs.String("root", cfg.DriveRootFolderID, "Drive folder holding one folder per club")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *root == "" {
		fmt.Fprintln(os.Stderr, "Please provide --root or set DRIVE_ROOT_FOLDER_ID.")
		os.Exit(1)
	}

	clubs, err := sheetsClient(ctx, cfg).ListClubTournaments(ctx, *root)
	if err != nil {
		log.Fatalf("Error listing drive: %v", err)
	}
	for _, club := range clubs {
		fmt.Println(club.Name)
		for _, ref := range club.Tournaments {
			fmt.Printf("  - %v %v\n    %v\n", ref.Date, ref.Name, ref.SheetURL)
		}
	}
}

func handleImportPlayers(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("import-players", flag.ExitOnError)
	url := fs.String("url", "", "Published roster sheet URL (tsv or pubhtml)")
	dryRun := fs.Bool("dry-run", false, "Parse the roster without writing")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *url == "" {
		fmt.Fprintln(os.Stderr, "Please provide a --url.")
		fs.Usage()
		os.Exit(1)
	}

	hc := internal.NewCachedHttpClient(ctx, cfg.WebCacheBucket, publishedMaxAge)
	players, err := sheets.FetchRoster(ctx, hc, *url)
	if err != nil {
		log.Fatalf("Error reading roster: %v", err)
	}
	if *dryRun {
		for _, p := range players {
			fmt.Printf("%v\t%v\t%v\trapid %.0f/%.0f\tblitz %.0f/%.0f\n", p.ID,
				p.Name, p.Team, p.Rapid.Mu, p.Rapid.Phi, p.Blitz.Mu,
				p.Blitz.Phi)
		}
		return
	}

	st := openStore(ctx, cfg)
	defer st.Close()

	n, err := st.UpsertPlayers(ctx, players)
	if err != nil {
		log.Fatalf("Error importing players: %v", err)
	}
	fmt.Printf("Imported %v players\n", n)
}
