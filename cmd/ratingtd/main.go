/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mikeb26/clubratings/glicko2"
	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/s3cache"
	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
	"golang.org/x/sync/errgroup"
)

//go:embed help.txt
var helpText string

// cmdHandler defines the signature for command handler functions.
type cmdHandler func(ctx context.Context, cfg internal.Config, args []string)

// commands maps command names to their respective handler functions.
var commands = map[string]cmdHandler{
	"help":           handleHelp,
	"validate":       handleValidate,
	"preview":        handlePreview,
	"apply":          handleApply,
	"register":       handleRegister,
	"changes":        handleChanges,
	"players":        handlePlayers,
	"archive":        handleArchive,
	"import-uscf":    handleImportUSCF,
	"uscf-events":    handleUSCFEvents,
	"seed-cache":     handleSeedCache,
	"import-sheet":   handleImportSheet,
	"drive":          handleDrive,
	"import-players": handleImportPlayers,
}

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	internal.LoadDotEnv()
	cfg := internal.ConfigFromEnv()

	cmd := os.Args[1]
	if handler, ok := commands[cmd]; ok {
		handler(ctx, cfg, os.Args[2:])
	} else {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Printf("%v", helpText)
}

func handleHelp(ctx context.Context, cfg internal.Config, args []string) {
	usage()
}

func openStore(ctx context.Context, cfg internal.Config) *store.Store {
	st, err := store.Open(ctx, store.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	return st
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Error reading %v: %v", path, err)
	}
	return string(data)
}

func parseRatingType(s string) store.RatingType {
	rt, err := store.ParseRatingType(s)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return rt
}

func handleValidate(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Please provide one or more tournament files.")
		os.Exit(1)
	}

	failed := false
	for _, path := range fs.Args() {
		v := tournament.Validate(readFile(path))
		status := "ok"
		if !v.Valid {
			status = "INVALID"
			failed = true
		}
		fmt.Printf("%v: %v (%v players, %v rounds)\n", path, status,
			v.Summary.PlayerCount, v.Summary.RoundCount)
		for _, e := range v.Errors {
			fmt.Printf("  error: %v\n", e)
		}
		for _, w := range v.Warnings {
			fmt.Printf("  warning: %v\n", w)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// previewFile processes one tournament file. With a nil store the starting
// ratings come from the file's own Rating, RD and RV columns.
func previewFile(ctx context.Context, st *store.Store, rt store.RatingType,
	mode tournament.Mode, text string) (tournament.Preview, string, error) {

	system := glicko2.New()
	proc := tournament.NewProcessor(system, tournament.WithMode(mode))

	if st == nil {
		sheet, err := tournament.Parse(text)
		if err != nil {
			return tournament.Preview{}, "", err
		}
		stats := tournament.StatsFromSheet(system, sheet)
		outcome, err := proc.ProcessSheet(stats, sheet, sheet.RoundColumns)
		if err != nil {
			return tournament.Preview{}, "", err
		}
		return tournament.BuildPreview(outcome, stats, nil), text, nil
	}

	plan, err := st.PlanTournament(ctx, rt, text, system)
	if err != nil {
		return tournament.Preview{}, "", err
	}
	outcome, err := proc.ProcessSheet(plan.Stats, plan.Sheet,
		plan.Sheet.RoundColumns)
	if err != nil {
		return tournament.Preview{}, "", err
	}
	return tournament.BuildPreview(outcome, plan.Stats, plan.NewPlayers),
		plan.Text, nil
}

func handlePreview(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	rtStr := fs.String("type", "rapid", "Rating type (rapid or blitz)")
	source := fs.String("source", "db", "Starting ratings: db or file")
	modeStr := fs.String("mode", "lenient", "Unknown result handling (lenient or strict)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Please provide one or more tournament files.")
		fs.Usage()
		os.Exit(1)
	}
	mode, err := tournament.ParseMode(*modeStr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	rt := parseRatingType(*rtStr)

	var st *store.Store
	switch *source {
	case "db":
		st = openStore(ctx, cfg)
		defer st.Close()
	case "file":
	default:
		log.Fatalf("Unknown source %q: must be db or file", *source)
	}

	// each file is previewed from the same starting ratings
	paths := fs.Args()
	outputs := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		text := readFile(path)
		g.Go(func() error {
			preview, _, err := previewFile(gctx, st, rt, mode, text)
			if err != nil {
				return fmt.Errorf("%v: %w", path, err)
			}
			outputs[i] = fmt.Sprintf("%v (%v players, average change %+d)\n%v",
				path, preview.Summary.TotalPlayers,
				preview.Summary.AverageChange,
				tournament.BuildPreviewOutput(preview))
			for _, sk := range preview.Skipped {
				outputs[i] += fmt.Sprintf("skipped %v: %v vs %v (%q)\n",
					sk.Round, sk.PlayerID, sk.Opponent, sk.Code)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Error previewing: %v", err)
	}
	fmt.Print(strings.Join(outputs, "\n"))
}

func handleApply(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	rtStr := fs.String("type", "rapid", "Rating type (rapid or blitz)")
	name := fs.String("name", "", "Tournament name")
	dateStr := fs.String("date", "", "Tournament date (default today)")
	club := fs.String("club", "", "Club running the tournament")
	modeStr := fs.String("mode", "lenient", "Unknown result handling (lenient or strict)")
	admin := fs.String("admin", "", "Recorded as the processing admin (default $ADMIN_EMAIL)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 || *name == "" {
		fmt.Fprintln(os.Stderr, "Please provide --name and one tournament file.")
		fs.Usage()
		os.Exit(1)
	}
	mode, err := tournament.ParseMode(*modeStr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	rt := parseRatingType(*rtStr)
	date, err := internal.ParseDateOr(*dateStr, time.Now())
	if err != nil {
		log.Fatalf("Invalid --date %q: %v", *dateStr, err)
	}
	if *admin == "" {
		*admin = cfg.AdminEmail
	}

	st := openStore(ctx, cfg)
	defer st.Close()

	preview, text, err := previewFile(ctx, st, rt, mode, readFile(fs.Arg(0)))
	if err != nil {
		log.Fatalf("Error processing %v: %v", fs.Arg(0), err)
	}
	fmt.Print(tournament.BuildPreviewOutput(preview))

	var archiveKey string
	if cfg.ArchiveBucket != "" {
		archive, err := s3cache.NewArchive(ctx, cfg.ArchiveBucket, nil)
		if err == nil {
			archiveKey, err = archive.ArchiveTournament(ctx, *name, string(rt),
				text)
		}
		if err != nil {
			log.Printf("warning: tournament not archived: %v", err)
		}
	}

	id, err := st.ApplyRatings(ctx, store.ApplyRequest{
		Name:       *name,
		Date:       date,
		Type:       rt,
		Club:       *club,
		AdminEmail: *admin,
		ArchiveKey: archiveKey,
		Changes:    preview.Changes,
	})
	if err != nil {
		log.Fatalf("Error applying ratings: %v", err)
	}
	fmt.Printf("\nApplied %v (%v) to %v players as tournament %v\n", *name,
		date.Format(internal.DateLayout), len(preview.Changes), id)
	if archiveKey != "" {
		fmt.Printf("Archived as %v\n", archiveKey)
	}
}

func handleRegister(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	out := fs.String("out", "", "Write the rewritten file here (default stdout)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Please provide one tournament file.")
		fs.Usage()
		os.Exit(1)
	}

	st := openStore(ctx, cfg)
	defer st.Close()

	text, ids, err := st.ProvisionAuto(ctx, readFile(fs.Arg(0)))
	if err != nil {
		log.Fatalf("Error registering players: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Registered %v new player(s): %v\n", len(ids), ids)
	writeOutput(*out, text)
}

func writeOutput(path string, text string) {
	if path == "" {
		fmt.Print(text)
		return
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		log.Fatalf("Error writing %v: %v", path, err)
	}
}

func handleChanges(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("changes", flag.ExitOnError)
	startStr := fs.String("start", "", "First tournament date to include")
	endStr := fs.String("end", "", "Last tournament date to include")
	rtStr := fs.String("type", "all", "Rating type (rapid, blitz or all)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	start, err := internal.ParseDateOrZero(*startStr)
	if err != nil {
		log.Fatalf("Invalid --start %q: %v", *startStr, err)
	}
	end, err := internal.ParseDateOrZero(*endStr)
	if err != nil {
		log.Fatalf("Invalid --end %q: %v", *endStr, err)
	}
	var rt store.RatingType
	if *rtStr != "all" {
		rt = parseRatingType(*rtStr)
	}

	st := openStore(ctx, cfg)
	defer st.Close()

	report, err := st.RatingChanges(ctx, start, end, rt)
	if err != nil {
		log.Fatalf("Error building report: %v", err)
	}

	headers := []string{"ID", "Name", "Rapid", "Events", "Blitz", "Events"}
	var rows [][]string
	for _, p := range report.Players {
		row := []string{string(p.PlayerID), p.PlayerName}
		for _, tc := range []*store.TypeChange{p.Rapid, p.Blitz} {
			if tc == nil {
				row = append(row, "", "")
				continue
			}
			row = append(row,
				fmt.Sprintf("%v->%v (%+d)", tc.StartingRating, tc.EndingRating,
					tc.TotalChange),
				fmt.Sprintf("%v", tc.TournamentCount))
		}
		rows = append(rows, row)
	}
	fmt.Print(formatTable(headers, rows))

	sum := report.Summary
	fmt.Printf("\n%v players from %v to %v; %v rapid tournaments (avg %+d), %v blitz tournaments (avg %+d)\n",
		sum.TotalPlayers, sum.DateRange.Start, sum.DateRange.End,
		sum.RapidTournaments, sum.AvgRapidChange, sum.BlitzTournaments,
		sum.AvgBlitzChange)
}

func handlePlayers(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("players", flag.ExitOnError)
	rtStr := fs.String("type", "rapid", "Rating type (rapid or blitz)")
	top := fs.Int("top", 0, "Only show the n highest rated players")
	id := fs.String("id", "", "Show one player's rating history")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	rt := parseRatingType(*rtStr)

	st := openStore(ctx, cfg)
	defer st.Close()

	if *id != "" {
		printPlayer(ctx, st, tournament.PlayerID(*id))
		return
	}

	players, err := st.TopPlayers(ctx, rt, *top)
	if err != nil {
		log.Fatalf("Error listing players: %v", err)
	}
	headers := []string{"#", "ID", "Name", "Team", "Rating", "RD"}
	var rows [][]string
	for i, p := range players {
		r := p.Rating(rt)
		rows = append(rows, []string{
			fmt.Sprintf("%d.", i+1),
			string(p.ID),
			p.Name,
			p.Team,
			fmt.Sprintf("%.0f", r.Mu),
			fmt.Sprintf("%.0f", r.Phi),
		})
	}
	fmt.Print(formatTable(headers, rows))
}

func printPlayer(ctx context.Context, st *store.Store, id tournament.PlayerID) {
	p, err := st.GetPlayer(ctx, id)
	if err != nil {
		log.Fatalf("Error fetching player %v: %v", id, err)
	}
	fmt.Printf("%v (ID:%v)\n", p.Name, p.ID)
	if p.Team != "" {
		fmt.Printf("Team: %v\n", p.Team)
	}
	fmt.Printf("Rapid: %.0f (RD %.0f)\n", p.Rapid.Mu, p.Rapid.Phi)
	fmt.Printf("Blitz: %.0f (RD %.0f)\n", p.Blitz.Mu, p.Blitz.Phi)
	if len(p.History) == 0 {
		return
	}

	fmt.Println()
	headers := []string{"Date", "Tournament", "Type", "Rating", "Chg"}
	var rows [][]string
	for _, h := range p.History {
		rows = append(rows, []string{
			h.TournamentDate,
			h.TournamentName,
			string(h.RatingType),
			fmt.Sprintf("%.0f->%.0f", h.Old.Mu, h.New.Mu),
			fmt.Sprintf("%+.0f", h.Change()),
		})
	}
	fmt.Print(formatTable(headers, rows))
}

func handleArchive(ctx context.Context, cfg internal.Config, args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	rtStr := fs.String("type", "", "Only list this rating type")
	key := fs.String("key", "", "Print the archived file with this key")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if cfg.ArchiveBucket == "" {
		log.Fatalf("ARCHIVE_BUCKET is not set")
	}
	archive, err := s3cache.NewArchive(ctx, cfg.ArchiveBucket, nil)
	if err != nil {
		log.Fatalf("Error opening archive: %v", err)
	}

	if *key != "" {
		text, err := archive.FetchTournament(ctx, *key)
		if err != nil {
			log.Fatalf("Error fetching %v: %v", *key, err)
		}
		fmt.Print(text)
		return
	}

	if *rtStr != "" {
		*rtStr = string(parseRatingType(*rtStr))
	}
	keys, err := archive.ListTournaments(ctx, *rtStr)
	if err != nil {
		log.Fatalf("Error listing archive: %v", err)
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}

// formatTable renders rows as fixed-width columns under headers.
func formatTable(headers []string, rows [][]string) string {
	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	var fmtStrBuilder strings.Builder
	for _, w := range colWidths {
		fmtStrBuilder.WriteString(fmt.Sprintf("%%-%ds  ", w))
	}
	fmtStr := strings.TrimRight(fmtStrBuilder.String(), " ") + "\n"

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(fmtStr, toAnySlice(headers)...))
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf(fmtStr, toAnySlice(row)...))
	}
	return sb.String()
}

func toAnySlice(strs []string) []any {
	ret := make([]any, len(strs))
	for i, s := range strs {
		ret[i] = s
	}
	return ret
}
