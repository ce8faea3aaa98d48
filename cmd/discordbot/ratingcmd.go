/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/sheets"
	"github.com/mikeb26/clubratings/store"
	"github.com/mikeb26/clubratings/tournament"
)

type RatingSubCommand string

const (
	RatingAboutCmd       RatingSubCommand = "about"
	RatingHelpCmd        RatingSubCommand = "help"
	RatingPlayerCmd      RatingSubCommand = "player"
	RatingTopCmd         RatingSubCommand = "top"
	RatingTournamentsCmd RatingSubCommand = "tournaments"
	RatingCalCmd         RatingSubCommand = "cal"
)

const (
	maxNameMatches = 10
	maxHistory     = 5
	maxTop         = 25
)

func (b *bot) ratingCmdHandler(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse {

	data := inter.ApplicationCommandData()
	hdlr := b.helpCmdHandler
	if len(data.Options) > 0 {
		if subName := data.Options[0].Name; subName != "" {
			h, ok := b.subCmdHdlrs[RatingSubCommand(subName)]
			if ok {
				hdlr = h
			}
		}
	}
	return hdlr(ctx, inter)
}

func newResponse() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}
}

// subOptions returns the options given to the invoked subcommand and
// whether the result should be shown to the whole channel.
func subOptions(inter *discordgo.Interaction) (
	map[string]*discordgo.ApplicationCommandInteractionDataOption, bool) {

	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	data := inter.ApplicationCommandData()
	if len(data.Options) == 0 {
		return opts, false
	}
	for _, opt := range data.Options[0].Options {
		opts[opt.Name] = opt
	}
	broadcast := false
	if opt, ok := opts["broadcast"]; ok {
		broadcast = opt.BoolValue()
	}
	return opts, broadcast
}

//go:embed about.txt
var aboutText string

func (b *bot) aboutCmdHandler(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse {

	resp := newResponse()
	resp.Data.Content = truncateContent(aboutText)
	return resp
}

//go:embed help.md
var helpText string

func (b *bot) helpCmdHandler(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse {

	resp := newResponse()
	resp.Data.Content = truncateContent(helpText)
	return resp
}

// findPlayer resolves query as a player ID first and then as a
// case-insensitive name fragment. Ambiguous names return the candidates.
func (b *bot) findPlayer(ctx context.Context, query string) (
	*store.PlayerDetail, []store.Player, error) {

	p, err := b.store.GetPlayer(ctx, tournament.PlayerID(query))
	if err == nil {
		return p, nil, nil
	}
	if !errors.Is(err, store.ErrPlayerNotFound) {
		return nil, nil, err
	}

	players, err := b.store.ListPlayers(ctx, store.RatingRapid)
	if err != nil {
		return nil, nil, err
	}
	needle := strings.ToLower(query)
	var matches []store.Player
	for _, candidate := range players {
		name := strings.ToLower(candidate.Name)
		if name == needle {
			matches = []store.Player{candidate}
			break
		}
		if strings.Contains(name, needle) {
			matches = append(matches, candidate)
		}
	}
	if len(matches) != 1 {
		return nil, matches, nil
	}

	p, err = b.store.GetPlayer(ctx, matches[0].ID)
	return p, nil, err
}

func (b *bot) playerCmdHandler(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse {

	resp := newResponse()
	opts, broadcast := subOptions(inter)
	opt, ok := opts["player"]
	query := ""
	if ok {
		query = strings.TrimSpace(opt.StringValue())
	}
	if query == "" {
		resp.Data.Content = "Please provide a player ID or name."
		log.Printf("discordbot.player: %v", resp.Data.Content)
		return resp
	}

	p, matches, err := b.findPlayer(ctx, query)
	if err != nil {
		resp.Data.Content = fmt.Sprintf("Error looking up %q: %v", query, err)
		log.Printf("discordbot.player: %v", resp.Data.Content)
		return resp
	}
	if p == nil {
		if len(matches) == 0 {
			resp.Data.Content = fmt.Sprintf("No player matching %q.", query)
			return resp
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%v players match %q:\n", len(matches), query))
		for i, m := range matches {
			if i == maxNameMatches {
				sb.WriteString("...\n")
				break
			}
			sb.WriteString(fmt.Sprintf("- %v (ID:%v)\n", m.Name, m.ID))
		}
		resp.Data.Content = truncateContent(sb.String())
		return resp
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Rapid**: %.0f (RD %.0f)\n", p.Rapid.Mu,
		p.Rapid.Phi))
	sb.WriteString(fmt.Sprintf("**Blitz**: %.0f (RD %.0f)\n", p.Blitz.Mu,
		p.Blitz.Phi))
	if p.Team != "" {
		sb.WriteString(fmt.Sprintf("**Team**: %v\n", p.Team))
	}
	if len(p.History) > 0 {
		sb.WriteString("\n**Recent tournaments**\n")
		for i, h := range p.History {
			if i == maxHistory {
				break
			}
			sb.WriteString(fmt.Sprintf("- %v %v (%v): %.0f → %.0f (%+.0f)\n",
				h.TournamentDate, h.TournamentName, h.RatingType, h.Old.Mu,
				h.New.Mu, h.Change()))
		}
	}
	resp.Data.Embeds = []*discordgo.MessageEmbed{{
		Title:       fmt.Sprintf("%v (ID:%v)", p.Name, p.ID),
		Type:        discordgo.EmbedTypeRich,
		Description: truncateContent(sb.String()),
	}}
	if broadcast {
		resp.Data.Flags = 0
	}

	return resp
}

func (b *bot) topCmdHandler(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse {

	resp := newResponse()
	opts, broadcast := subOptions(inter)
	rt := store.RatingRapid
	if opt, ok := opts["type"]; ok {
		var err error
		if rt, err = store.ParseRatingType(opt.StringValue()); err != nil {
			resp.Data.Content = err.Error()
			return resp
		}
	}
	count := int64(10) // default
	if opt, ok := opts["count"]; ok {
		count = opt.IntValue()
	}
	// enforce bounds
	if count <= 0 {
		count = 10
	} else if count > maxTop {
		count = maxTop
	}

	players, err := b.store.TopPlayers(ctx, rt, int(count))
	if err != nil {
		resp.Data.Content = fmt.Sprintf("Error fetching players: %v", err)
		log.Printf("discordbot.top: %v", resp.Data.Content)
		return resp
	}
	if len(players) == 0 {
		resp.Data.Content = "No rated players yet."
		return resp
	}

	nameWidth := len("Name")
	for _, p := range players {
		nameWidth = max(nameWidth, len([]rune(p.Name)))
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Top %v %v\n", len(players), rt))
	sb.WriteString(fmt.Sprintf("%-4s%-*s  %s\n", "#", nameWidth, "Name",
		"Rating"))
	for i, p := range players {
		sb.WriteString(fmt.Sprintf("%-4s%-*s  %.0f\n", fmt.Sprintf("%d.", i+1),
			nameWidth, p.Name, p.Rating(rt).Mu))
	}
	// Wrap output in code block for monospace formatting in Discord
	resp.Data.Content = fmt.Sprintf("```\n%s```", truncateContent(sb.String()))
	if broadcast {
		resp.Data.Flags = 0
	}

	return resp
}

func (b *bot) tournamentsCmdHandler(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse {

	resp := newResponse()
	opts, broadcast := subOptions(inter)
	count := int64(5) // default
	if opt, ok := opts["count"]; ok {
		count = opt.IntValue()
	}
	if count <= 0 || count > maxTop {
		count = 5
	}

	clubs, err := b.store.ListTournaments(ctx)
	if err != nil {
		resp.Data.Content = fmt.Sprintf("Error fetching tournaments: %v", err)
		log.Printf("discordbot.tournaments: %v", resp.Data.Content)
		return resp
	}
	var all []store.Tournament
	for _, club := range clubs {
		all = append(all, club.Tournaments...)
	}
	if len(all) == 0 {
		resp.Data.Content = "No tournaments have been rated yet."
		return resp
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date > all[j].Date
	})
	if len(all) > int(count) {
		all = all[:count]
	}

	var sb strings.Builder
	for _, t := range all {
		club := ""
		if t.Club != "" {
			club = fmt.Sprintf(" @ %v", t.Club)
		}
		sb.WriteString(fmt.Sprintf("- **%v** %v%v (%v)\n", t.Date, t.Name, club,
			t.Type))
	}
	resp.Data.Content = truncateContent(sb.String())
	if broadcast {
		resp.Data.Flags = 0
	}

	return resp
}

func (b *bot) calCmdHandler(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse {

	resp := newResponse()
	if b.calendarURL == "" {
		resp.Data.Content = "The event calendar is not configured."
		return resp
	}
	opts, broadcast := subOptions(inter)
	days := int64(14) // default
	if opt, ok := opts["days"]; ok {
		days = opt.IntValue()
	}
	// enforce bounds
	if days <= 0 {
		days = 14
	} else if days > 60 {
		days = 60
	}

	events, err := sheets.FetchUpcoming(ctx, b.httpClient, b.calendarURL)
	if err != nil {
		resp.Data.Content = fmt.Sprintf("Error fetching events: %v", err)
		log.Printf("discordbot.cal: %v", resp.Data.Content)
		return resp
	}

	y, m, d := time.Now().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, int(days))

	var sb strings.Builder
	lastDate := ""
	for _, ev := range events {
		if ev.StartDate.IsZero() || ev.StartDate.Before(start) ||
			!ev.StartDate.Before(end) {
			continue
		}
		date := ev.StartDate.Format(internal.DateLayout)
		if date != lastDate {
			sb.WriteString(fmt.Sprintf("**%s**\n", date))
			lastDate = date
		}
		line := fmt.Sprintf("- %v", ev.Name)
		if ev.Time != "" {
			line += fmt.Sprintf(" (%v)", ev.Time)
		}
		if ev.Location != "" {
			line += fmt.Sprintf(" @ %v", ev.Location)
		}
		sb.WriteString(line + "\n")
	}
	if sb.Len() == 0 {
		resp.Data.Content = fmt.Sprintf("No events found in the next %d days.",
			days)
		return resp
	}
	resp.Data.Content = truncateContent(sb.String())
	if broadcast {
		resp.Data.Flags = 0
	}

	return resp
}

// https://discord.com/developers/docs/resources/channel#start-thread-in-forum-or-media-channel-forum-and-media-thread-message-params-object
// limits messages to 2k characters
func truncateContent(s string) string {
	const MsgLimit = 1988 // keep space for newlines and markdown
	runes := []rune(s)
	if len(runes) > MsgLimit {
		s = fmt.Sprintf("%v...", string(runes[:MsgLimit]))
	}
	return s
}
