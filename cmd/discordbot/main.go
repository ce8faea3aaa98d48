/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/store"
)

type TopLevelCommand string

const RatingCmd TopLevelCommand = "rating"

// the calendar sheet is edited rarely
const calendarMaxAge = time.Hour

type CmdHandler func(ctx context.Context,
	inter *discordgo.Interaction) *discordgo.InteractionResponse

type bot struct {
	store       *store.Store
	session     *discordgo.Session
	pubKey      ed25519.PublicKey
	appID       string
	guildID     string
	httpClient  *http.Client
	calendarURL string

	topLevelCmdHdlrs map[TopLevelCommand]CmdHandler
	subCmdHdlrs      map[RatingSubCommand]CmdHandler
}

func newBot(st *store.Store, pubKey ed25519.PublicKey) *bot {
	b := &bot{
		store:  st,
		pubKey: pubKey,
	}
	b.topLevelCmdHdlrs = map[TopLevelCommand]CmdHandler{
		RatingCmd: b.ratingCmdHandler,
	}
	b.subCmdHdlrs = map[RatingSubCommand]CmdHandler{
		RatingAboutCmd:       b.aboutCmdHandler,
		RatingHelpCmd:        b.helpCmdHandler,
		RatingPlayerCmd:      b.playerCmdHandler,
		RatingTopCmd:         b.topCmdHandler,
		RatingTournamentsCmd: b.tournamentsCmdHandler,
		RatingCalCmd:         b.calCmdHandler,
	}
	return b
}

func (b *bot) interactionHandler(w http.ResponseWriter, r *http.Request) {
	if !discordgo.VerifyInteraction(r, b.pubKey) {
		log.Printf("discordbot.int: failed to verify")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("discordbot.int: failed to read request body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var inter discordgo.Interaction
	if err := inter.UnmarshalJSON(body); err != nil {
		log.Printf("discordbot.int: failed to unmarshal interaction: err:%v body:%v",
			err, string(body))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := &discordgo.InteractionResponse{}
	if inter.Type == discordgo.InteractionPing {
		resp.Type = discordgo.InteractionResponsePong
	} else if inter.Type == discordgo.InteractionApplicationCommand {
		name := inter.ApplicationCommandData().Name
		hdlr, ok := b.topLevelCmdHdlrs[TopLevelCommand(name)]
		if !ok {
			resp.Type = discordgo.InteractionResponseChannelMessageWithSource
			resp.Data = &discordgo.InteractionResponseData{
				Content: fmt.Sprintf("unknown command '%v'", name),
				Flags:   discordgo.MessageFlagsEphemeral,
			}
		} else {
			resp = hdlr(r.Context(), &inter)
		}
	} else {
		log.Printf("discordbot.int: unimplemented interation type %v",
			inter.Type)
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	rawResp, err := json.Marshal(resp)
	if err != nil {
		log.Printf("discordbot.int: failed to marshal resp: err:%v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rawResp); err != nil {
		log.Printf("discordbot.int: failed to write resp: err:%v", err)
	}
}

func broadcastOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "broadcast",
		Description: "Share with the rest of the channel instead of only to you (default is false)",
		Required:    false,
	}
}

func ratingTypeOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "type",
		Description: "Rating type (default is rapid)",
		Required:    false,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "rapid", Value: string(store.RatingRapid)},
			{Name: "blitz", Value: string(store.RatingBlitz)},
		},
	}
}

func ratingCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        string(RatingCmd),
		Description: "Club rating lookups; try /rating help to start",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(RatingHelpCmd),
				Description: "Show usage for rating",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(RatingAboutCmd),
				Description: "Show information about the ratings bot",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(RatingPlayerCmd),
				Description: "Show a player's ratings and recent tournaments",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "player",
						Description: "Player ID or part of the player's name",
						Required:    true,
					},
					broadcastOption(),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(RatingTopCmd),
				Description: "Show the highest rated players",
				Options: []*discordgo.ApplicationCommandOption{
					ratingTypeOption(),
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "count",
						Description: "Number of players to show (default is 10)",
						Required:    false,
					},
					broadcastOption(),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(RatingTournamentsCmd),
				Description: "Show recently rated tournaments",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "count",
						Description: "Number of tournaments to show (default is 5)",
						Required:    false,
					},
					broadcastOption(),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        string(RatingCalCmd),
				Description: "Show upcoming events on the calendar",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "days",
						Description: "Number of days to retrieve (default is 14)",
						Required:    false,
					},
					broadcastOption(),
				},
			},
		},
	}
}

// registerSlashCommands creates or overwrites the rating command. Guild
// commands update immediately; global ones can take up to an hour.
func (b *bot) registerSlashCommands() {
	cmd, err := b.session.ApplicationCommandCreate(b.appID, b.guildID,
		ratingCommand())
	if err != nil {
		log.Printf("discordbot.reg: failed to register %v: %v", RatingCmd, err)
		return
	}

	log.Printf("discordbot.reg: registered %v(cmdID:%v)", cmd.Name, cmd.ID)
}

func main() {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))

	internal.LoadDotEnv()
	cfg := internal.ConfigFromEnv()
	if cfg.DiscordToken == "" || cfg.DiscordAppID == "" ||
		cfg.DiscordPubKey == "" {
		log.Fatalf("discordbot.main: DISCORD_TOKEN, DISCORD_APP_ID and DISCORD_PUBLIC_KEY must be set")
	}

	pubKeyBytes, err := hex.DecodeString(strings.TrimSpace(cfg.DiscordPubKey))
	if err != nil || len(pubKeyBytes) != ed25519.PublicKeySize {
		log.Fatalf("discordbot.main: failed to parse public key: %v", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("discordbot.main: %v", err)
	}
	defer st.Close()

	b := newBot(st, ed25519.PublicKey(pubKeyBytes))
	b.appID = cfg.DiscordAppID
	b.guildID = cfg.DiscordGuildID
	if cfg.CalendarCSVURL != "" {
		b.httpClient = internal.NewCachedHttpClient(ctx, cfg.WebCacheBucket,
			calendarMaxAge)
		b.calendarURL = cfg.CalendarCSVURL
	}
	b.session, err = discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("discordbot.main: failed to initialize discord client: %v",
			err)
	}
	go b.registerSlashCommands()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	log.Printf("discordbot.main: starting server on %v%v", hostname,
		cfg.DiscordAddr)

	mux := http.NewServeMux()
	mux.HandleFunc("/DiscordBot/Interaction", b.interactionHandler)
	srv := &http.Server{
		Addr:              cfg.DiscordAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("discordbot.main: Serve failed: %v", err)
	}
}
