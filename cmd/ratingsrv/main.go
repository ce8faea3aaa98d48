/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikeb26/clubratings/internal"
	"github.com/mikeb26/clubratings/s3cache"
	"github.com/mikeb26/clubratings/server"
	"github.com/mikeb26/clubratings/sheets"
	"github.com/mikeb26/clubratings/store"
)

// the calendar is edited rarely and fetched on every page load
const calendarMaxAge = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT,
		syscall.SIGTERM)
	defer stop()

	internal.LoadDotEnv()
	cfg := internal.ConfigFromEnv()

	st, err := store.Open(ctx, store.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("ratingsrv: %v", err)
	}
	defer st.Close()

	if cfg.AdminPassHash == "" {
		log.Printf("ratingsrv: ADMIN_PASS_HASH is not set; admin login is disabled")
	}
	auth := server.NewAuthService(cfg.AuthSecret, cfg.AdminEmail,
		cfg.AdminPassHash)

	opts := []server.Option{server.WithCORSOrigins(cfg.CORSOrigins)}
	if cfg.RedisURL != "" {
		cache := server.NewRedisCache(ctx, cfg.RedisURL)
		if rc, ok := cache.(*server.RedisCache); ok {
			defer rc.Close()
		}
		opts = append(opts, server.WithCache(cache))
	}
	if cfg.ArchiveBucket != "" {
		archive, err := s3cache.NewArchive(ctx, cfg.ArchiveBucket, nil)
		if err != nil {
			log.Printf("ratingsrv: tournament archive disabled: %v", err)
		} else {
			opts = append(opts, server.WithArchive(archive))
		}
	}
	if cfg.GoogleServiceAccountKey != "" && cfg.DriveRootFolderID != "" {
		creds, err := cfg.GoogleCredentials()
		var client *sheets.Client
		if err == nil {
			client, err = sheets.NewClient(ctx, creds)
		}
		if err != nil {
			log.Printf("ratingsrv: drive listing disabled: %v", err)
		} else {
			opts = append(opts, server.WithDrive(client, cfg.DriveRootFolderID))
		}
	}
	if cfg.CalendarCSVURL != "" {
		hc := internal.NewCachedHttpClient(ctx, cfg.WebCacheBucket,
			calendarMaxAge)
		opts = append(opts, server.WithCalendar(hc, cfg.CalendarCSVURL))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(st, auth, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ratingsrv: shutdown: %v", err)
		}
	}()

	log.Printf("ratingsrv: listening on %v (%v)", cfg.HTTPAddr, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("ratingsrv: %v", err)
	}
}
