/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package internal

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the server, bot and CLI binaries.
type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret    string
	AdminEmail    string
	AdminPassHash string // bcrypt
	CORSOrigins   []string

	RedisURL string

	WebCacheBucket string
	ArchiveBucket  string

	GoogleServiceAccountKey string // JSON key or path to it
	DriveRootFolderID       string
	CalendarCSVURL          string

	DiscordAddr    string
	DiscordToken   string
	DiscordAppID   string
	DiscordGuildID string
	DiscordPubKey  string // hex ed25519
}

// LoadDotEnv loads .env from the working directory or its parent if present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Printf("config: no .env file found; using process environment")
		}
	}
}

// ConfigFromEnv builds a Config from the process environment.
func ConfigFromEnv() Config {
	return Config{
		HTTPAddr:                getenv("HTTP_ADDR", ":8080"),
		DBDriver:                getenv("DB_DRIVER", "sqlite"),
		DBDSN:                   getenv("DB_DSN", ""),
		AuthSecret:              getenv("AUTH_HMAC_SECRET", "clubratings-dev-secret"),
		AdminEmail:              getenv("ADMIN_EMAIL", "admin@localhost"),
		AdminPassHash:           getenv("ADMIN_PASS_HASH", ""),
		CORSOrigins:             csvOr("CORS_ORIGINS", "http://localhost:3000"),
		RedisURL:                getenv("REDIS_URL", ""),
		WebCacheBucket:          getenv("WEBCACHE_BUCKET", WebCacheBucket),
		ArchiveBucket:           getenv("ARCHIVE_BUCKET", ""),
		GoogleServiceAccountKey: getenv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		DriveRootFolderID:       getenv("DRIVE_ROOT_FOLDER_ID", ""),
		CalendarCSVURL:          getenv("CALENDAR_CSV_URL", ""),
		DiscordAddr:             getenv("DISCORD_HTTP_ADDR", ":8081"),
		DiscordToken:            getenv("DISCORD_TOKEN", ""),
		DiscordAppID:            getenv("DISCORD_APP_ID", ""),
		DiscordGuildID:          getenv("DISCORD_GUILD_ID", ""),
		DiscordPubKey:           getenv("DISCORD_PUBLIC_KEY", ""),
	}
}

// GoogleCredentials returns the service account key JSON. The key may be
// given inline or as a path to a key file.
func (c Config) GoogleCredentials() ([]byte, error) {
	key := strings.TrimSpace(c.GoogleServiceAccountKey)
	if key == "" {
		return nil, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_KEY is not set")
	}
	if strings.HasPrefix(key, "{") {
		return []byte(key), nil
	}
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("reading service account key: %w", err)
	}
	return data, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func csvOr(k, def string) []string {
	var ret []string
	for _, s := range strings.Split(getenv(k, def), ",") {
		if s = strings.TrimSpace(s); s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}

// AsBool interprets common truthy strings.
func AsBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
