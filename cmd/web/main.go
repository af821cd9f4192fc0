// Command web initializes the SongVault application and starts the HTTP
// server. Configuration is provided via environment variables for provider
// credentials, tuning knobs and the database location. The server exposes
// the resolution JSON API, canonical link lookups and Prometheus metrics,
// and runs the link integrity checker in the background.

package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"SongVault-Go/pkg/applemusic"
	"SongVault-Go/pkg/db"
	"SongVault-Go/pkg/handlers"
	"SongVault-Go/pkg/integrity"
	"SongVault-Go/pkg/match"
	"SongVault-Go/pkg/music"
	"SongVault-Go/pkg/resolver"
	"SongVault-Go/pkg/session"
	"SongVault-Go/pkg/soundcloud"
	"SongVault-Go/pkg/spotify"
	"SongVault-Go/pkg/tidal"
	"SongVault-Go/pkg/youtube"
)

// envDuration reads a duration from the environment, falling back when unset
// or unparseable.
func envDuration(log *logrus.Logger, key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid duration, using default")
		return fallback
	}
	return d
}

func envFloat(log *logrus.Logger, key string, fallback float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid number, using default")
		return fallback
	}
	return f
}

func envInt(log *logrus.Logger, key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid integer, using default")
		return fallback
	}
	return n
}

// buildProviders assembles the search provider set from whichever
// credentials are configured. Providers missing credentials are skipped with
// a warning rather than failing startup, but at least one must remain.
func buildProviders(log *logrus.Logger) []music.Provider {
	var providers []music.Provider

	clientID := os.Getenv("SPOTIFY_CLIENT_ID")
	clientSecret := os.Getenv("SPOTIFY_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		sc, err := spotify.NewSpotifyClient(clientID, clientSecret)
		if err != nil {
			log.WithError(err).Warn("spotify client init failed, skipping provider")
		} else {
			providers = append(providers, sc)
		}
	} else {
		log.Warn("SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET not set, skipping spotify")
	}

	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		providers = append(providers, &youtube.Client{Key: key})
	} else {
		log.Warn("YOUTUBE_API_KEY not set, skipping youtube")
	}

	if id := os.Getenv("SOUNDCLOUD_CLIENT_ID"); id != "" {
		providers = append(providers, &soundcloud.Client{ClientID: id})
	} else {
		log.Warn("SOUNDCLOUD_CLIENT_ID not set, skipping soundcloud")
	}

	// The iTunes search API needs no credentials.
	providers = append(providers, &applemusic.Client{})

	if token := os.Getenv("TIDAL_TOKEN"); token != "" {
		providers = append(providers, &tidal.Client{Token: token, CountryCode: os.Getenv("TIDAL_COUNTRY")})
	} else {
		log.Warn("TIDAL_TOKEN not set, skipping tidal")
	}

	return providers
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	providers := buildProviders(log)
	if len(providers) == 0 {
		log.Fatal("no search providers configured")
	}

	// DATABASE_PATH allows the SQLite file to be customised. It defaults
	// to a file named songvault.db in the working directory.
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "songvault.db"
	}
	database, err := db.New(dbPath)
	if err != nil {
		log.WithError(err).Fatal("db init")
	}
	defer database.Close()

	res := &resolver.Resolver{
		Coordinator: music.Coordinator{
			Providers:       providers,
			ProviderTimeout: envDuration(log, "PROVIDER_TIMEOUT", 3*time.Second),
			Timeout:         envDuration(log, "RESOLVE_TIMEOUT", 5*time.Second),
			Log:             log,
		},
		Grouper:  match.Grouper{Threshold: envFloat(log, "MATCH_THRESHOLD", match.DefaultThreshold)},
		Sessions: session.NewStore(envDuration(log, "SESSION_TTL", session.DefaultTTL)),
		DB:       database,
		Log:      log,
	}

	checker := &integrity.Checker{
		DB:          database,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
		Interval:    envDuration(log, "VALIDATION_INTERVAL", integrity.DefaultInterval),
		Concurrency: envInt(log, "VALIDATION_CONCURRENCY", integrity.DefaultConcurrency),
		Log:         log,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go checker.Run(ctx)

	app := &handlers.Application{Resolver: res, DB: database, Log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/resolve", app.ResolveJSON)
	mux.HandleFunc("/api/select", app.SelectJSON)
	mux.HandleFunc("/api/songs/", app.SongsRouter)
	mux.Handle("/metrics", promhttp.Handler())

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":4000"
	}
	log.WithFields(logrus.Fields{"addr": addr, "providers": len(providers)}).Info("starting server")
	if err := http.ListenAndServe(addr, handlers.SecurityHeaders(mux)); err != nil {
		log.WithError(err).Fatal("http server error")
	}
}
