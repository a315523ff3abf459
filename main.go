// Command clip-queue ingests a Kick channel's chat, extracts clip links from
// messages, and aggregates them into a deduplicated, vote-ranked queue.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres and runs idempotent migrations.
//   - Bootstraps the Kick API (profile, channel, chat connection) and opens a
//     resilient websocket session with exponential-backoff reconnects.
//   - Starts the OAuth token refresher for the stored Kick credential.
//   - Exposes an HTTP API: queue reads/mutations, an SSE stream of queue
//     changes, /status, /healthz, /readyz, /metrics, and the Kick OAuth flow.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/clip-queue/chat"
	"github.com/onnwee/clip-queue/config"
	"github.com/onnwee/clip-queue/db"
	"github.com/onnwee/clip-queue/kickapi"
	"github.com/onnwee/clip-queue/oauth"
	"github.com/onnwee/clip-queue/queue"
	"github.com/onnwee/clip-queue/server"
	"github.com/onnwee/clip-queue/telemetry"
	"github.com/onnwee/clip-queue/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("clip-queue", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB is optional: without DB_DSN the queue is memory-only and the OAuth
	// flow cannot persist tokens.
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect()
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	} else {
		slog.Info("DB_DSN not set, persistence disabled")
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	oauthConf := kickapi.OAuthConfig(cfg.KickClientID, cfg.KickClientSecret, cfg.KickRedirectURI, cfg.KickScopes)

	// Credential source: a fixed env token wins; otherwise the stored token
	// obtained via the OAuth flow and kept fresh by the refresher.
	var creds kickapi.CredentialSource
	switch {
	case cfg.KickOAuthToken != "":
		creds = kickapi.StaticToken(cfg.KickOAuthToken)
	case database != nil:
		dbx := database
		creds = kickapi.CredentialFunc(func(cctx context.Context) (string, error) {
			access, _, _, _, err := db.GetOAuthToken(cctx, dbx, "kick")
			if err != nil {
				return "", err
			}
			if access == "" {
				return "", kickapi.ErrUnauthenticated
			}
			return access, nil
		})
	default:
		slog.Warn("no KICK_OAUTH_TOKEN and no database for stored tokens, chat monitor disabled")
	}

	// Centralized OAuth token refresher for the stored Kick credential
	if database != nil && cfg.KickClientID != "" {
		oauth.StartRefresher(ctx, database, "kick", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			tok, err := kickapi.RefreshToken(rctx, oauthConf, refreshToken)
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return tok.AccessToken, tok.RefreshToken, tok.Expiry, strings.Join(oauthConf.Scopes, " "), nil
		})
	}

	agg := queue.NewAggregator()
	yt := youtubeapi.New(cfg.YTAPIKey)

	router := &chat.Router{
		Agg: agg,
		OnChat: func(msg chat.Message) {
			if database == nil {
				return
			}
			if err := db.InsertChatMessage(ctx, database, msg.ID, msg.Sender, msg.Content, msg.ReceivedAt); err != nil {
				slog.Warn("failed to archive chat message", slog.Any("err", err))
			}
		},
		OnClip: func(entry queue.Entry, cand queue.Candidate, created bool) {
			telemetry.SetQueueDepth(agg.Len())
			if database != nil {
				if err := db.RecordClipSighting(ctx, database, cand.URL, string(cand.Platform), cand.Submitter, cand.SubmittedAt); err != nil {
					slog.Warn("failed to record clip sighting", slog.Any("err", err))
				}
			}
			if created && yt.Enabled() {
				if id := youtubeapi.VideoIDFromURL(entry.URL); id != "" {
					go func(entryID, videoID string) {
						tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
						defer cancel()
						title, err := yt.VideoTitle(tctx, videoID)
						if err != nil {
							slog.Debug("youtube title lookup failed", slog.String("video_id", videoID), slog.Any("err", err))
							return
						}
						agg.SetTitle(entryID, title)
					}(entry.ID, id)
				}
			}
		},
	}

	var sessionPtr atomic.Pointer[chat.Session]
	var infoPtr atomic.Pointer[kickapi.BootstrapResult]

	if creds != nil {
		policy := chat.BackoffPolicy{
			BaseDelay:   cfg.ReconnectBaseDelay,
			MaxDelay:    cfg.ReconnectMaxDelay,
			MaxAttempts: cfg.ReconnectMaxAttempts,
		}
		client := &kickapi.Client{Creds: creds}
		go runChatMonitor(ctx, client, router, policy, &sessionPtr, &infoPtr)
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	deps := server.Deps{
		Agg:     agg,
		DB:      database,
		OAuth:   oauthConf,
		Session: sessionPtr.Load,
		Info:    infoPtr.Load,
	}
	slog.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
	if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// runChatMonitor bootstraps the Kick API and opens the chat session. An
// unauthenticated bootstrap is retried on a slow cadence so the monitor comes
// alive once the operator finishes the OAuth flow.
func runChatMonitor(ctx context.Context, client *kickapi.Client, router *chat.Router, policy chat.BackoffPolicy, sessionPtr *atomic.Pointer[chat.Session], infoPtr *atomic.Pointer[kickapi.BootstrapResult]) {
	const retryInterval = 30 * time.Second
	for {
		info, err := client.Bootstrap(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, kickapi.ErrUnauthenticated) {
				slog.Info("kick bootstrap waiting for credential", slog.Duration("retry_in", retryInterval))
			} else {
				slog.Warn("kick bootstrap failed", slog.Any("err", err), slog.Duration("retry_in", retryInterval))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryInterval):
			}
			continue
		}

		infoPtr.Store(info)
		slog.Info("kick bootstrap complete",
			slog.String("username", info.Profile.Username),
			slog.String("slug", info.Channel.Slug),
			slog.Int("chatroom_id", info.Channel.Chatroom.ID))

		sess := chat.NewSession(info.Conn, info.Channel.Chatroom.ID, router, policy)
		sessionPtr.Store(sess)
		sess.Open(ctx)
		return
	}
}
