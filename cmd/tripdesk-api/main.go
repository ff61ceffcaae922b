// README: Entry point; loads config, wires the intake service, serves Slack and the HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"tripdesk/internal/ai"
	"tripdesk/internal/config"
	httptransport "tripdesk/internal/http"
	"tripdesk/internal/http/handlers"
	"tripdesk/internal/infra"
	"tripdesk/internal/maps"
	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/modules/directory"
	"tripdesk/internal/modules/events"
	"tripdesk/internal/modules/extract"
	"tripdesk/internal/modules/search"
	"tripdesk/internal/modules/userlock"
	"tripdesk/internal/service"
	"tripdesk/internal/slack"
	"tripdesk/migrations"
)

func main() {
	cfg, err := config.Load()
	setupLogging(cfg.LogLevel)
	if err != nil {
		fatal("invalid config", err)
	}
	slog.Info("tripdesk starting", "addr", cfg.HTTP.Addr, "store", cfg.Store.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	// Firebase backs the Firestore store and optional API auth.
	var fbApp *firebase.App
	if cfg.Firebase.ProjectID != "" {
		fbApp, err = infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			fatal("firebase init", err)
		}
	}

	var store conversation.Store
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		fs, err := infra.NewFirestore(ctx, fbApp)
		if err != nil {
			fatal("firestore init", err)
		}
		defer fs.Close()
		store = conversation.NewFirestoreStore(fs, cfg.Store.Collection)
	case config.StorePostgres:
		db, err := infra.NewDB(ctx, cfg.Store.DSN)
		if err != nil {
			fatal("postgres init", err)
		}
		defer db.Close()
		if err := migrations.Apply(ctx, db); err != nil {
			fatal("postgres migrations", err)
		}
		store = conversation.NewPostgresStore(db)
	default:
		slog.Warn("using in-memory store; conversations are lost on restart")
		store = conversation.NewMemoryStore()
	}

	// Redis is optional: without it locks and Slack dedup are process-local.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			fatal("redis init", err)
		}
		defer rdb.Close()
	}
	var locker userlock.Locker = userlock.NewKeyedMutex()
	var dedup slack.Deduper = slack.NewMemoryDeduper(0)
	if rdb != nil {
		locker = userlock.NewRedisLocker(rdb, cfg.Intake.TurnTimeout).WithLogger(slog.Default())
		dedup = slack.NewRedisDeduper(rdb, 0)
	}

	extractOpts := []extract.Option{extract.WithClock(clock), extract.WithLogger(slog.Default())}
	var estimator search.TravelEstimator
	if cfg.Maps.APIKey != "" {
		geo, err := maps.NewAirportGeocoder(cfg.Maps.APIKey)
		if err != nil {
			fatal("maps geocoder init", err)
		}
		extractOpts = append(extractOpts, extract.WithGeocoder(geo))
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			fatal("maps routes init", err)
		}
		estimator = routes
	} else {
		slog.Warn("GOOGLE_MAPS_API_KEY not set; unknown places will not be geocoded")
	}
	extractor := extract.New(extractOpts...)

	var chain ai.Chain
	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiResponder(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel)
		if err != nil {
			fatal("gemini init", err)
		}
		defer gemini.Close()
		chain = append(chain, gemini)
	}
	if cfg.AI.OpenAIKey != "" {
		chain = append(chain, ai.NewOpenAIResponder(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel))
	}
	if len(chain) == 0 {
		slog.Warn("no AI provider configured; every turn will get the apology")
	}

	deps := service.Deps{
		Store:     store,
		Responder: chain,
		Extractor: extractor,
		Locker:    locker,
		Logger:    slog.Default(),
	}
	if cfg.Directory.SheetID != "" {
		var opts []option.ClientOption
		if cfg.Firebase.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		}
		dir, err := directory.NewSheetsDirectory(ctx, cfg.Directory.SheetID, cfg.Directory.TeamID, opts...)
		if err != nil {
			fatal("directory init", err)
		}
		deps.Directory = dir
	}
	if cfg.NATS.URL != "" {
		nc, err := infra.NewNATS(cfg.NATS.URL, cfg.NATS.Token, slog.Default())
		if err != nil {
			fatal("nats init", err)
		}
		defer nc.Drain()
		deps.Notifier = events.NewPublisher(nc, slog.Default())
		slog.Info("NATS connected", "url", cfg.NATS.URL)
	}
	intake := service.NewIntakeService(deps)

	serverDeps := httptransport.ServerDeps{
		Intake:        intake,
		SigningSecret: cfg.Slack.SigningSecret,
		Search:        search.NewClient(cfg.Search.SerpAPIKey, slog.Default()),
		Extractor:     extractor,
		Estimator:     estimator,
		TurnTimeout:   cfg.Intake.TurnTimeout,
		Logger:        slog.Default(),
	}

	var slackApp *slack.App
	if cfg.Slack.BotToken != "" {
		poster := slack.NewPoster(cfg.Slack.BotToken, slog.Default())
		botUserID := cfg.Slack.BotUserID
		if botUserID == "" {
			if id, err := poster.AuthTest(ctx); err != nil {
				slog.Warn("slack auth.test failed; own messages filtered by bot_id only", "error", err)
			} else {
				botUserID = id
				slog.Info("slack bot user resolved", "bot_user_id", id)
			}
		}
		slackApp = slack.NewApp(intake, poster, dedup, slack.Config{
			BotUserID:   botUserID,
			TurnTimeout: cfg.Intake.TurnTimeout,
			MaxInflight: int64(cfg.Intake.MaxInflight),
		}, slog.Default())
		serverDeps.Slack = slackApp
	} else {
		slog.Warn("SLACK_BOT_TOKEN not set; /slack/events disabled")
	}

	if cfg.Firebase.AuthAPI {
		verifier, err := infra.NewFirebaseVerifier(ctx, fbApp)
		if err != nil {
			fatal("firebase auth init", err)
		}
		serverDeps.Verifier = verifier
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httptransport.NewServer(serverDeps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server", err)
		}
	}()
	slog.Info("http server listening", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Intake.TurnTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if slackApp != nil {
		slackApp.Wait()
	}
	slog.Info("tripdesk stopped")
}

var _ handlers.Intake = (*service.IntakeService)(nil)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
