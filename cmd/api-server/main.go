package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"moviehub/internal/auth"
	"moviehub/internal/catalog"
	"moviehub/internal/delivery"
	"moviehub/internal/demand"
	"moviehub/internal/favorites"
	"moviehub/internal/gate"
	"moviehub/internal/history"
	"moviehub/internal/logging"
	"moviehub/internal/match"
	"moviehub/internal/notify"
	"moviehub/internal/ranking"
	"moviehub/internal/resolve"
	"moviehub/internal/server"
	"moviehub/internal/supervisor"
	synchub "moviehub/internal/sync"
	"moviehub/pkg/database"
	"moviehub/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Logging.Logging())

	if cfg.Auth.JWTSecret == utils.DevJWTSecret {
		logging.Warn().Msg("using the development JWT secret; set MOVIEHUB_JWT_SECRET")
	}

	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("open database")
	}
	defer db.Close()

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())

	tokens, closeStore, err := buildTokenStore(cfg, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("open delivery token store")
	}
	defer closeStore()

	var remover delivery.Remover = delivery.NopRemover{}
	if cfg.Delivery.RetractURL != "" {
		remover = delivery.NewWebhookRemover(cfg.Delivery.RetractURL, cfg.Delivery.Timeout)
	}

	hub := synchub.NewHub()
	defer hub.CloseAll()
	hubSink := synchub.NewHubSink(hub)

	sinks := notify.Multi{hubSink, notify.LogSink{}}
	if cfg.Notify.UDPAddr != "" {
		udp := notify.NewServer(cfg.Notify.UDPAddr, nil)
		sinks = append(sinks, udp)
		tree.AddFeedService(supervisor.FuncService{Name: udp.String(), Run: udp.Serve})
	}
	var webhook *notify.Webhook
	if cfg.Notify.WebhookURL != "" {
		webhook = notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Delivery.Timeout)
		sinks = append(sinks, webhook)
	}

	catalogRepo := catalog.NewRepo(db)
	demandRepo := demand.NewRepo(db)
	historyRepo := history.NewRepo(db)
	favoritesRepo := favorites.NewRepo(db)

	engine := &resolve.Engine{
		Catalog: catalogRepo,
		Demand:  demandRepo,
		Ledger:  resolve.NewSQLLedger(db, catalogRepo, historyRepo),
		Matcher: match.New(cfg.Matching.Cutoff),
		Policy: demand.Policy{
			Threshold:      cfg.Demand.Threshold,
			OnCrossingOnly: cfg.Demand.OnCrossingOnly,
		},
		Tokens:   tokens,
		Remover:  remover,
		Notifier: sinks,
		Observer: hubSink,
	}

	var checker gate.Checker = gate.AllowAll{}
	if cfg.Gate.Enabled {
		checker = gate.NewHTTPChecker(cfg.Gate.MembershipURL, cfg.Gate.Timeout)
	}
	var limiter *gate.RateLimiter
	if cfg.Gate.RateLimit > 0 {
		limiter = gate.NewRateLimiter(cfg.Gate.RateLimit, cfg.Gate.RateWindow)
		tree.AddFeedService(&supervisor.PeriodicService{
			Name:     "rate-limit-prune",
			Interval: 10 * time.Minute,
			Fn: func(context.Context) {
				if n := limiter.Prune(time.Hour); n > 0 {
					logging.Debug().Int("dropped", n).Msg("pruned idle rate limiters")
				}
			},
		})
	}

	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}

	router := server.NewRouter(server.Deps{
		DB:       db,
		Tokens:   tokenSvc,
		Operator: auth.Operator{Username: cfg.Auth.OperatorUsername, PasswordHash: cfg.Auth.OperatorPasswordHash},
		Gate:     checker,
		Limiter:  limiter,

		Hub:            hub,
		AllowedOrigins: cfg.Server.AllowedOrigins,

		Catalog:   catalogRepo,
		Demand:    demandRepo,
		History:   historyRepo,
		Favorites: favoritesRepo,
		Ranking:   ranking.NewEngine(catalogRepo, historyRepo),
		Engine:    engine,
		Limits: server.RankingLimits{
			TopN:       cfg.Ranking.TopN,
			PoolSize:   cfg.Ranking.PoolSize,
			ResultSize: cfg.Ranking.ResultSize,
		},
	})

	if cfg.Server.TCPSyncAddr != "" {
		tcpSrv := synchub.NewServer(cfg.Server.TCPSyncAddr, hub, &tokenSvc)
		tree.AddFeedService(supervisor.FuncService{Name: tcpSrv.String(), Run: tcpSrv.Serve})
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPService(srv, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", cfg.Server.Addr).
		Str("tcp_sync", cfg.Server.TCPSyncAddr).
		Str("udp_notify", cfg.Notify.UDPAddr).
		Str("token_store", cfg.Delivery.Store).
		Msg("moviehub api starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("services did not stop in time")
	}
	if webhook != nil {
		webhook.Wait()
	}
	logging.Info().Msg("shutdown complete")
}

// buildTokenStore returns the configured delivery token store and a closer.
// The memory store gets a periodic prune service on the feeds branch.
func buildTokenStore(cfg *utils.Config, tree *supervisor.Tree) (delivery.Store, func(), error) {
	switch cfg.Delivery.Store {
	case "badger":
		bdb, err := delivery.OpenBadger(cfg.Delivery.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := bdb.Close(); err != nil {
				logging.Warn().Err(err).Msg("close badger")
			}
		}
		tree.AddFeedService(&supervisor.PeriodicService{
			Name:     "badger-gc",
			Interval: 10 * time.Minute,
			Fn:       func(context.Context) { runValueLogGC(bdb) },
		})
		return delivery.NewBadgerStore(bdb, cfg.Delivery.TokenTTL), closer, nil
	default:
		mem := delivery.NewMemoryStore(cfg.Delivery.TokenTTL)
		tree.AddFeedService(&supervisor.PeriodicService{
			Name:     "token-prune",
			Interval: 5 * time.Minute,
			Fn: func(context.Context) {
				if n := mem.Prune(); n > 0 {
					logging.Debug().Int("expired", n).Msg("pruned delivery tokens")
				}
			},
		})
		return mem, func() {}, nil
	}
}

func runValueLogGC(db *badger.DB) {
	for {
		if err := db.RunValueLogGC(0.5); err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				logging.Warn().Err(err).Msg("badger value log gc")
			}
			return
		}
	}
}
