// Command castingd serves the actors and movies API behind the bearer
// authorization gate.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authgin "github.com/PaulFidika/casting/adapters/gin"
	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/audit"
	"github.com/PaulFidika/casting/catalog"
	memcatalog "github.com/PaulFidika/casting/catalog/memory"
	pgcatalog "github.com/PaulFidika/casting/catalog/postgres"
	"github.com/PaulFidika/casting/config"
	core "github.com/PaulFidika/casting/core"
	jwtkit "github.com/PaulFidika/casting/jwt"
	migrations "github.com/PaulFidika/casting/migrations/postgres"
	oidckit "github.com/PaulFidika/casting/oidc"
	memorylimiter "github.com/PaulFidika/casting/ratelimit/memory"
	redislimiter "github.com/PaulFidika/casting/ratelimit/redis"
	memorystore "github.com/PaulFidika/casting/storage/memory"
	redisstore "github.com/PaulFidika/casting/storage/redis"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("castingd stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	sched := cron.New()
	events := audit.Fanout{audit.LogrusLogger{Log: log.WithField("component", "audit")}}

	var store catalog.Store = memcatalog.New()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.Up(ctx, pool, log); err != nil {
			return err
		}
		store = pgcatalog.NewStore(pool, cfg.DBSchema)

		rc, err := newRiverClient(pool, cfg.AuditWorkers)
		if err != nil {
			return err
		}
		if err := rc.Start(ctx); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := rc.Stop(sctx); err != nil {
				log.WithError(err).Warn("river stop")
			}
		}()
		enq := audit.NewEnqueuer(rc, cfg.AuditBuffer, cfg.AuditInsertTimeout, log.WithField("component", "audit"))
		enqCtx, stopEnq := context.WithCancel(context.Background())
		enqDone := make(chan struct{})
		go func() {
			defer close(enqDone)
			enq.Run(enqCtx)
		}()
		defer func() {
			stopEnq()
			<-enqDone
		}()
		events = append(events, enq)

		pruner := &audit.Pruner{DB: pool, Retention: cfg.AuditRetention, Log: log.WithField("component", "audit_prune")}
		if _, err := pruner.Schedule(sched, cfg.AuditPruneSchedule); err != nil {
			return err
		}
	} else {
		log.Warn("DATABASE_URL not set; catalog is in memory and audit events are only logged")
	}

	limits := map[string]int{ginutil.RLRead: cfg.RateLimitRead, ginutil.RLWrite: cfg.RateLimitWrite, ginutil.RLLogin: cfg.RateLimitLogin}
	var (
		rl     ginutil.RateLimiter
		states oidckit.StateCache
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		rlLimits := make(map[string]redislimiter.Limit, len(limits))
		for b, n := range limits {
			rlLimits[b] = redislimiter.Limit{Limit: n, Window: cfg.RateLimitWindow}
		}
		rl = redislimiter.New(rdb, rlLimits)
		states = redisstore.NewStateCache(rdb, "casting:oauth:state:", cfg.StateTTL)
	} else {
		memLimits := make(map[string]memorylimiter.Limit, len(limits))
		for b, n := range limits {
			memLimits[b] = memorylimiter.Limit{Limit: n, Window: cfg.RateLimitWindow}
		}
		ml := memorylimiter.New(memLimits)
		if _, err := sched.AddFunc("@every 1m", ml.Sweep); err != nil {
			return err
		}
		rl = ml
		sc := memorystore.NewStateCache(cfg.StateTTL)
		defer sc.Close()
		states = sc
	}

	if cfg.JWKSURL == "" {
		u, err := oidckit.DiscoverJWKSURL(ctx, cfg.Issuer, nil)
		if err != nil {
			return err
		}
		cfg.JWKSURL = u
	}
	gate, keys, err := core.NewRemoteGate(core.AcceptConfig{
		Issuer:       cfg.Issuer,
		Audience:     cfg.Audience,
		JWKSURL:      cfg.JWKSURL,
		Algorithms:   cfg.Algorithms,
		FetchTimeout: cfg.FetchTimeout,
		Leeway:       cfg.Leeway,
	}, []jwtkit.RemoteKeySetOption{jwtkit.WithLogger(log.WithField("component", "jwks"))})
	if err != nil {
		return err
	}
	if cfg.WarmKeys {
		// A cold start without keys still serves; the first request retries.
		if err := keys.Warm(ctx); err != nil {
			log.WithError(err).Warn("initial key set fetch failed")
		}
	}

	var login *oidckit.LoginFlow
	if cfg.LoginEnabled() {
		rp, err := oidckit.NewRelyingParty(ctx, oidckit.RPConfig{
			Issuer:       cfg.Issuer,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Audience:     cfg.Audience,
		})
		if err != nil {
			return err
		}
		login = oidckit.NewLoginFlow(rp, states)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), authgin.RequestLogger(log))
	r.NoRoute(authgin.NotFoundHandler)
	r.NoMethod(authgin.MethodNotAllowedHandler)
	authgin.Register(r, authgin.Deps{
		Store:   store,
		Auth:    authgin.NewAuth(gate, authgin.WithEventLogger(events), authgin.WithRealm(cfg.Realm)),
		Limiter: rl,
		Login:   login,
	})

	sched.Start()
	defer sched.Stop()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "issuer": cfg.Issuer, "jwks_url": keys.URL()}).Info("castingd listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newRiverClient(pool *pgxpool.Pool, workers int) (*river.Client[pgx.Tx], error) {
	w := river.NewWorkers()
	audit.Register(w, pool)
	if workers <= 0 {
		workers = 1
	}
	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  map[string]river.QueueConfig{audit.QueueName: {MaxWorkers: workers}},
		Workers: w,
	})
}
