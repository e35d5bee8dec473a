package main

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"bloodbank/admin"
	"bloodbank/auth"
	"bloodbank/camps"
	"bloodbank/certificate"
	"bloodbank/config"
	"bloodbank/db"
	"bloodbank/donor"
	"bloodbank/facility"
	"bloodbank/inventory"
	"bloodbank/live"
	"bloodbank/maps"
	"bloodbank/middleware"
	"bloodbank/mq"
	"bloodbank/ratelim"
	"bloodbank/rdx"
	"bloodbank/registrations"
	"bloodbank/requests"
	"bloodbank/routes"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// denylist is satisfied by both the Redis and in-memory token denylists.
type denylist interface {
	auth.Revoker
	middleware.Revocations
}

// app holds the connected backends and every service built on them.
type app struct {
	cfg      *config.Config
	mongo    *mongo.Client
	redis    *redis.Client
	database *mongo.Database

	bus  *mq.RedisBus
	hub  *live.Hub
	maps *maps.Service

	auth          *auth.Service
	registrations *registrations.Service
	deps          routes.Deps
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	client, err := db.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, mongo: client, database: client.Database(cfg.Mongo.Database)}
	if err := db.EnsureIndexes(ctx, a.database); err != nil {
		a.close(ctx)
		return nil, err
	}

	var (
		revocations denylist = rdx.NewMemoryDenylist()
		cache       maps.Cache
	)
	if cfg.Redis.Enabled() {
		rc, err := rdx.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.redis = rc
		a.bus = mq.NewRedisBus(rc)
		revocations = rdx.NewDenylist(rc)
		cache = rdx.NewCache(rc)
	} else {
		log.Warn().Msg("REDIS_ADDR not set; using in-process events, no map cache and a local token denylist")
	}

	a.hub = live.NewHub(originChecker(cfg.Server.CORSOrigins))
	a.maps = maps.NewService(maps.NewMongoSource(a.database), cache, cfg.MapCacheTTL)

	var events mq.Publisher = mq.Direct(a.relay)
	if a.bus != nil {
		events = a.bus
	}

	tokens := middleware.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).WithRevocations(revocations)

	facilities := facility.NewService(facility.NewMongoStore(a.database), cfg.StaticDir)
	stock := inventory.NewService(inventory.NewMongoStore(a.database), facilities)
	donors := donor.NewService(donor.NewMongoStore(a.database), nil)
	a.registrations = registrations.NewService(registrations.NewMongoStore(a.database), donors, stock, events)
	donors.SetRegistrations(a.registrations)
	campSvc := camps.NewService(camps.NewMongoStore(a.database), events)
	a.auth = auth.NewService(auth.NewMongoAccounts(a.database), tokens)
	certs := certificate.NewService(a.registrations, donors, cfg.Auth.CertSecret)

	a.deps = routes.Deps{
		Tokens:        tokens,
		RateLimiter:   ratelim.NewRateLimiter(20, 5),
		StaticDir:     cfg.StaticDir,
		Auth:          auth.NewHandler(a.auth, tokens, revocations),
		Donors:        donor.NewHandler(donors),
		Facilities:    facility.NewHandler(facilities),
		FacilitySvc:   facilities,
		Camps:         camps.NewHandler(campSvc),
		Registrations: registrations.NewHandler(a.registrations),
		Inventory:     inventory.NewHandler(stock),
		Requests:      requests.NewHandler(requests.NewService(requests.NewMongoStore(a.database), facilities, stock)),
		Certificates:  certificate.NewHandler(certs),
		Maps:          a.maps,
		Admin:         admin.NewService(admin.NewMongoStore(a.database)),
		Hub:           a.hub,
	}
	return a, nil
}

// relay forwards a camp event to websocket watchers and drops the stale map payload.
func (a *app) relay(ev mq.CampEvent) {
	a.hub.Broadcast(ev)
	a.maps.Invalidate(context.Background())
}

// listen consumes the Redis channel until ctx ends. Without Redis, events arrive through relay directly.
func (a *app) listen(ctx context.Context) error {
	if a.bus == nil {
		<-ctx.Done()
		return nil
	}
	if err := a.bus.Subscribe(ctx, a.relay); err != nil {
		return fmt.Errorf("camp event relay: %w", err)
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	if err := a.mongo.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("disconnect mongo")
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
