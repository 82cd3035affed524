// @title           Notes API
// @version         1.0
// @description     Multi-user notes and collections service.
// @BasePath        /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "github.com/wlcham/notes-server/docs"
	"github.com/wlcham/notes-server/internal/api"
	"github.com/wlcham/notes-server/internal/api/handler"
	"github.com/wlcham/notes-server/internal/api/middleware"
	"github.com/wlcham/notes-server/internal/core/service"
	mongodb "github.com/wlcham/notes-server/internal/infrastructure/db/mongo"
	redisdb "github.com/wlcham/notes-server/internal/infrastructure/db/redis"
	"github.com/wlcham/notes-server/internal/infrastructure/queue"
	"github.com/wlcham/notes-server/internal/infrastructure/ratelimit"
	"github.com/wlcham/notes-server/internal/pkg/config"
	"github.com/wlcham/notes-server/pkg/logger"
)

const (
	serviceName     = "notes-server"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accessLog, accessCloser, err := logger.Access(cfg.AccessLogPath)
	if err != nil {
		return err
	}
	defer accessCloser.Close()

	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     serviceName,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	users := mongodb.NewUserRepository(db)
	notes := mongodb.NewNoteRepository(db)
	collections := mongodb.NewCollectionRepository(db)
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb ready")

	// --- Rate limiting ---
	var (
		rdb          *goredis.Client
		anonLimiter  middleware.Limiter
		usersLimiter middleware.Limiter
	)
	if cfg.UsesRedis() {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{
			Addr:        cfg.Redis.Addr,
			DB:          cfg.Redis.DB,
			ClientName:  serviceName,
			PoolSize:    cfg.Redis.PoolSize,
			RequestRate: cfg.RateLimit.Anonymous + cfg.RateLimit.Authenticated,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		anonLimiter = redisdb.NewRateLimiter(rdb, "anonymous", cfg.RateLimit.Anonymous)
		usersLimiter = redisdb.NewRateLimiter(rdb, "authenticated", cfg.RateLimit.Authenticated)
	} else {
		anon := ratelimit.New(cfg.RateLimit.Anonymous, burst(cfg.RateLimit.Anonymous), ratelimit.DefaultIdleTimeout)
		defer anon.Stop()
		authed := ratelimit.New(cfg.RateLimit.Authenticated, burst(cfg.RateLimit.Authenticated), ratelimit.DefaultIdleTimeout)
		defer authed.Stop()
		anonLimiter, usersLimiter = anon, authed
	}
	log.Info().Str("backend", cfg.RateLimit.Backend).Msg("rate limiter ready")

	// --- Services ---
	repairer := queue.NewRepairer(cfg.RepairWorkers, notes, collections, log.With().Str("component", "repairer").Logger())
	repairCtx, stopRepairs := context.WithCancel(context.Background())
	repairer.Start(repairCtx)
	defer func() {
		// Drain queued repairs, abandoning them if shutdown runs long.
		timer := time.AfterFunc(shutdownTimeout, stopRepairs)
		repairer.Close()
		repairer.Wait()
		timer.Stop()
		stopRepairs()
	}()

	relations := service.NewRelations(notes, collections, log).WithRepairer(repairer)

	e := api.NewRouter(api.Deps{
		AuthService:       service.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost, log),
		NoteService:       service.NewNoteService(notes, collections, relations, log),
		CollectionService: service.NewCollectionService(collections, relations, log),
		UserService:       service.NewUserService(users, notes, collections, cfg.BcryptCost, log),
		Health:            handler.NewHealthHandler(db, rdb),
		JWTSecret:         cfg.JWTSecret,
		AllowOrigins:      cfg.CORS.AllowOrigins,
		AnonymousLimiter:  anonLimiter,
		UserLimiter:       usersLimiter,
		Log:               log,
		AccessLog:         accessLog,
	})

	// --- Serve ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// burst lets a full second's budget through at once.
func burst(perSecond float64) int {
	return max(1, int(perSecond))
}
