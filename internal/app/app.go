// Package app wires configuration, storage and transports into a running
// session server and handles graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Wang-tianhao/session-auth-go/internal/config"
	"github.com/Wang-tianhao/session-auth-go/internal/httpapi"
	"github.com/Wang-tianhao/session-auth-go/internal/password"
	"github.com/Wang-tianhao/session-auth-go/internal/store/postgres"
	"github.com/Wang-tianhao/session-auth-go/internal/store/redisstore"
	"github.com/Wang-tianhao/session-auth-go/internal/users"
	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   *slog.Logger
	db       *sql.DB
	redis    *redis.Client
	sessions *sessionauth.SessionService
	users    *users.Service
}

// NewApp connects to storage, applies migrations and builds the services
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{config: cfg, logger: logger, db: db}

	tokens, err := app.newTokenStore(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	hasher, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		app.close()
		return nil, err
	}

	userRepo := postgres.NewUserRepository(db)
	app.sessions, err = newSessionService(cfg, logger, userRepo, tokens, hasher)
	if err != nil {
		app.close()
		return nil, err
	}
	app.users = users.NewService(userRepo, hasher, logger)

	return app, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newSessionService(
	cfg *config.Config,
	logger *slog.Logger,
	directory sessionauth.UserDirectory,
	tokens sessionauth.TokenStore,
	hasher sessionauth.PasswordHasher,
) (*sessionauth.SessionService, error) {
	sessCfg, err := sessionauth.NewConfig(
		sessionauth.WithSigningSecret([]byte(cfg.SigningSecret)),
		sessionauth.WithTokenTTL(cfg.TokenTTL),
		sessionauth.WithCookie(cfg.CookieName),
		sessionauth.WithStoreTimeout(cfg.StoreTimeout),
		sessionauth.WithMaxSessionsPerUser(cfg.MaxSessionsPerUser),
		sessionauth.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return sessionauth.NewSessionService(sessCfg, directory, tokens, hasher)
}

// newTokenStore selects the configured token store backend
func (app *App) newTokenStore(ctx context.Context) (sessionauth.TokenStore, error) {
	switch app.config.TokenStore {
	case config.StoreRedis:
		app.redis = redis.NewClient(&redis.Options{
			Addr:       app.config.RedisAddr,
			Password:   app.config.RedisPassword,
			DB:         app.config.RedisDB,
			MaxRetries: 2,
		})
		store := redisstore.NewTokenStore(app.redis, redisstore.DefaultPrefix)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		return store, nil
	default:
		return postgres.NewTokenRepository(app.db), nil
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP, and gRPC when configured, until ctx is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info("starting session server",
		"http_addr", app.config.HTTPAddr,
		"grpc_addr", app.config.GRPCAddr,
		"token_store", app.config.TokenStore,
		"env", app.config.Environment,
	)
	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		cancelFunc()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.serveHTTP(ctx); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.serveGRPC(ctx); err != nil {
				fail(fmt.Errorf("grpc server: %w", err))
			}
		}()
	}

	wg.Wait()
	app.logger.Info("session server stopped")
	return errors.Join(errs...)
}

func (app *App) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr: app.config.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Sessions:     app.sessions,
			Users:        app.users,
			Logger:       app.logger,
			CookieSecure: app.config.CookieSecure,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (app *App) serveGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", app.config.GRPCAddr)
	if err != nil {
		return err
	}
	return serveGRPC(ctx, lis, app.sessions)
}

// newGRPCServer builds a gRPC server whose handlers see the same
// principals as the HTTP API
func newGRPCServer(sessions *sessionauth.SessionService) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(sessionauth.UnaryServerInterceptor(sessions)))
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	return s
}

func serveGRPC(ctx context.Context, lis net.Listener, sessions *sessionauth.SessionService) error {
	s := newGRPCServer(sessions)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("closing redis", "error", err)
		}
		app.redis = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn("closing database", "error", err)
		}
		app.db = nil
	}
}
