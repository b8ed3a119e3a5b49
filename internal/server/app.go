// Package server wires the booking back office together: database and
// migrations, token revocation store, domain services and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/admincli"
	"github.com/dmitrijs2005/tourdesk/internal/server/auth"
	"github.com/dmitrijs2005/tourdesk/internal/server/config"
	"github.com/dmitrijs2005/tourdesk/internal/server/httpapi"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tourdesk/internal/server/services"
	"github.com/dmitrijs2005/tourdesk/internal/server/sessions"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	revoker sessions.Revoker
	closers []func() error
	server  *httpapi.Server
}

// openDB and connectRedis are seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	connectRedis = func(ctx context.Context, cfg sessions.Config) (sessions.Revoker, func() error, error) {
		client, err := sessions.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return sessions.NewRedisStore(client), client.Close, nil
	}
)

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Level: c.LogLevel, Pretty: c.LogPretty})

	app := &App{config: c, logger: logger}

	rm := repomanager.NewPostgresRepositoryManager()
	db, err := app.openDatabase(ctx, rm)
	if err != nil {
		return nil, err
	}
	app.db = db

	revoker, err := app.newRevoker(ctx)
	if err != nil {
		app.close()
		return nil, err
	}
	app.revoker = revoker

	clientService := services.NewClientService(db, rm, logger)
	svc := httpapi.Services{
		Users:   newUserService(db, rm, c, revoker, logger),
		Catalog: services.NewCatalogService(db, rm, logger),
		Ledger:  services.NewLedgerService(db, rm, clientService, logger),
		Clients: clientService,
		Reports: services.NewReportService(db, rm, logger),
		Audit:   services.NewAuditService(db, rm, logger),
		Archive: services.NewArchiveService(db, rm, c, logger),
	}

	app.server = httpapi.NewServer(httpapi.Options{
		Address: c.EndpointAddrHTTP,
		Dependencies: map[string]httpapi.Pinger{
			"postgres": db.PingContext,
			"redis":    revoker.Ping,
		},
	}, svc, logger)

	return app, nil
}

// NewAdminCLI builds the administrative command line on top of the same
// database the server uses. The returned func releases the connection.
func NewAdminCLI(ctx context.Context, c *config.Config) (*admincli.CLI, func(), error) {
	logger := logging.New(logging.Options{Level: c.LogLevel, Pretty: c.LogPretty})
	app := &App{config: c, logger: logger}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	app.db = db

	rm := repomanager.NewPostgresRepositoryManager()
	us := newUserService(db, rm, c, sessions.Noop{}, logger)
	migrate := func(ctx context.Context) error {
		return rm.RunMigrations(ctx, db)
	}

	return admincli.New(us, migrate, os.Stdout), app.close, nil
}

func newUserService(db *sql.DB, rm repomanager.RepositoryManager, c *config.Config,
	revoker sessions.Revoker, logger logging.Logger) *services.UserService {
	return services.NewUserService(db, rm, c, auth.NewBcryptHasher(),
		auth.NewSecretCodePolicy(c.AdminSecretCode), revoker, logger)
}

func (app *App) openDatabase(ctx context.Context, rm repomanager.RepositoryManager) (*sql.DB, error) {
	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return db, nil
}

// newRevoker connects to Redis, or falls back to Noop when no address is
// configured.
func (app *App) newRevoker(ctx context.Context) (sessions.Revoker, error) {
	if app.config.RedisAddr == "" {
		app.logger.Warn(ctx, "redis address not set, access tokens cannot be revoked before expiry")
		return sessions.Noop{}, nil
	}

	revoker, closeFn, err := connectRedis(ctx, sessions.Config{
		Addr: app.config.RedisAddr,
		DB:   app.config.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, closeFn)

	return revoker, nil
}

func (app *App) close() {
	for _, fn := range app.closers {
		if err := fn(); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "db close error", "error", err)
		}
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close()

	app.logger.Info(context.Background(), "App stopped")
}
