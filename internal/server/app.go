// Package server wires the vault server together: configuration, storage
// backend, backup sink, token authority, account lifecycle, the session
// flusher and both transports. It also owns startup and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/polvault/internal/buildinfo"
	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/dmitrijs2005/polvault/internal/reporting"
	"github.com/dmitrijs2005/polvault/internal/server/auth"
	"github.com/dmitrijs2005/polvault/internal/server/backups"
	"github.com/dmitrijs2005/polvault/internal/server/config"
	"github.com/dmitrijs2005/polvault/internal/server/httpapi"
	"github.com/dmitrijs2005/polvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/polvault/internal/server/services"
	"github.com/dmitrijs2005/polvault/internal/server/sessions"

	gs "github.com/dmitrijs2005/polvault/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	accounts *services.AccountService
	flusher  *sessions.Flusher
	grpc     *gs.GRPCServer
	http     *httpapi.Server
	done     func()
}

var openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	return repomanager.OpenPostgres(ctx, dsn)
}

func openRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.StorageBackend {
	case config.StoragePostgres:
		return openPostgres(ctx, c.DatabaseDSN)
	default:
		return repomanager.NewFileRepositoryManager(c.StorageDir)
	}
}

func openBackupSink(ctx context.Context, c *config.Config) (backups.Sink, error) {
	switch c.BackupTarget {
	case config.BackupTargetS3:
		return backups.NewS3Sink(ctx, backups.S3Config{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return backups.NewFileSink(c.StorageDir)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	done, err := reporting.Init(c.SentryDSN, c.Environment, buildinfo.Version())
	if err != nil {
		return nil, fmt.Errorf("sentry init error: %w", err)
	}

	repos, err := openRepositories(ctx, c)
	if err != nil {
		done()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	sink, err := openBackupSink(ctx, c)
	if err != nil {
		_ = repos.Close()
		done()
		return nil, fmt.Errorf("backup sink init error: %w", err)
	}

	store := services.NewSecretStore(repos, sink, c.SessionRetention, logger)
	authority := auth.NewAuthority([]byte(c.AccessSecret), []byte(c.RefreshSecret),
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	set := sessions.NewRevocationSet()
	accounts := services.NewAccountService(store, authority, set, c.BcryptCost, logger)
	limiter := ratelimit.New(c.RateLimitRequests, c.RateLimitWindow)

	grpcServer, err := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, accounts, authority, limiter)
	if err != nil {
		_ = repos.Close()
		done()
		return nil, err
	}

	return &App{
		config:   c,
		logger:   logger,
		repos:    repos,
		accounts: accounts,
		flusher:  sessions.NewFlusher(accounts.FlushSessions, c.SessionFlushInterval, logger),
		grpc:     grpcServer,
		http:     httpapi.NewServer(c.EndpointAddrHTTP, logger, accounts, authority, limiter),
		done:     done,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a signal arrives. The revocation set
// is loaded before any listener opens and flushed once more after both
// servers have stopped.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version(), "backend", app.repos.Backend())

	app.initSignalHandler(cancelFunc)

	app.accounts.LoadSessions(ctx)

	var servers sync.WaitGroup

	servers.Add(2)
	go func() {
		defer servers.Done()
		app.startServer(ctx, cancelFunc, "grpc", app.grpc.Run)
	}()
	go func() {
		defer servers.Done()
		app.startServer(ctx, cancelFunc, "http", app.http.Run)
	}()

	flusherCtx, stopFlusher := context.WithCancel(context.Background())
	flusherDone := make(chan struct{})
	go func() {
		defer close(flusherDone)
		app.flusher.Run(flusherCtx)
	}()

	servers.Wait()

	stopFlusher()
	<-flusherDone

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing storage", "error", err)
	}
	app.done()

	app.logger.Info(ctx, "App stopped")
}
