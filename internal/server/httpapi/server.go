// Package httpapi exposes the account lifecycle as JSON over HTTP. Every
// response uses the {success, data|error} envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/dmitrijs2005/polvault/internal/server/auth"
	"github.com/dmitrijs2005/polvault/internal/server/models"
	"github.com/dmitrijs2005/polvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/polvault/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type accountSvc interface {
	Status(ctx context.Context) (*services.Status, error)
	Setup(ctx context.Context, in services.SetupInput) (*models.UserSummary, error)
	Login(ctx context.Context, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	Reset(ctx context.Context, confirmation string) error
	CreateBackup(ctx context.Context, password string) (string, error)
	RestoreBackup(ctx context.Context, handle, password string) (*models.UserSummary, error)
	StorageStats(ctx context.Context) (*models.StorageStats, error)
}

type tokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

const shutdownTimeout = 5 * time.Second

type Server struct {
	address  string
	accounts accountSvc
	verifier tokenVerifier
	limiter  *ratelimit.Limiter
	logger   logging.Logger
}

func NewServer(a string, l logging.Logger, accounts accountSvc, verifier tokenVerifier, limiter *ratelimit.Limiter) *Server {
	return &Server{
		address:  a,
		logger:   l.With("module", "http_server"),
		accounts: accounts,
		verifier: verifier,
		limiter:  limiter,
	}
}

// Router builds the route tree. Exported for tests and embedding.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Get("/health", s.health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/status", s.status)
		r.With(s.rateLimit).Post("/setup", s.setup)
		r.With(s.rateLimit).Post("/login", s.login)
		r.Post("/refresh", s.refresh)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccess)
			r.Get("/stats", s.stats)

			r.With(s.rateLimit).Post("/change-password", s.changePassword)
			r.With(s.rateLimit).Post("/reset", s.reset)
			r.With(s.rateLimit).Post("/backup", s.backup)
			r.With(s.rateLimit).Post("/restore", s.restore)
		})
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
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

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
