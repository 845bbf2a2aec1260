// Package server exposes the widget backend over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/aitarf0921/AI-Secretary/pkg/answer"
	"github.com/aitarf0921/AI-Secretary/pkg/clientaddr"
	"github.com/aitarf0921/AI-Secretary/pkg/config"
	"github.com/aitarf0921/AI-Secretary/pkg/knowledge"
	"github.com/aitarf0921/AI-Secretary/pkg/otp"
	"github.com/aitarf0921/AI-Secretary/pkg/payment"
	"github.com/aitarf0921/AI-Secretary/pkg/widget"
)

// Deps are the collaborators a Server needs. Payments may be nil.
type Deps struct {
	Config   *config.Config
	Answers  *answer.Service
	OTP      *otp.Service
	Store    knowledge.Store
	Payments *payment.EventLog
	Logger   *zap.Logger
}

// Server is the AI Secretary HTTP surface.
type Server struct {
	cfg      *config.Config
	answers  *answer.Service
	otp      *otp.Service
	store    knowledge.Store
	payments *payment.EventLog
	log      *zap.Logger
	router   chi.Router
}

// New creates a Server wired with all dependencies.
func New(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:      d.Config,
		answers:  d.Answers,
		otp:      d.OTP,
		store:    d.Store,
		payments: d.Payments,
		log:      log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(defaultHeaders()))
	r.Use(cors.Handler(corsOptions(s.cfg.Server.CORSWhitelist)))
	r.Use(httprate.Limit(
		s.cfg.Server.RateLimit.Requests,
		s.cfg.Server.RateLimit.Window,
		httprate.WithKeyFuncs(s.clientKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests", "RATE_LIMITED")
		}),
	))

	r.Get("/", s.handleLanding)
	r.Get("/widget", s.handleWidget)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/js/*", widget.Static())

	r.Group(func(r chi.Router) {
		r.Use(maxBody(s.cfg.Server.MaxBodyBytes))
		r.Options("/query", handlePreflight)
		r.Post("/query", s.handleQuery)
		r.Post("/email", s.handleEmail)
		r.Post("/verify-code", s.handleVerifyCode)
		r.Post("/site-id", s.handleSiteID)
		r.Post("/nowpayments-ipn", s.handleIPN)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("ai secretary listening", zap.String("addr", s.cfg.Listen), zap.String("tenancy", s.cfg.Tenancy))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) clientKey(r *http.Request) (string, error) {
	return clientaddr.Resolve(r.Header, r.RemoteAddr, s.cfg.Server.ClientIPHeaders), nil
}
