package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sandevgo/cupido/internal/config"
	"github.com/sandevgo/cupido/internal/service/memory"
	"github.com/sandevgo/cupido/internal/service/outbox"
	"github.com/sandevgo/cupido/pkg/log"
)

// Server is the HTTP surface of the memory service. When box is non-nil the
// append path is write-behind: clients get a 202 with the pending turn.
type Server struct {
	httpSrv *http.Server
	cfg     *config.ServerConfig
	appCfg  *config.AppConfig
	mem     *memory.Service
	box     *outbox.Outbox
}

func NewServer(
	ctx context.Context,
	cfg *config.ServerConfig,
	appCfg *config.AppConfig,
	mem *memory.Service,
	box *outbox.Outbox,
) *Server {
	s := &Server{
		cfg:    cfg,
		appCfg: appCfg,
		mem:    mem,
		box:    box,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(withBaseContext(ctx))

	router.Get("/health", s.health)
	router.Route("/api/v1/conversations/{conversationID}", func(r chi.Router) {
		r.Post("/turns", s.appendTurn)
		r.Get("/turns", s.recentTurns)
		r.Get("/summary", s.getSummary)
		r.Put("/summary", s.replaceSummary)
		r.Get("/context", s.assembleContext)
	})

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.cfg.Addr()).Msg("starting http api")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// withBaseContext carries the process logger into every request context so
// handlers can use log.FromCtx the same way the rest of the app does.
func withBaseContext(base context.Context) func(http.Handler) http.Handler {
	logger := log.FromCtx(base)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	}
}
