package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jpk2json-service/internal/config"
	"jpk2json-service/internal/domain/ports/adapter"
	"jpk2json-service/internal/domain/ports/repository"
	"jpk2json-service/internal/infra/api"
	"jpk2json-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the public HTTP surface: the converter API, the blacklist
// admin API, metrics and health.
type Server struct {
	cfg       *config.Config
	convertUC usecase.ConversionUseCase
	blockUC   usecase.BlacklistUseCase
	verifier  api.IdentityVerifier
	gate      adapter.AccessGate
	audit     repository.AuditSink
	log       *zerolog.Logger
	server    *http.Server
}

func NewServer(
	cfg *config.Config,
	convertUC usecase.ConversionUseCase,
	blockUC usecase.BlacklistUseCase,
	verifier api.IdentityVerifier,
	gate adapter.AccessGate,
	audit repository.AuditSink,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		convertUC: convertUC,
		blockUC:   blockUC,
		verifier:  verifier,
		gate:      gate,
		audit:     audit,
		log:       logger,
	}
}

// Router builds the full route tree. Split out from Start so tests can
// drive it through httptest without a listening socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(api.TraceID(s.log))
	r.Use(api.Recover(s.log))
	r.Use(api.ClientIP())
	r.Use(api.RequestLog(s.log))

	r.Route("/api/converter", func(r chi.Router) {
		r.Use(api.Gate(s.gate, s.audit, s.log))
		r.Use(api.Identity(s.verifier, s.audit, s.log))

		r.Post("/upload", s.handleUpload)
		r.Post("/batch/upload", s.handleBatchUpload)
		r.Get("/status/{jobID}", s.handleStatus)
		r.Get("/download/{jobID}", s.handleDownload)
		r.Delete("/cleanup/{jobID}", s.handleCleanup)
		r.Get("/queue/status", s.handleQueueStatus)
	})

	r.Route("/api/admin/blacklist", func(r chi.Router) {
		r.Use(s.adminAuth)

		r.Get("/", s.handleBlacklistList)
		r.Post("/", s.handleBlacklistAdd)
		// CIDR entries contain a slash, so removal takes a JSON body
		// instead of a path parameter.
		r.Delete("/", s.handleBlacklistRemove)
		r.Post("/reload", s.handleBlacklistReload)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// adminAuth provides Bearer token authentication for the admin API.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.AdminAPIKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.cfg.Server.AdminAPIKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
