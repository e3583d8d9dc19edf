package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
	"github.com/kailas-cloud/regassist/internal/metrics"
	"github.com/kailas-cloud/regassist/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/regassist/internal/usecase/health"
)

// AuthConfig holds the bearer keys. Empty APIKeys disables authentication.
type AuthConfig struct {
	APIKeys      []string
	AdminAPIKeys []string
}

// Server serves the assistant HTTP API.
type Server struct {
	assistant Assistant
	usage     UsageReader
	sources   SourceAdmin
	health    HealthChecker
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	assistant Assistant,
	usage UsageReader,
	sources SourceAdmin,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		assistant: assistant,
		usage:     usage,
		sources:   sources,
		health:    health,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Router builds the chi router with the middleware chain.
func (s *Server) Router(auth AuthConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Use(IdentityMiddleware)

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/ai", s.Ask)
		r.Post("/ai/stream", s.AskStream)
		r.Get("/usage", s.GetUsage)

		r.Route("/admin/sources", func(r chi.Router) {
			r.Use(AdminOnly(auth.AdminAPIKeys))
			r.Get("/", s.ListSources)
			r.Post("/clear", s.ClearSources)
			r.Post("/{id}/approve", s.ApproveSource)
			r.Post("/{id}/reject", s.RejectSource)
			r.Delete("/{id}", s.DeleteSource)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route introuvable")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Méthode non autorisée")
	})
	return r
}

type askResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	Mode      string `json:"mode"`
	Model     string `json:"model"`
	WebSearch bool   `json:"webSearch"`
	RAGUsed   bool   `json:"ragUsed"`
}

// decodeAsk reads and validates an ask body. It writes the 400 itself.
func (s *Server) decodeAsk(w http.ResponseWriter, r *http.Request) (assistant.Request, bool) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps de requête invalide: "+err.Error())
		return assistant.Request{}, false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return assistant.Request{}, false
	}
	return req.toDomain(IdentityFromContext(r.Context())), true
}

// Ask handles POST /api/ai.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	ans, err := s.assistant.Ask(r.Context(), req)
	if err != nil {
		handleError(w, r, err, pipelineHandlers)
		return
	}

	setUsageHeaders(w, domain.UsageFromContext(r.Context()))
	writeJSON(w, http.StatusOK, askResponse{
		Success:   true,
		Response:  ans.Text,
		Mode:      ans.Mode,
		Model:     ans.Model,
		WebSearch: ans.WebSearch,
		RAGUsed:   ans.RAGUsed,
	})
}

// AskStream handles POST /api/ai/stream. The request context drives the provider stream,
// so a client disconnect cancels the upstream call.
func (s *Server) AskStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	sse := newSSEWriter(w)
	err := s.assistant.Stream(r.Context(), req, sse.Send)
	if err != nil && !sse.started {
		handleError(w, r, err, pipelineHandlers)
	}
}

type counterBody struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resetsAt"`
}

type usageResponse struct {
	Role     string      `json:"role"`
	Messages counterBody `json:"messages"`
	Tokens   counterBody `json:"tokens"`
}

func counterToBody(c domquota.Counter) counterBody {
	return counterBody{Used: c.Used, Limit: c.Limit, Remaining: c.Remaining, ResetsAt: c.ResetsAt.UTC()}
}

// GetUsage handles GET /api/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	u, err := s.usage.Status(r.Context(), id.UserID, id.Role)
	if err != nil {
		handleError(w, r, err, adminHandlers)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{
		Role:     u.Role,
		Messages: counterToBody(u.Messages),
		Tokens:   counterToBody(u.Tokens),
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}
