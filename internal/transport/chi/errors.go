package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
	"github.com/kailas-cloud/regassist/internal/logger"
)

// errorResponse is the JSON body of every failure.
type errorResponse struct {
	Error   string     `json:"error"`
	Details string     `json:"details,omitempty"`
	Quota   *quotaBody `json:"quota,omitempty"`
}

type quotaBody struct {
	CurrentUsage int    `json:"currentUsage"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
	Kind         string `json:"kind"`
}

// errorHandler tries to handle an error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// pipelineHandlers map pipeline error kinds to responses. Order matters: quota first, it carries a body.
var pipelineHandlers = []errorHandler{
	quotaHandler,
	kindHandler(domain.KindValidation, http.StatusBadRequest, false),
	kindHandler(domain.KindConfiguration, http.StatusInternalServerError, false),
	kindHandler(domain.KindQuotaUnavailable, http.StatusServiceUnavailable, false),
	kindHandler(domain.KindRateLimited, http.StatusTooManyRequests, false),
	kindHandler(domain.KindUnauthorized, http.StatusUnauthorized, false),
	kindHandler(domain.KindEmptyResponse, http.StatusInternalServerError, false),
	kindHandler(domain.KindTool, http.StatusInternalServerError, true),
	kindHandler(domain.KindParsing, http.StatusInternalServerError, true),
	kindHandler(domain.KindTransport, http.StatusInternalServerError, true),
}

// adminHandlers map registry errors.
var adminHandlers = []errorHandler{
	sentinelHandler(domain.ErrSourceNotFound, http.StatusNotFound, "Source introuvable"),
	sentinelHandler(domain.ErrInvalidStatus, http.StatusBadRequest, "Statut invalide"),
	sentinelHandler(domain.ErrRegistryClosed, http.StatusServiceUnavailable, "Registre indisponible"),
	sentinelHandler(domain.ErrQuotaUnavailable, http.StatusServiceUnavailable, "Service de quotas indisponible"),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func quotaHandler(w http.ResponseWriter, err error) bool {
	var exceeded *domquota.ExceededError
	if !errors.As(err, &exceeded) {
		return false
	}
	d := exceeded.Decision
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error: userMessage(err, "Limite d'utilisation atteinte"),
		Quota: &quotaBody{
			CurrentUsage: d.CurrentCount,
			Limit:        d.Limit,
			Remaining:    d.Remaining,
			Kind:         string(d.Kind),
		},
	})
	return true
}

// kindHandler matches one pipeline error kind. details exposes the provider message.
func kindHandler(kind domain.ErrorKind, status int, details bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		var pe *domain.PipelineError
		if !errors.As(err, &pe) || pe.Kind != kind {
			return false
		}
		body := errorResponse{Error: pe.Message}
		if details && pe.Err != nil {
			body.Details = pe.Err.Error()
		}
		writeJSON(w, status, body)
		return true
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, message)
		return true
	}
}

func userMessage(err error, fallback string) string {
	var pe *domain.PipelineError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return fallback
}

// handleError writes the first matching handler's response, or a 500.
func handleError(w http.ResponseWriter, r *http.Request, err error, handlers []errorHandler) {
	log := logger.FromContext(r.Context())
	for _, h := range handlers {
		if h(w, err) {
			log.Warn("request failed", zap.String("kind", string(domain.KindOf(err))), zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Erreur interne")
}
