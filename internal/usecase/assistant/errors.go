package assistant

import (
	"context"
	"errors"

	"github.com/kailas-cloud/regassist/internal/domain"
	domquota "github.com/kailas-cloud/regassist/internal/domain/quota"
)

// User-facing messages.
const (
	msgEmptyMessage      = "Message requis"
	msgMissingCredential = "Clé API OpenAI manquante"
	msgQuotaExceeded     = "Limite d'utilisation atteinte"
	msgQuotaUnavailable  = "Service de quotas indisponible"
	msgRateLimited       = "Limite de taux dépassée"
	msgUnauthorized      = "Clé API OpenAI invalide"
	msgEmptyResponse     = "Réponse vide de l'IA"
	msgTool              = "Erreur de recherche web"
	msgTransport         = "Erreur Responses API"
	msgCanceled          = "Requête annulée"
)

func quotaError(d domquota.Decision) *domain.PipelineError {
	return domain.NewPipelineError(domain.KindQuota, msgQuotaExceeded, &domquota.ExceededError{Decision: d})
}

// classify maps a model call failure onto a pipeline error.
func classify(err error) *domain.PipelineError {
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return domain.NewPipelineError(domain.KindConfiguration, msgMissingCredential, err)
	case errors.Is(err, domain.ErrProviderRateLimited):
		return domain.NewPipelineError(domain.KindRateLimited, msgRateLimited, err)
	case errors.Is(err, domain.ErrProviderUnauthorized):
		return domain.NewPipelineError(domain.KindUnauthorized, msgUnauthorized, err)
	case errors.Is(err, domain.ErrEmptyResponse):
		return domain.NewPipelineError(domain.KindEmptyResponse, msgEmptyResponse, err)
	case errors.Is(err, context.Canceled):
		return domain.NewPipelineError(domain.KindTransport, msgCanceled, err)
	default:
		return domain.NewPipelineError(domain.KindTransport, msgTransport, err)
	}
}
