package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/regassist/internal/domain"
)

type sourceListResponse struct {
	Sources []domain.SourceRecord `json:"sources"`
	Total   int                   `json:"total"`
}

// ListSources handles GET /api/admin/sources?status=.
func (s *Server) ListSources(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sources.List(r.URL.Query().Get("status"))
	if err != nil {
		handleError(w, r, err, adminHandlers)
		return
	}
	if recs == nil {
		recs = []domain.SourceRecord{}
	}
	writeJSON(w, http.StatusOK, sourceListResponse{Sources: recs, Total: len(recs)})
}

// ApproveSource handles POST /api/admin/sources/{id}/approve.
func (s *Server) ApproveSource(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, s.sources.Approve)
}

// RejectSource handles POST /api/admin/sources/{id}/reject.
func (s *Server) RejectSource(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, s.sources.Reject)
}

func (s *Server) moderate(
	w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string) (domain.SourceRecord, error),
) {
	rec, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err, adminHandlers)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteSource handles DELETE /api/admin/sources/{id}.
func (s *Server) DeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.sources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err, adminHandlers)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearSources handles POST /api/admin/sources/clear.
func (s *Server) ClearSources(w http.ResponseWriter, r *http.Request) {
	if err := s.sources.Clear(r.Context()); err != nil {
		handleError(w, r, err, adminHandlers)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
