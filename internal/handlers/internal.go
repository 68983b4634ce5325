package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// InternalHandlers serves scheduler callbacks. Callers are authenticated by the group
// middleware configured on the router.
type InternalHandlers struct {
	recommend services.RecommendationService
}

// NewInternalHandlers constructs the /internal handlers.
func NewInternalHandlers(recommend services.RecommendationService) *InternalHandlers {
	return &InternalHandlers{recommend: recommend}
}

// Routes wires the /internal endpoints onto the provided router.
func (h *InternalHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/recommendations/recompute", h.recompute)
}

func (h *InternalHandlers) recompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.recommend == nil {
		writeUnavailable(ctx, w, "recommendation")
		return
	}
	if err := h.recommend.Recompute(ctx); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Recommendations recomputed", nil)
}
