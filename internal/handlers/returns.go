package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/validation"
	"github.com/Navneet1206/E-Commerce-sub000/internal/services"
)

// ReturnHandlers exposes return and refund requests.
type ReturnHandlers struct {
	authn   *auth.Authenticator
	returns services.ReturnService
}

// NewReturnHandlers constructs the /return-refund handlers.
func NewReturnHandlers(authn *auth.Authenticator, returns services.ReturnService) *ReturnHandlers {
	return &ReturnHandlers{authn: authn, returns: returns}
}

// Routes wires the /return-refund endpoints onto the provided router.
func (h *ReturnHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireUser())
		}
		user.Post("/create", h.create)
		user.Get("/mine", h.mine)
		user.Get("/order/{orderId}", h.byOrder)
	})
	r.Group(func(ops chi.Router) {
		if h.authn != nil {
			ops.Use(h.authn.AdminOrLogistics())
		}
		ops.Get("/all", h.all)
		ops.Post("/update-status", h.updateStatus)
		ops.Delete("/{requestId}", h.remove)
	})
}

type createReturnRequest struct {
	OrderID string `json:"orderId" validate:"required,max=64"`
	Reason  string `json:"reason" validate:"required,max=2000"`
}

type updateReturnStatusRequest struct {
	RequestID string `json:"requestId" validate:"required"`
	Status    string `json:"status" validate:"required,max=40"`
	Force     bool   `json:"force"`
}

func (h *ReturnHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cmd := services.CreateReturnCommand{UserID: identity.UserID}
	if isMultipart(r) {
		files, release, err := parseMultipart(w, r, "images")
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		defer release()
		req := createReturnRequest{OrderID: r.FormValue("orderId"), Reason: r.FormValue("reason")}
		if err := validation.Struct(req); err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		cmd.OrderID, cmd.Reason, cmd.Images = req.OrderID, req.Reason, files
	} else {
		var req createReturnRequest
		if err := validation.DecodeJSON(r, &req); err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		cmd.OrderID, cmd.Reason = req.OrderID, req.Reason
	}

	created, err := h.returns.Create(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Return request submitted", map[string]any{"request": buildReturnPayload(created)})
}

func (h *ReturnHandlers) mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	// Staff calling /mine only see their own requests.
	reqs, err := h.returns.List(ctx, services.Viewer{UserID: identity.UserID, Role: services.Role(auth.RoleUser)})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"requests": buildReturnPayloads(reqs)})
}

func (h *ReturnHandlers) all(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	reqs, err := h.returns.List(ctx, viewerFrom(identity))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"requests": buildReturnPayloads(reqs)})
}

func (h *ReturnHandlers) byOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	reqs, err := h.returns.ListByOrder(ctx, viewerFrom(identity), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "", map[string]any{"requests": buildReturnPayloads(reqs)})
}

func (h *ReturnHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req updateReturnStatusRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if req.Force && !identity.HasRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "only admins may force a status change", http.StatusForbidden))
		return
	}
	updated, err := h.returns.UpdateStatus(ctx, services.UpdateReturnStatusCommand{
		RequestID: req.RequestID,
		Status:    req.Status,
		Force:     req.Force,
		ActorID:   identity.UserID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Status Updated", map[string]any{"request": buildReturnPayload(updated)})
}

func (h *ReturnHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	if err := h.returns.Delete(ctx, chi.URLParam(r, "requestId")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Return request deleted", nil)
}
