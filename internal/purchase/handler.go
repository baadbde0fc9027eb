package purchase

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages purchase order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPurchaseOrderView, rbac.PermPurchaseOrderWrite))
		r.Get("/{name}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermPurchaseOrderWrite))
		r.Post("/{name}/submit", h.handleSubmit)
		r.Post("/{name}/cancel", h.handleCancel)
		r.Post("/{name}/receipt", h.handleBuildReceipt)
		r.Post("/{name}/invoice", h.handleBuildInvoice)
		r.Post("/{name}/rm-transfer", h.handleBuildRMTransfer)
		r.Post("/{name}/inter-company-sales-order", h.handleBuildInterCompanySO)
		r.Post("/{name}/last-purchase-rates", h.handleLastPurchaseRates)
		r.Post("/{name}/refresh-receiving", h.handleRefreshReceiving)
		r.Post("/status", h.handleUpdateStatus)
		r.Post("/close-or-reopen", h.handleCloseOrReopen)
	})
}

type orderResponse struct {
	Order   Order       `json:"order"`
	Lines   []OrderLine `json:"lines"`
	Notices []Notice    `json:"notices,omitempty"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	order, lines, err := h.service.Get(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order, Lines: lines})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	actor := shared.ActorFromContext(r.Context())
	notices, err := h.service.Submit(r.Context(), name, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	order, lines, err := h.service.Get(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order, Lines: lines, Notices: notices})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	actor := shared.ActorFromContext(r.Context())
	notices, err := h.service.Cancel(r.Context(), name, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	order, lines, err := h.service.Get(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order, Lines: lines, Notices: notices})
}

type updateStatusRequest struct {
	Name     string     `json:"name" validate:"required"`
	Status   string     `json:"status" validate:"required,oneof=Closed Draft"`
	Modified *time.Time `json:"modified,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var expected time.Time
	if req.Modified != nil {
		expected = *req.Modified
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.UpdateStatus(r.Context(), req.Name, Status(req.Status), expected, actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type closeOrReopenRequest struct {
	Names  []string `json:"names" validate:"required,min=1,dive,required"`
	Action string   `json:"action" validate:"required,oneof=close reopen"`
}

func (h *Handler) handleCloseOrReopen(w http.ResponseWriter, r *http.Request) {
	var req closeOrReopenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	target := StatusClosed
	if req.Action == "reopen" {
		target = StatusDraft
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.CloseOrReopen(r.Context(), req.Names, target, actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBuildReceipt(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.BuildReceipt(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

func (h *Handler) handleBuildInvoice(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.BuildInvoice(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

type rmTransferRequest struct {
	Items []RawMaterialSelection `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) handleBuildRMTransfer(w http.ResponseWriter, r *http.Request) {
	var req rmTransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.BuildRawMaterialTransfer(r.Context(), chi.URLParam(r, "name"), req.Items)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleBuildInterCompanySO(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.BuildInterCompanySalesOrder(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

func (h *Handler) handleLastPurchaseRates(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.LastPurchaseRates(r.Context(), name); err != nil {
		h.respondError(w, err)
		return
	}
	order, lines, err := h.service.Get(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order, Lines: lines})
}

func (h *Handler) handleRefreshReceiving(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.UpdateReceivingPercentage(r.Context(), name); err != nil {
		h.respondError(w, err)
		return
	}
	order, lines, err := h.service.Get(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order, Lines: lines})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		httpx.ProblemRef(w, http.StatusBadRequest, "Validation Failed", vErr.Message, vErr.Ref)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrModified):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrAuthorityExceeded), errors.Is(err, shared.ErrBudgetExceeded):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Approval Required", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("purchase request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
