package praise

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/rbac"
	"github.com/praisehq/praise/internal/shared"
)

// Handler manages praise endpoints.
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

// MountRoutes registers praise routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPraiseGive))
		r.Post("/", h.give)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodView))
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPraiseQuantify))
		r.Patch("/{id}/quantify", h.quantify)
	})
}

func (h *Handler) give(w http.ResponseWriter, r *http.Request) {
	var in GiveInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", err.Error())
		return
	}
	if in.ForwarderID != nil {
		identity := shared.IdentityFromContext(r.Context())
		if !identity.Can(rbac.PermPraiseForward) {
			httpx.Problem(w, http.StatusForbidden, "forbidden", "Forbidden", "forwarding praise requires the forwarder role")
			return
		}
	}
	p, err := h.service.Give(r.Context(), in)
	if err != nil {
		h.logger.Error("give praise", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid praise id")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) quantify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid praise id")
		return
	}
	var in QuantifyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid request body")
		return
	}
	if in.Score == nil && in.Dismissed == nil && in.DuplicatePraise == nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "one of score, dismissed or duplicatePraise is required")
		return
	}
	p, err := h.service.Quantify(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("quantify praise", slog.String("praise", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
