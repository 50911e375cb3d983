package periods

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/rbac"
	"github.com/praisehq/praise/internal/shared"
)

// Handler manages period endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	exporter  *Exporter
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, exporter *Exporter, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, exporter: exporter, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodView))
		r.Get("/", h.list)
		r.Get("/{id}", h.details)
		r.Get("/{id}/praise", h.praises)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPraiseQuantify))
		r.Get("/{id}/praise/quantifier/{quantifierId}", h.quantifierPraises)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodUpdate))
		r.Patch("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodAssign))
		r.Get("/{id}/verifyQuantifierPoolSize", h.verifyPoolSize)
		r.Patch("/{id}/assignQuantifiers", h.assignQuantifiers)
		r.Patch("/{id}/replaceQuantifier", h.replaceQuantifier)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodClose))
		r.Patch("/{id}/close", h.close)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodExport))
		r.Get("/{id}/export", h.exportFull)
		r.Get("/{id}/exportSummary", h.exportSummary)
	})
}

func periodID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

type listResponse struct {
	Periods    []Period          `json:"docs"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	periods, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Periods: periods, Pagination: pagination})
}

func (h *Handler) details(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	details, err := h.service.Details(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("create period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid request body")
		return
	}
	p, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) praises(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	var receiverID *uuid.UUID
	if raw := r.URL.Query().Get("receiver"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid receiver id")
			return
		}
		receiverID = &parsed
	}
	items, err := h.service.Praises(r.Context(), id, receiverID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) quantifierPraises(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	quantifierID, err := uuid.Parse(chi.URLParam(r, "quantifierId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid quantifier id")
		return
	}
	items, err := h.service.QuantifierPraises(r.Context(), id, quantifierID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) verifyPoolSize(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	verification, err := h.service.VerifyQuantifierPoolSize(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, verification)
}

func (h *Handler) assignQuantifiers(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	details, err := h.service.AssignQuantifiers(r.Context(), id)
	if err != nil {
		h.logger.Warn("assign quantifiers", slog.String("period", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func (h *Handler) replaceQuantifier(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	var in ReplaceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", err.Error())
		return
	}
	result, err := h.service.ReplaceQuantifier(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("replace quantifier", slog.String("period", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	p, err := h.service.Close(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) exportFull(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "praise-period.csv", h.exporter.Full)
}

func (h *Handler) exportSummary(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "praise-period-summary.csv", h.exporter.Summary)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, filename string, write func(ctx context.Context, w io.Writer, id uuid.UUID) error) {
	id, err := periodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	var buf bytes.Buffer
	if err := write(r.Context(), &buf, id); err != nil {
		h.logger.Error("export period", slog.String("period", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
