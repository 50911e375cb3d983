package settings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/eventlog"
	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/rbac"
)

// PeriodStatusFunc reports a period's lifecycle status. Wired from the
// periods service so this package does not depend on it.
type PeriodStatusFunc func(ctx context.Context, periodID uuid.UUID) (string, error)

// Recorder is the slice of the event log the handler writes to.
type Recorder interface {
	Record(ctx context.Context, entry eventlog.Entry)
}

// Handler manages period setting endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	periodStatus PeriodStatusFunc
	events       Recorder
	rbac         rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, periodStatus PeriodStatusFunc, events Recorder, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, periodStatus: periodStatus, events: events, rbac: rbac}
}

// MountRoutes registers period setting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermPeriodView))
		r.Get("/{periodId}", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermSettingManage))
		r.Patch("/{periodId}/{key}", h.set)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	list, err := h.service.ListForPeriod(r.Context(), periodID)
	if err != nil {
		h.logger.Error("list period settings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type setRequest struct {
	Value string `json:"value"`
}

// set edits one period override. Overrides freeze along with the period:
// once it leaves OPEN the values that governed assignment must not move.
func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid period id")
		return
	}
	key := chi.URLParam(r, "key")

	status, err := h.periodStatus(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if status != "OPEN" {
		httpx.Problem(w, http.StatusConflict, "conflict", "Conflict", "period settings can only change while the period is open")
		return
	}

	var req setRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation-error", "Validation Failed", "invalid request body")
		return
	}
	setting, err := h.service.SetForPeriod(r.Context(), key, periodID, req.Value)
	if err != nil {
		h.logger.Error("set period setting", slog.String("key", key), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.events.Record(r.Context(), eventlog.Entry{
		Type:    eventlog.TypeSetting,
		Message: "Setting " + key + " changed for period " + periodID.String(),
	})
	httpx.JSON(w, http.StatusOK, setting)
}
