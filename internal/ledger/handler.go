package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocktrack/stocktrack/internal/platform/httpx"
	"github.com/stocktrack/stocktrack/internal/shared"
)

// Handler wires HTTP endpoints for the serial number ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	admin     func(http.Handler) http.Handler
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service, adminOnly func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), admin: adminOnly}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{id}/serials", h.listByProduct)
	r.Get("/products/{id}/serials/available", h.listAvailable)
	r.Get("/products/{id}/serials/overview", h.overview)
	r.Get("/serials/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.admin)
		r.Post("/serials", h.create)
		r.Post("/serials/bulk", h.bulkCreate)
		r.Put("/serials/{id}/status", h.updateStatus)
		r.Delete("/serials/{id}", h.delete)
	})
}

type createRequest struct {
	Serial     string `json:"serial" validate:"required"`
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	Status     string `json:"status"`
	LocationID *int64 `json:"location_id"`
	Notes      string `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{Serial: req.Serial, ProductID: req.ProductID, Status: Status(req.Status), LocationID: req.LocationID, Notes: req.Notes}, actorID(r))
	if err != nil {
		h.respondError(w, "create serial", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type bulkCreateRequest struct {
	Serials    []string `json:"serials" validate:"required,min=1"`
	ProductID  int64    `json:"product_id" validate:"required,gt=0"`
	Status     string   `json:"status"`
	LocationID *int64   `json:"location_id"`
}

func (h *Handler) bulkCreate(w http.ResponseWriter, r *http.Request) {
	var req bulkCreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.BulkCreate(r.Context(), BulkCreateInput{ProductID: req.ProductID, Serials: req.Serials, Status: Status(req.Status), LocationID: req.LocationID}, actorID(r))
	if err != nil {
		h.respondError(w, "bulk create serials", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type updateStatusRequest struct {
	Status     string  `json:"status" validate:"required"`
	LocationID *int64  `json:"location_id"`
	Notes      *string `json:"notes"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.UpdateStatus(r.Context(), id, UpdateStatusInput{Status: Status(req.Status), LocationID: req.LocationID, Notes: req.Notes}, actorID(r))
	if err != nil {
		h.respondError(w, "update serial status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	sn, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get serial", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sn)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID(r)); err != nil {
		h.respondError(w, "delete serial", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listByProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	serials, err := h.service.ListByProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, "list serials", err)
		return
	}
	httpx.JSON(w, http.StatusOK, serials)
}

func (h *Handler) listAvailable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	serials, err := h.service.ListAvailable(r.Context(), id)
	if err != nil {
		h.respondError(w, "list available serials", err)
		return
	}
	httpx.JSON(w, http.StatusOK, serials)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	overview, err := h.service.ProductOverview(r.Context(), id)
	if err != nil {
		h.respondError(w, "serial overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBatchTooLarge):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicateSerial):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func actorID(r *http.Request) int64 {
	id, _ := shared.IdentityFromContext(r.Context())
	return id.UserID
}
