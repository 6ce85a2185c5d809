package sku

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocktrack/stocktrack/internal/platform/httpx"
)

// Handler wires HTTP endpoints for SKU generation.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	admin     func(http.Handler) http.Handler
}

// NewHandler constructs the SKU handler.
func NewHandler(logger *slog.Logger, service *Service, adminOnly func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), admin: adminOnly}
}

// MountRoutes registers SKU routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.peek)
	r.Group(func(r chi.Router) {
		r.Use(h.admin)
		r.Post("/next", h.next)
		r.Put("/prefix", h.setPrefix)
	})
}

func (h *Handler) peek(w http.ResponseWriter, r *http.Request) {
	counter, err := h.service.Peek(r.Context())
	if err != nil {
		h.logger.Error("peek sku counter", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"prefix": counter.Prefix, "value": counter.Value})
}

func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.Next(r.Context())
	if err != nil {
		h.logger.Error("next sku", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"sku": code})
}

type prefixRequest struct {
	Prefix string `json:"prefix" validate:"required"`
}

func (h *Handler) setPrefix(w http.ResponseWriter, r *http.Request) {
	var req prefixRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetPrefix(r.Context(), req.Prefix); err != nil {
		if errors.Is(err, ErrPrefixRequired) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("set sku prefix", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
