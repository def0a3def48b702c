package appointment

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// Handler exposes the appointment endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the appointment endpoints on the API group. Status
// transitions are restricted to clinic workers.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/appointments", h.Reserve)
	g.GET("/appointments", h.List)
	g.GET("/appointments/:id", h.GetByID)
	g.POST("/appointments/:id/status", h.Transition, auth.RequireRole("worker"))
}

// Reserve creates an appointment if the requested slot still has capacity.
// POST /appointments
func (h *Handler) Reserve(c echo.Context) error {
	var in ReserveInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	a, err := h.svc.Reserve(c.Request().Context(), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

// GetByID returns one appointment.
// GET /appointments/:id
func (h *Handler) GetByID(c echo.Context) error {
	a, err := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// List returns appointments for a provider or a patient, paginated.
// GET /appointments?provider_id=... | ?patient_id=...
func (h *Handler) List(c echo.Context) error {
	providerID := c.QueryParam("provider_id")
	patientID := c.QueryParam("patient_id")
	if (providerID == "") == (patientID == "") {
		return echo.NewHTTPError(http.StatusBadRequest, "exactly one of provider_id or patient_id is required")
	}

	params := pagination.FromContext(c)
	var (
		items []Appointment
		total int
		err   error
	)
	if providerID != "" {
		items, total, err = h.svc.ListByProvider(c.Request().Context(), providerID, params)
	} else {
		items, total, err = h.svc.ListByPatient(c.Request().Context(), patientID, params)
	}
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

// TransitionRequest names the target lifecycle state.
type TransitionRequest struct {
	Status string `json:"status"`
}

// Transition applies a lifecycle move and reports the notification outcome.
// POST /appointments/:id/status
func (h *Handler) Transition(c echo.Context) error {
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	target, err := ParseStatus(req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.Transition(c.Request().Context(), c.Param("id"), target)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func mapError(err error) error {
	var (
		ve  *ValidationError
		ave *availability.ValidationError
		ce  *CapacityError
		ite *InvalidTransitionError
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &ave):
		return echo.NewHTTPError(http.StatusBadRequest, ave.Error())
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, ce.Error())
	case errors.As(err, &ite):
		return echo.NewHTTPError(http.StatusConflict, ite.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
