package availability

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Handler exposes the availability endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the availability endpoints on the API group. Reads
// are open to any authenticated caller; override edits require worker or
// provider access.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/availability", h.GetAvailability)
	g.GET("/availability/override", h.GetOverride)
	g.PUT("/availability/override", h.SetOverride, auth.RequireRole("worker", "provider"))
}

// defaultRangeDays is the window returned when the caller omits from/to.
const defaultRangeDays = 14

// AvailabilityResponse is the resolved calendar for one provider.
type AvailabilityResponse struct {
	ProviderID   string            `json:"provider_id"`
	WorkingHours WorkingHours      `json:"working_hours"`
	SlotTimes    []string          `json:"slot_times"`
	Days         []DayAvailability `json:"days"`
}

// GetAvailability resolves day-level availability over a date range.
// GET /availability?provider_id=...&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetAvailability(c echo.Context) error {
	providerID := c.QueryParam("provider_id")
	if providerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider_id is required")
	}

	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" && to == "" {
		today := time.Now().UTC()
		from = today.Format(DateLayout)
		to = today.AddDate(0, 0, defaultRangeDays-1).Format(DateLayout)
	}

	days, err := h.svc.Resolve(c.Request().Context(), providerID, from, to)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{
		ProviderID:   providerID,
		WorkingHours: h.svc.Hours(),
		SlotTimes:    h.svc.Hours().SlotTimes(),
		Days:         days,
	})
}

// GetOverride returns the provider's stored override document, defaults
// included when nothing has been saved yet.
func (h *Handler) GetOverride(c echo.Context) error {
	providerID := c.QueryParam("provider_id")
	if providerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider_id is required")
	}
	o, err := h.svc.GetOverride(c.Request().Context(), providerID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, o)
}

// OverrideRequest carries exactly one kind of edit: a single-date patch or a
// bulk replacement.
type OverrideRequest struct {
	ProviderID string     `json:"provider_id"`
	Day        *DayPatch  `json:"day,omitempty"`
	Bulk       *BulkPatch `json:"bulk,omitempty"`
}

// SetOverride applies an override edit and returns the updated document.
// PUT /availability/override
func (h *Handler) SetOverride(c echo.Context) error {
	var req OverrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProviderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider_id is required")
	}
	if (req.Day == nil) == (req.Bulk == nil) {
		return echo.NewHTTPError(http.StatusBadRequest, "exactly one of day or bulk must be set")
	}

	var (
		o   *Override
		err error
	)
	if req.Day != nil {
		o, err = h.svc.ApplyDayPatch(c.Request().Context(), req.ProviderID, *req.Day)
	} else {
		o, err = h.svc.ApplyBulkPatch(c.Request().Context(), req.ProviderID, *req.Bulk)
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func mapError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
