package availability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newHandlerTest(repo OverrideRepository, counter BookingCounter) (*echo.Echo, *Handler) {
	e := echo.New()
	return e, NewHandler(newTestService(repo, counter))
}

func TestGetAvailabilityRequiresProvider(t *testing.T) {
	e, h := newHandlerTest(newMockOverrideRepo(), &mockCounter{})

	req := httptest.NewRequest(http.MethodGet, "/availability", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetAvailability(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetAvailabilityRange(t *testing.T) {
	repo := newMockOverrideRepo()
	repo.docs["prov-1"] = &Override{
		ProviderID:           "prov-1",
		BlockedDates:         []string{"2026-03-03"},
		DailyCapacity:        map[string]int{},
		SlotCapacity:         map[string]map[string]int{},
		DefaultDailyCapacity: 10,
	}
	e, h := newHandlerTest(repo, &mockCounter{byDay: map[string]int{"2026-03-02": 9}})

	req := httptest.NewRequest(http.MethodGet, "/availability?provider_id=prov-1&from=2026-03-02&to=2026-03-03", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetAvailability(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp AvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ProviderID != "prov-1" {
		t.Errorf("expected provider prov-1, got %s", resp.ProviderID)
	}
	if len(resp.SlotTimes) != 16 {
		t.Errorf("expected 16 slot times, got %d", len(resp.SlotTimes))
	}
	if len(resp.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(resp.Days))
	}
	if resp.Days[0].Status != StatusLimited || resp.Days[0].Remaining != 1 {
		t.Errorf("expected limited day with remaining 1, got %+v", resp.Days[0])
	}
	if resp.Days[1].Status != StatusUnavailable {
		t.Errorf("expected unavailable day, got %+v", resp.Days[1])
	}
}

func TestGetAvailabilityBadRange(t *testing.T) {
	e, h := newHandlerTest(newMockOverrideRepo(), &mockCounter{})

	req := httptest.NewRequest(http.MethodGet, "/availability?provider_id=prov-1&from=yesterday&to=2026-03-03", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetAvailability(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %v", err)
	}
}

func TestSetOverrideDayPatch(t *testing.T) {
	repo := newMockOverrideRepo()
	e, h := newHandlerTest(repo, &mockCounter{})

	body := `{"provider_id":"prov-1","day":{"date":"2026-03-02","is_available":false}}`
	req := httptest.NewRequest(http.MethodPut, "/availability/override", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SetOverride(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	stored := repo.docs["prov-1"]
	if stored == nil || !stored.IsBlocked("2026-03-02") {
		t.Errorf("expected stored override with blocked date, got %+v", stored)
	}
}

func TestSetOverrideExactlyOneEdit(t *testing.T) {
	e, h := newHandlerTest(newMockOverrideRepo(), &mockCounter{})

	for _, body := range []string{
		`{"provider_id":"prov-1"}`,
		`{"provider_id":"prov-1","day":{"date":"2026-03-02"},"bulk":{"blocked_dates":[]}}`,
	} {
		req := httptest.NewRequest(http.MethodPut, "/availability/override", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := h.SetOverride(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %v", body, err)
		}
	}
}

func TestSetOverrideValidationMapsTo400(t *testing.T) {
	e, h := newHandlerTest(newMockOverrideRepo(), &mockCounter{})

	body := `{"provider_id":"prov-1","day":{"date":"03/02/2026","is_available":true}}`
	req := httptest.NewRequest(http.MethodPut, "/availability/override", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SetOverride(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %v", err)
	}
}
