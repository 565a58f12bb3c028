package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"guardian/pkg/channel"
	"guardian/pkg/config"
	"guardian/pkg/registry"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRouteTestApp(t *testing.T) (*fiber.App, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	svc, err := NewService(config.Default(), nil, reg, []channel.Adapter{&scriptedAdapter{name: "web"}}, slog.Default())
	require.NoError(t, err)

	return svc.App(), reg
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func TestHealthzReportsStatus(t *testing.T) {
	app, _ := newRouteTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var status statusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	require.Equal(t, "ok", status.Status)
	require.Equal(t, 10, status.Rules)
	require.Contains(t, status.Channels, "web")
}

func TestReadyzBeforeChannelsRun(t *testing.T) {
	app, _ := newRouteTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAdminListings(t *testing.T) {
	app, reg := newRouteTestApp(t)

	for path, want := range map[string]int{
		"/api/v1/admin/zones":     len(reg.Zones()),
		"/api/v1/admin/alerts":    len(reg.Alerts()),
		"/api/v1/admin/incidents": len(reg.Incidents()),
		"/api/v1/admin/sos":       len(reg.SOSAlerts()),
		"/api/v1/admin/donations": len(reg.Donations()),
		"/api/v1/admin/seva":      len(reg.SevaRequests()),
		"/api/v1/admin/bins":      len(reg.Bins()),
	} {
		resp, body := doJSON(t, app, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var items []json.RawMessage
		require.NoError(t, json.Unmarshal(body, &items), path)
		require.Len(t, items, want, path)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/admin/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary registry.Summary
	require.NoError(t, json.Unmarshal(body, &summary))
	require.Equal(t, reg.Summary(), summary)
}

func TestReportIncidentRoute(t *testing.T) {
	app, reg := newRouteTestApp(t)
	before := len(reg.Incidents())

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/incidents", `{
		"type": "medical",
		"description": "Pilgrim fainted near the ghat",
		"location": {"lat": 22.72, "lng": 75.85},
		"location_name": "Main Ghat",
		"images": ["a.jpg"],
		"reporter_name": "Ravi",
		"reporter_phone": "+91-9000000000"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var incident registry.Incident
	require.NoError(t, json.Unmarshal(body, &incident))
	require.Equal(t, registry.IncidentPending, incident.Status)
	require.Len(t, reg.Incidents(), before+1)
	require.Equal(t, incident.ID, reg.Incidents()[0].ID)
}

func TestReportIncidentRouteRejectsInvalidInput(t *testing.T) {
	app, _ := newRouteTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/incidents", `{
		"type": "medical",
		"description": "x",
		"location": {"lat": 22.72, "lng": 75.85},
		"location_name": "Main Ghat",
		"images": ["1", "2", "3", "4"],
		"reporter_name": "Ravi",
		"reporter_phone": "1"
	}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Contains(t, payload.Fields, "images:max")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/incidents", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateIncidentStatusRoute(t *testing.T) {
	app, _ := newRouteTestApp(t)

	resp, body := doJSON(t, app, http.MethodPatch, "/api/v1/admin/incidents/1", `{"status":"resolved"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var incident registry.Incident
	require.NoError(t, json.Unmarshal(body, &incident))
	require.Equal(t, registry.IncidentResolved, incident.Status)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/admin/incidents/1", `{"status":"closed"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/admin/incidents/missing", `{"status":"resolved"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEmergencyRoutes(t *testing.T) {
	app, reg := newRouteTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/emergency/lookup", `{"code":"band://`+registry.DemoBandID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile registry.Profile
	require.NoError(t, json.Unmarshal(body, &profile))
	require.Equal(t, "Amit Patel", profile.Name)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/emergency/lookup", `{"code":"unknown"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/emergency/lookup", `{"code":"  "}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/emergency/sos", `{"user_id":"`+registry.DemoBandID+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var alert registry.SOSAlert
	require.NoError(t, json.Unmarshal(body, &alert))
	require.Equal(t, registry.SOSActive, alert.Status)
	require.Equal(t, defaultSOSLocation, alert.Location)
	require.Equal(t, alert.ID, reg.SOSAlerts()[0].ID)

	resp, body = doJSON(t, app, http.MethodPatch, "/api/v1/admin/sos/"+alert.ID, `{"status":"responded"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &alert))
	require.Equal(t, registry.SOSResponded, alert.Status)
}

func TestDonationAndSevaRoutes(t *testing.T) {
	app, reg := newRouteTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/donations", `{"donor_name":"Asha","amount":251,"mobile_number":"+91-9","purpose":"food"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.Equal(t, "Asha", reg.Donations()[0].DonorName)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/donations", `{"donor_name":"Asha","amount":0,"mobile_number":"+91-9","purpose":"food"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/seva", `{"type":"volunteer","requester_name":"Dev","mobile_number":"+91-8","description":"Evening shift"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var seva registry.SevaRequest
	require.NoError(t, json.Unmarshal(body, &seva))
	require.Equal(t, "pending", seva.Status)
}
