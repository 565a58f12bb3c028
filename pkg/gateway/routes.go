package gateway

import (
	"errors"

	"guardian/pkg/httpserver"
	"guardian/pkg/registry"

	"github.com/gofiber/fiber/v2"
)

// SOS alerts raised without a device fix are pinned to the command post.
var defaultSOSLocation = registry.Coordinates{Lat: 22.7196, Lng: 75.8577}

type statusUpdate struct {
	Status string `json:"status"`
}

type bandLookup struct {
	Code string `json:"code"`
}

type sosRequest struct {
	UserID   string                `json:"user_id"`
	Location *registry.Coordinates `json:"location"`
}

// App builds the status, admin and public form API.
func (s *Service) App() *fiber.App {
	app := httpserver.NewApp("guardian-gateway")
	app.Use(httpserver.RequestID())
	app.Use(httpserver.AccessLog(s.log))

	app.Get("/healthz", s.handleHealth)
	app.Get("/readyz", s.handleReady)

	api := app.Group("/api/v1")

	admin := api.Group("/admin")
	admin.Get("/summary", func(c *fiber.Ctx) error { return c.JSON(s.registry.Summary()) })
	admin.Get("/zones", func(c *fiber.Ctx) error { return c.JSON(s.registry.Zones()) })
	admin.Get("/alerts", func(c *fiber.Ctx) error { return c.JSON(s.registry.Alerts()) })
	admin.Get("/incidents", func(c *fiber.Ctx) error { return c.JSON(s.registry.Incidents()) })
	admin.Get("/sos", func(c *fiber.Ctx) error { return c.JSON(s.registry.SOSAlerts()) })
	admin.Get("/donations", func(c *fiber.Ctx) error { return c.JSON(s.registry.Donations()) })
	admin.Get("/seva", func(c *fiber.Ctx) error { return c.JSON(s.registry.SevaRequests()) })
	admin.Get("/bins", func(c *fiber.Ctx) error { return c.JSON(s.registry.Bins()) })
	admin.Patch("/incidents/:id", s.handleIncidentStatus)
	admin.Patch("/sos/:id", s.handleSOSStatus)

	api.Post("/incidents", s.handleReportIncident)
	api.Post("/donations", s.handleDonate)
	api.Post("/seva", s.handleSeva)
	api.Post("/emergency/lookup", s.handleBandLookup)
	api.Post("/emergency/sos", s.handleRaiseSOS)

	return app
}

func (s *Service) handleIncidentStatus(c *fiber.Ctx) error {
	var req statusUpdate
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	incident, err := s.registry.UpdateIncidentStatus(c.Params("id"), registry.IncidentStatus(req.Status))
	if err != nil {
		return s.respondError(c, err)
	}

	s.log.Info("Incident status updated", "incident_id", incident.ID, "status", incident.Status)
	return c.JSON(incident)
}

func (s *Service) handleSOSStatus(c *fiber.Ctx) error {
	var req statusUpdate
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	alert, err := s.registry.UpdateSOSStatus(c.Params("id"), registry.SOSStatus(req.Status))
	if err != nil {
		return s.respondError(c, err)
	}

	s.log.Info("SOS status updated", "sos_id", alert.ID, "status", alert.Status)
	return c.JSON(alert)
}

func (s *Service) handleReportIncident(c *fiber.Ctx) error {
	var req registry.IncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	incident, err := s.registry.ReportIncident(req)
	if err != nil {
		return s.respondError(c, err)
	}

	s.log.Info("Incident reported", "incident_id", incident.ID, "type", incident.Type)
	return c.Status(fiber.StatusCreated).JSON(incident)
}

func (s *Service) handleDonate(c *fiber.Ctx) error {
	var req registry.DonationRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	donation, err := s.registry.Donate(req)
	if err != nil {
		return s.respondError(c, err)
	}

	s.log.Info("Donation recorded", "donation_id", donation.ID, "purpose", donation.Purpose)
	return c.Status(fiber.StatusCreated).JSON(donation)
}

func (s *Service) handleSeva(c *fiber.Ctx) error {
	var req registry.SevaInput
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	seva, err := s.registry.RequestSeva(req)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(seva)
}

func (s *Service) handleBandLookup(c *fiber.Ctx) error {
	var req bandLookup
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := s.registry.LookupBand(req.Code)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(profile)
}

func (s *Service) handleRaiseSOS(c *fiber.Ctx) error {
	var req sosRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	location := defaultSOSLocation
	if req.Location != nil {
		location = *req.Location
	}

	alert, err := s.registry.RaiseSOS(req.UserID, location)
	if err != nil {
		return s.respondError(c, err)
	}

	s.log.Warn("SOS raised", "sos_id", alert.ID, "user_id", alert.UserID)
	return c.Status(fiber.StatusCreated).JSON(alert)
}

func (s *Service) respondError(c *fiber.Ctx, err error) error {
	var validationErr *registry.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  registry.ErrInvalidInput.Error(),
			"fields": validationErr.Fields,
		})
	case errors.Is(err, registry.ErrInvalidInput):
		return httpserver.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		return httpserver.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrInvalidStatus):
		return httpserver.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("Registry operation failed", "request_id", httpserver.GetRequestID(c), "error", err)
		return httpserver.Error(c, fiber.StatusInternalServerError, "internal error")
	}
}
