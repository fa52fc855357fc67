package safety

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cdss/cdss/internal/domain/patient"
	"github.com/cdss/cdss/internal/domain/risk"
)

type Handler struct {
	patients *patient.Service
	guard    *Guard
}

func NewHandler(patients *patient.Service, guard *Guard) *Handler {
	return &Handler{patients: patients, guard: guard}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/safety/check", h.Check)
	api.GET("/patients/:id/drug-check", h.CheckPatient)
	api.GET("/patients/:id/safety-report", h.PatientReport)
}

type checkRequest struct {
	Profile         patient.Profile       `json:"profile"`
	Recommendations []risk.Recommendation `json:"recommendations"`
}

// Check runs all safety checks on a profile supplied in the request body.
func (h *Handler) Check(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.guard.CheckAll(&req.Profile, req.Recommendations))
}

// CheckPatient loads a stored patient and runs the safety checks on the
// current medication list.
func (h *Handler) CheckPatient(c echo.Context) error {
	profile, err := h.loadProfile(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.guard.CheckAll(profile, nil))
}

// PatientReport renders the plain-text safety report for a stored patient.
func (h *Handler) PatientReport(c echo.Context) error {
	profile, err := h.loadProfile(c)
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, h.guard.GenerateSafetyReport(profile, nil))
}

func (h *Handler) loadProfile(c echo.Context) (*patient.Profile, error) {
	profile, err := h.patients.BuildProfile(c.Request().Context(), c.Param("id"))
	if errors.Is(err, patient.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return profile, nil
}
