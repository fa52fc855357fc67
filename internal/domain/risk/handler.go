package risk

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cdss/cdss/internal/domain/patient"
)

type Handler struct {
	patients *patient.Service
	engine   *Engine
}

func NewHandler(patients *patient.Service, engine *Engine) *Handler {
	return &Handler{patients: patients, engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/risk", h.AssessPatient)
	api.POST("/risk/assess", h.AssessProfile)
}

// AssessPatient loads the patient's profile and runs the risk engine on it.
func (h *Handler) AssessPatient(c echo.Context) error {
	profile, err := h.patients.BuildProfile(c.Request().Context(), c.Param("id"))
	if errors.Is(err, patient.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.engine.AssessPatient(profile))
}

// AssessProfile runs the risk engine on a profile supplied in the request
// body, without touching storage.
func (h *Handler) AssessProfile(c echo.Context) error {
	var profile patient.Profile
	if err := c.Bind(&profile); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.engine.AssessPatient(&profile))
}
