package diagnosis

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cdss/cdss/internal/domain/patient"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/risk-interpretation", h.AssessRisk)
	api.GET("/patients/:id/drug-conflicts", h.CheckDrugConflicts)
	api.POST("/diagnosis/generate", h.GenerateDiagnosis)
	api.POST("/treatment/generate", h.GenerateTreatmentPlan)
	api.POST("/treatment/adjust", h.AdjustTreatment)
	api.POST("/soap/consult", h.SOAPConsult)
	api.POST("/emergency/process", h.ProcessEmergency)
}

func (h *Handler) AssessRisk(c echo.Context) error {
	result, err := h.svc.AssessRisk(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) CheckDrugConflicts(c echo.Context) error {
	result, err := h.svc.CheckDrugConflicts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GenerateDiagnosis(c echo.Context) error {
	var req DiagnosisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Symptoms == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "symptoms is required")
	}
	result, err := h.svc.GenerateDiagnosis(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GenerateTreatmentPlan(c echo.Context) error {
	var req TreatmentPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.svc.GenerateTreatmentPlan(c.Request().Context(), req)
	if errors.Is(err, ErrNoPatient) {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or profile is required")
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) AdjustTreatment(c echo.Context) error {
	var req AdjustmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID == "" || req.CurrentPlan == "" || req.TreatmentResponse == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id, current_plan and treatment_response are required")
	}
	result, err := h.svc.AdjustTreatment(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) SOAPConsult(c echo.Context) error {
	var req ConsultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ChiefComplaint == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chief_complaint is required")
	}
	result, err := h.svc.SOAPConsult(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ProcessEmergency(c echo.Context) error {
	var req EmergencyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Symptoms == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "symptoms is required")
	}
	result, err := h.svc.ProcessEmergency(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func mapError(err error) error {
	if errors.Is(err, patient.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
