package knowledge

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/guidelines", h.ListGuidelines)
	api.POST("/guidelines", h.AddGuideline)
	api.GET("/guidelines/timeliness", h.ValidateTimeliness)
	api.GET("/knowledge/search", h.Search)
}

func (h *Handler) ListGuidelines(c echo.Context) error {
	filter := ListFilter{
		DiseaseType:  c.QueryParam("disease_type"),
		UpdatedAfter: c.QueryParam("updated_after"),
	}
	items, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"total": len(items), "guidelines": items})
}

type addGuidelineRequest struct {
	GuidelineName         string  `json:"guideline_name"`
	DiseaseType           string  `json:"disease_type"`
	PatientCondition      *string `json:"patient_condition"`
	RecommendationLevel   string  `json:"recommendation_level"`
	RecommendationContent string  `json:"recommendation_content"`
	EvidenceSource        *string `json:"evidence_source"`
}

func (h *Handler) AddGuideline(c echo.Context) error {
	var req addGuidelineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.GuidelineName == "" || req.RecommendationContent == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "guideline_name and recommendation_content are required")
	}
	g := &Guideline{
		GuidelineName:         req.GuidelineName,
		DiseaseType:           req.DiseaseType,
		PatientCondition:      req.PatientCondition,
		RecommendationLevel:   req.RecommendationLevel,
		RecommendationContent: req.RecommendationContent,
		EvidenceSource:        req.EvidenceSource,
		IsActive:              true,
	}
	if err := h.svc.Add(c.Request().Context(), g); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) ValidateTimeliness(c echo.Context) error {
	after := c.QueryParam("updated_after")
	if after == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "updated_after is required")
	}
	items, err := h.svc.ValidateTimeliness(c.Request().Context(), after)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"updated_after": after,
		"is_current":    len(items) > 0,
		"total":         len(items),
		"guidelines":    items,
	})
}

func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	topK := 0
	if raw := c.QueryParam("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid top_k")
		}
		topK = n
	}
	result, err := h.svc.Search(c.Request().Context(), query, topK)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
