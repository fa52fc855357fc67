package terminology

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	mapper *Mapper
}

func NewHandler(mapper *Mapper) *Handler {
	return &Handler{mapper: mapper}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/terms", h.MappingTable)
	api.GET("/terms/normalize", h.Normalize)
	api.GET("/terms/suggest", h.Suggest)
	api.POST("/terms", h.AddMapping)
	api.POST("/terms/normalize-text", h.NormalizeText)
}

func (h *Handler) MappingTable(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mapper.MappingTable())
}

func (h *Handler) Normalize(c echo.Context) error {
	term := c.QueryParam("term")
	if term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "term is required")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"term":       term,
		"normalized": h.mapper.Normalize(term),
	})
}

func (h *Handler) Suggest(c echo.Context) error {
	term := c.QueryParam("term")
	if term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "term is required")
	}
	max, _ := strconv.Atoi(c.QueryParam("max"))
	return c.JSON(http.StatusOK, h.mapper.Suggest(term, max))
}

type addMappingRequest struct {
	Alias    string `json:"alias"`
	Standard string `json:"standard"`
}

func (h *Handler) AddMapping(c echo.Context) error {
	var req addMappingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Alias == "" || req.Standard == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "alias and standard are required")
	}
	if !h.mapper.AddMapping(req.Alias, req.Standard) {
		return echo.NewHTTPError(http.StatusConflict, "alias already mapped")
	}
	return c.JSON(http.StatusCreated, req)
}

type normalizeTextRequest struct {
	Text string `json:"text"`
}

func (h *Handler) NormalizeText(c echo.Context) error {
	var req normalizeTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	normalized, replacements := h.mapper.NormalizeText(req.Text)
	if replacements == nil {
		replacements = []Replacement{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"text":         req.Text,
		"normalized":   normalized,
		"replacements": replacements,
	})
}
