package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang-invest-advisor/internal/advisor/dto"
	"golang-invest-advisor/internal/advisor/service"
	"golang-invest-advisor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdvisorHandler handles HTTP requests for the advisory pipeline.
type AdvisorHandler struct {
	advisorService service.AdvisorService
	logger         *logger.Logger
}

// NewAdvisorHandler creates a new AdvisorHandler.
func NewAdvisorHandler(advisorService service.AdvisorService, logger *logger.Logger) *AdvisorHandler {
	return &AdvisorHandler{advisorService: advisorService, logger: logger}
}

// RegisterRoutes registers the advisor routes to the Echo group.
func (h *AdvisorHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/risk/:ticker", h.GetRisk)
	g.GET("/signals/:ticker", h.GetSignals)
	g.POST("/signals/:ticker/refresh", h.RefreshSignals)
	g.GET("/research/:ticker", h.GetResearch)
	g.POST("/recommendations", h.Recommend)
}

// GetRisk returns the current risk analysis for a ticker.
func (h *AdvisorHandler) GetRisk(c echo.Context) error {
	ticker := normalizeTicker(c.Param("ticker"))
	if ticker == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticker is required"})
	}

	analysis, err := h.advisorService.GetRisk(c.Request().Context(), ticker)
	if err != nil {
		var incomplete *dto.IncompleteSnapshotError
		if errors.As(err, &incomplete) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to compute risk", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to compute risk"})
	}

	return c.JSON(http.StatusOK, analysis)
}

// GetSignals returns the stored signals and aggregate score for a ticker. The
// optional window query parameter is a Go duration (e.g. "72h").
func (h *AdvisorHandler) GetSignals(c echo.Context) error {
	ticker := normalizeTicker(c.Param("ticker"))
	if ticker == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticker is required"})
	}

	var window time.Duration
	if raw := c.QueryParam("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid window duration"})
		}
		window = parsed
	}

	readout, err := h.advisorService.GetSignals(c.Request().Context(), ticker, window)
	if err != nil {
		h.logger.Error("Failed to read signals", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to read signals"})
	}

	return c.JSON(http.StatusOK, readout)
}

// RefreshSignals pulls and classifies fresh provider events for a ticker.
func (h *AdvisorHandler) RefreshSignals(c echo.Context) error {
	ticker := normalizeTicker(c.Param("ticker"))
	if ticker == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticker is required"})
	}

	count, err := h.advisorService.RefreshSignals(c.Request().Context(), ticker)
	if err != nil {
		var ingestion *dto.SignalIngestionError
		if errors.As(err, &ingestion) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to refresh signals", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to refresh signals"})
	}

	return c.JSON(http.StatusOK, echo.Map{"ticker": ticker, "signals_stored": count})
}

// GetResearch returns the current research report for a ticker, generating it
// when stale or when force=true.
func (h *AdvisorHandler) GetResearch(c echo.Context) error {
	ticker := normalizeTicker(c.Param("ticker"))
	if ticker == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticker is required"})
	}
	force := c.QueryParam("force") == "true"

	report, err := h.advisorService.GetResearch(c.Request().Context(), ticker, force)
	if err != nil {
		var missingCtx *dto.MissingContextError
		if errors.As(err, &missingCtx) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to get research", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get research"})
	}

	return c.JSON(http.StatusOK, report)
}

// Recommend runs a ranking for the requesting user.
func (h *AdvisorHandler) Recommend(c echo.Context) error {
	var req dto.RecommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if req.UserID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	for i, ticker := range req.Tickers {
		req.Tickers[i] = normalizeTicker(ticker)
	}

	run, err := h.advisorService.Recommend(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to run recommendation", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to run recommendation"})
	}

	return c.JSON(http.StatusOK, run)
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
