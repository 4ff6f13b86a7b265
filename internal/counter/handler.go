package counter

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"thinblog/internal/logger"
)

const maxPathLen = 2048

type Handler struct {
	store   *Store
	limiter *rateLimiter
	log     *slog.Logger
}

// NewHandler serves the counter. Recording is limited to 60 hits per IP per
// minute.
func NewHandler(store *Store, log *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		limiter: newRateLimiter(60, time.Minute),
		log:     logger.OrDiscard(log).With("component", "counter"),
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.POST("/count", h.Collect)
	e.GET("/counter/*", h.Counter)
}

type collectRequest struct {
	Path string `json:"path"`
}

// counterResponse mirrors the hosted counter format: numbers as strings.
type counterResponse struct {
	Count       string `json:"count"`
	CountUnique string `json:"count_unique"`
}

func (h *Handler) Collect(c echo.Context) error {
	if !h.limiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req collectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Path) == "" || len(req.Path) > maxPathLen {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid path"})
	}

	visitor := h.store.VisitorID(c.RealIP(), c.Request().UserAgent())
	if err := h.store.Record(c.Request().Context(), req.Path, visitor); err != nil {
		h.log.ErrorContext(c.Request().Context(), "failed to record hit", "path", req.Path, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Counter answers GET /counter/<path>.json. A path never seen answers 404
// with zero counts.
func (h *Handler) Counter(c echo.Context) error {
	raw := c.Param("*")
	if p, err := url.PathUnescape(raw); err == nil {
		raw = p
	}
	path, ok := strings.CutSuffix(raw, ".json")
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	total, unique, err := h.store.Count(c.Request().Context(), path)
	if err != nil {
		h.log.ErrorContext(c.Request().Context(), "failed to count hits", "path", path, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	resp := counterResponse{
		Count:       strconv.FormatInt(total, 10),
		CountUnique: strconv.FormatInt(unique, 10),
	}
	if total == 0 {
		return c.JSON(http.StatusNotFound, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
