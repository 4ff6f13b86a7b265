package views

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	domainerr "thinblog/internal/domain/errors"
	"thinblog/internal/logger"
)

const Path = "/views"

const maxRequestBody = 1 << 20

type Handler struct {
	resolver *Resolver
	log      *slog.Logger
}

func NewHandler(resolver *Resolver, log *slog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		log:      logger.OrDiscard(log).With("component", "views"),
	}
}

// Register mounts the endpoint for every method; method dispatch happens in
// Views so that rejected methods still get CORS headers and a JSON body.
func (h *Handler) Register(e *echo.Echo) {
	e.Any(Path, h.Views)
}

type requestBody struct {
	Paths []string `json:"paths"`
	Slugs []string `json:"slugs"`
}

type errorBody struct {
	Error string `json:"error"`
}

func setCORS(c echo.Context) {
	hd := c.Response().Header()
	hd.Set("Access-Control-Allow-Origin", "*")
	hd.Set("Access-Control-Allow-Headers", "Content-Type")
	hd.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func (h *Handler) Views(c echo.Context) error {
	setCORS(c)
	req := c.Request()

	switch req.Method {
	case http.MethodOptions:
		return c.NoContent(http.StatusOK)
	case http.MethodGet, http.MethodPost:
	default:
		return h.fail(c, domainerr.ErrMethodNotAllowed)
	}
	if h.resolver.Site() == "" {
		return h.fail(c, domainerr.ErrMissingSite)
	}

	var paths []string
	if req.Method == http.MethodGet {
		if p := c.QueryParam("pathname"); p != "" {
			paths = append(paths, p)
		}
		paths = append(paths, c.QueryParams()["paths"]...)
	} else {
		var body requestBody
		dec := json.NewDecoder(io.LimitReader(req.Body, maxRequestBody))
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return h.fail(c, domainerr.Wrap(err, domainerr.KindBadRequest, domainerr.ErrInvalidBody.Message))
		}
		paths = append(body.Paths, body.Slugs...)
	}

	resp, err := h.resolver.Resolve(req.Context(), paths)
	if err != nil {
		return h.fail(c, err)
	}
	h.resolver.metrics.request(strconv.Itoa(http.StatusOK))
	h.log.DebugContext(req.Context(), "views resolved", "paths", len(resp.Counts))
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := StatusOf(err)
	msg := "Internal server error"
	var de *domainerr.Error
	if errors.As(err, &de) && de.Kind != domainerr.KindInternal {
		msg = de.Message
	}
	if status >= 500 {
		h.log.ErrorContext(c.Request().Context(), "views request failed", "err", err)
	} else {
		h.log.DebugContext(c.Request().Context(), "views request rejected", "status", status, "err", err)
	}
	h.resolver.metrics.request(strconv.Itoa(status))
	return c.JSON(status, errorBody{Error: msg})
}

// StatusOf maps a request error to its HTTP status.
func StatusOf(err error) int {
	switch domainerr.KindOf(err) {
	case domainerr.KindBadRequest:
		return http.StatusBadRequest
	case domainerr.KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
