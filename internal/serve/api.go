package serve

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"thinblog/internal/domain/content"
	"thinblog/internal/index"
)

type pageItem struct {
	Slug         string    `json:"slug"`
	AnalyticsKey string    `json:"analyticsKey"`
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	Tags         []string  `json:"tags,omitempty"`
	Description  string    `json:"description,omitempty"`
	Draft        bool      `json:"draft,omitempty"`
}

type pagesResponse struct {
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Total int        `json:"total"`
	Items []pageItem `json:"items"`
}

// handlePages lists indexed pages, newest first: /api/pages?page=&size=&tag=
func (s *Server) handlePages(c echo.Context) error {
	opt := index.ListOptions{
		Page:   atoiOr(c.QueryParam("page"), 1),
		Size:   atoiOr(c.QueryParam("size"), 20),
		Newest: true,
	}

	var (
		metas []content.ArticleMeta
		err   error
	)
	if tag := c.QueryParam("tag"); tag != "" {
		metas, err = s.idx.ListByTag(tag, opt)
	} else {
		metas, err = s.idx.List(opt)
	}
	if err != nil {
		s.log.ErrorContext(c.Request().Context(), "pages query failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	items := make([]pageItem, 0, len(metas))
	for _, m := range metas {
		items = append(items, pageItem{
			Slug:         m.Slug,
			AnalyticsKey: m.AnalyticsKey,
			Title:        m.Title,
			Date:         m.Date,
			Tags:         m.Tags,
			Description:  m.Description,
			Draft:        m.Draft,
		})
	}
	total, err := s.idx.Count()
	if err != nil {
		s.log.WarnContext(c.Request().Context(), "page count failed", "err", err)
	}
	return c.JSON(http.StatusOK, pagesResponse{Page: opt.Page, Size: opt.Size, Total: total, Items: items})
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) handleSSE(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := make(chan string, 8)

	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseConns, ch)
		s.sseMu.Unlock()
	}()

	fmt.Fprintf(w, "data: %s\n\n", "hello")
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			w.Flush()
		}
	}
}

func (s *Server) broadcastSSE(msg string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- msg:
		default:
		}
	}
}
