package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dylantneal/eng.com-sub003/internal/auth"
	"github.com/dylantneal/eng.com-sub003/internal/feed"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// feed обслуживает GET /feed?filter=&cursor=&cursorTiebreak=
func (s *Server) feed(c *gin.Context) {
	ctx := c.Request.Context()
	req := feed.Request{
		Filter:   c.Query("filter"),
		ViewerID: auth.ViewerID(ctx),
		Cursor:   c.Query("cursor"),
		Tiebreak: c.Query("cursorTiebreak"),
	}
	filter := feed.ParseFilter(req.Filter)
	key := cacheKey(filter, req)

	cacheControl := fmt.Sprintf("public, max-age=%d", int(s.cfg.Feed.CacheTTL.Seconds()))
	if filter.Personal() {
		cacheControl = fmt.Sprintf("private, max-age=%d", int(s.cfg.Feed.CacheTTL.Seconds()))
	}

	body, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).Warn("feed cache read failed")
	}
	if hit {
		c.Header("X-Cache", "HIT")
		c.Header("Cache-Control", cacheControl)
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	page, err := s.paginator.Page(ctx, req)
	if err != nil {
		s.fail(c, err)
		return
	}

	body, err = json.Marshal(page)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.cache.Set(ctx, key, body, s.cfg.Feed.CacheTTL); err != nil {
		s.log.WithError(err).Warn("feed cache write failed")
	}

	c.Header("X-Cache", "MISS")
	c.Header("Cache-Control", cacheControl)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feed.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_filter", Message: err.Error()})
	case errors.Is(err, feed.ErrMalformedCursor):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed_cursor", Message: err.Error()})
	default:
		s.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("failed to load feed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal", Message: "failed to load feed"})
	}
}

// cacheKey: общие ленты не зависят от пользователя и кэшируются одной записью
func cacheKey(filter feed.Filter, req feed.Request) string {
	viewer := ""
	if filter.Personal() {
		viewer = req.ViewerID
	}
	return strings.Join([]string{"feed", string(filter), viewer, req.Cursor, req.Tiebreak}, "|")
}
