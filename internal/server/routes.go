package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func (s *Server) registerRoutes() {
	if s.app == nil {
		return
	}
	e := s.app

	e.GET("/health", s.handleHealth)
	e.GET("/diag", s.handleDiag)

	e.GET("/users/:id", s.handleGetUser)
	e.GET("/orders", s.handleListOrders)
	e.GET("/orders/:id", s.handleGetOrder)
	e.GET("/copytraders", s.handleListCopyTraders)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDiag(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"endpoint":  s.opts.Config.TonEndpoint,
		"apiKeySet": s.opts.Config.TonAPIKey != "",
	})
}

func (s *Server) handleGetUser(c echo.Context) error {
	userID, err := parseInt64(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id required")
	}
	ctx := c.Request().Context()
	user, err := s.opts.Store.GetUser(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "fetch_failed")
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "not_found")
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleListOrders(c echo.Context) error {
	userID, err := parseInt64(c.QueryParam("user_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}
	ctx := c.Request().Context()
	rows, err := s.opts.Store.ListOrders(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "fetch_failed")
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) handleGetOrder(c echo.Context) error {
	orderID := strings.TrimSpace(c.Param("id"))
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id required")
	}
	ctx := c.Request().Context()
	order, err := s.opts.Store.GetOrder(ctx, orderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "fetch_failed")
	}
	if order == nil {
		return echo.NewHTTPError(http.StatusNotFound, "not_found")
	}
	return c.JSON(http.StatusOK, order)
}

func (s *Server) handleListCopyTraders(c echo.Context) error {
	limit := s.opts.Config.LeaderboardLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "bad_limit")
		}
		limit = v
	}
	ctx := c.Request().Context()
	rows, err := s.opts.Store.ListCopyTraders(ctx, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "fetch_failed")
	}
	return c.JSON(http.StatusOK, rows)
}

func parseInt64(value string) (int64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, errors.New("empty")
	}
	return strconv.ParseInt(v, 10, 64)
}
