package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ton-trading-bot/internal/config"
	"github.com/ton-trading-bot/internal/database"
)

// Store captures the read-only gateway operations the HTTP layer serves.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*database.User, error)
	ListOrders(ctx context.Context, userID int64) ([]database.Order, error)
	GetOrder(ctx context.Context, orderID string) (*database.Order, error)
	ListCopyTraders(ctx context.Context, limit int) ([]database.CopyTrader, error)
}

// Options configures the HTTP server instance.
type Options struct {
	Config config.Config
	Store  Store
}

// Server wires Echo with the application dependencies. The API is a
// read-only companion to the chat interface; all mutations go through
// the bot.
type Server struct {
	opts Options
	app  *echo.Echo
}

// New creates a new Server instance.
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		opts: opts,
		app:  e,
	}
	s.registerRoutes()
	return s
}

// Start launches the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.Config.HTTPHost, s.opts.Config.HTTPPort)

	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()

	err := s.app.Start(addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	return s.app.Shutdown(ctx)
}
