// Package httpapi exposes the catalog over HTTP using fiber: registration
// and token endpoints, bearer-protected item management and the legacy
// knife routes kept for existing clients.
package httpapi

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 10 * time.Second

// formOverhead is the body size allowed on top of the photo for the other form fields.
const formOverhead = 1 << 20

type HTTPServer struct {
	address string
	app     *fiber.App
	users   *services.UserService
	items   *services.ItemService
	logger  logging.Logger
}

// NewHTTPServer builds the fiber application with all routes registered.
// maxPhotoSize bounds request bodies.
func NewHTTPServer(address string, l logging.Logger, us *services.UserService, is *services.ItemService, maxPhotoSize int64) *HTTPServer {
	s := &HTTPServer{
		address: address,
		users:   us,
		items:   is,
		logger:  l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "knifecatalog",
		BodyLimit:             int(maxPhotoSize) + formOverhead,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	s.routes()

	return s
}

func (s *HTTPServer) routes() {
	app := s.app
	app.Use(s.requestLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/register", s.register)
	app.Post("/token", s.token)
	app.Post("/token/refresh", s.refresh)
	app.Post("/logout", s.authenticate(false), s.logout)
	app.Get("/me", s.authenticate(false), s.me)

	app.Get("/items", s.listItems)
	app.Get("/items/sku/:sku", s.getItemBySKU)
	app.Get("/items/:id", s.getItem)
	app.Post("/items", s.authenticate(true), s.createItem)
	app.Put("/items/:id", s.authenticate(true), s.updateItem)
	app.Delete("/items/:id", s.authenticate(true), s.deleteItem)

	app.Get("/photos/*", s.photo)

	app.Get("/all_knives", s.legacyListKnives)
	app.Get("/knives_by_article", s.legacyKnifeByArticle)
	app.Post("/add_knives", s.authenticate(true), s.legacyAddKnife)
	app.Put("/edit_knives/:id", s.authenticate(true), s.legacyEditKnife)
	app.Delete("/delete_knives/:id", s.authenticate(true), s.legacyDeleteKnife)
}

// App exposes the underlying fiber application, mainly for app.Test.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.app.Listener(listen); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
