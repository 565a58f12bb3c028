package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

const shutdownTimeout = 5 * time.Second

// NewApp returns a fiber app using json-iterator for bodies and rendering
// every error as {"error": "..."}. Context values are immutable because
// messages built from them are handed to session workers.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		BodyLimit:             1 * 1024 * 1024,
		StrictRouting:         true,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		Immutable:             true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
		ErrorHandler:          errorHandler,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return Error(c, code, err.Error())
}

// Error writes a JSON error body with the given status.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// Serve runs app on addr until ctx ends, then shuts it down gracefully.
func Serve(ctx context.Context, app *fiber.App, addr string, log *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return ServeListener(ctx, app, ln, log)
}

func ServeListener(ctx context.Context, app *fiber.App, ln net.Listener, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listener(ln)
	}()
	log.Info("HTTP server started", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve %s: %w", ln.Addr(), err)
		}
		return nil
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	// Serve may not have picked up the listener yet.
	_ = ln.Close()
	if err := <-errCh; err != nil {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}

	return nil
}
