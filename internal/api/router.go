package api

import (
	"net/http"

	"subtrack/internal/api/handlers"
	"subtrack/pkg/config"
	"subtrack/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"
)

func SetupRouter(
	statementHandler *handlers.StatementHandler,
	cfg *config.Config,
	appLogger *zap.Logger,
) *fiber.App {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    cfg.Upload.MaxSizeMB * 1024 * 1024,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			appLogger.Error("Request failed", zap.Int("status", code), zap.Error(err))
			return c.Status(code).Render("error", fiber.Map{
				"Message": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/", statementHandler.Index)
	app.Post("/upload", statementHandler.Upload)
	app.Post("/categorize/:id", statementHandler.Categorize)
	app.Get("/report", statementHandler.Report)

	return app
}
