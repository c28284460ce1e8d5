package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"go.uber.org/zap"

	"github.com/binkeyit/storefront/internal/observability"
	apperrors "github.com/binkeyit/storefront/pkg/util"
)

// MiddlewareConfig tunes the global middleware stack.
type MiddlewareConfig struct {
	RequestTimeout time.Duration
	// AllowOrigin is the browser origin allowed to make credentialed calls.
	// Empty disables CORS handling.
	AllowOrigin string
}

// RegisterMiddlewares attaches global middlewares such as CORS, security
// headers, error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, cfg MiddlewareConfig) {
	if cfg.AllowOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowOrigin,
			AllowCredentials: true,
		}))
	}
	// Opener isolation is relaxed so cross-origin windows keep their opener.
	app.Use(helmet.New(helmet.Config{
		CrossOriginOpenerPolicy: "unsafe-none",
	}))
	if cfg.RequestTimeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.RequestTimeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders every failure as
// {"message", "error": true, "success": false, "code"}. Clients rely on 401
// being used only for credential failures.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				response := fiber.Map{
					"message": domainErr.Message,
					"error":   true,
					"success": false,
					"code":    domainErr.Code,
				}
				if len(domainErr.Details) > 0 {
					response["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				} else if domainErr.HTTPStatus == fiber.StatusUnauthorized {
					logger.Debug("unauthorized", zap.String("path", c.Path()), zap.String("code", domainErr.Code))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}
