package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	echoSwagger "github.com/swaggo/echo-swagger"

	"jobtrack/docs"
	"jobtrack/internal/config"
	apperrors "jobtrack/internal/errors"
	"jobtrack/internal/gate"
	"jobtrack/internal/handler"
	"jobtrack/internal/logging"
	"jobtrack/internal/metrics"
	"jobtrack/internal/validation"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.Metrics,
	authGate *gate.Gate,
	authHandler *handler.AuthHandler,
	healthHandler *handler.HealthHandler,
) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validation.New()}
	e.HTTPErrorHandler = ErrorHandler(logger, !cfg.IsProduction())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("10M"))

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", healthHandler.Ready)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	api.GET("/health", healthHandler.Health)

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/request-password-reset", authHandler.RequestPasswordReset)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.POST("/verify-email", authHandler.VerifyEmail)

	// Secured routes (require an auth token). The gate is attached per
	// route so unknown paths under /api/auth still reach the 404 handler.
	requireAuth := authGate.Middleware()
	authGroup.POST("/logout", authHandler.Logout, requireAuth)
	authGroup.GET("/me", authHandler.Me, requireAuth)
	authGroup.PUT("/profile", authHandler.UpdateProfile, requireAuth)
	authGroup.PUT("/change-password", authHandler.ChangePassword, requireAuth)
	authGroup.POST("/send-verification-email", authHandler.SendVerificationEmail, requireAuth)
	authGroup.POST("/refresh", authHandler.Refresh, requireAuth)
	authGroup.GET("/validate", authHandler.Validate, requireAuth)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface. Failures are returned as
// *errors.ValidationError.
func (cv *CustomValidator) Validate(i interface{}) error {
	return validation.Translate(cv.validator.Struct(i))
}

// ErrorHandler renders every error as a response envelope. Server errors are
// logged; their detail reaches the client only when exposeInternal is set.
func ErrorHandler(logger *slog.Logger, exposeInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := toHTTPError(err, c, exposeInternal)
		if httpErr.StatusCode >= http.StatusInternalServerError {
			logging.LogError(logger, "request failed", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.StatusCode)
		} else {
			err = c.JSON(httpErr.StatusCode, httpErr.ToEnvelope())
		}
		if err != nil {
			logging.LogError(logger, "write error response", err)
		}
	}
}

func toHTTPError(err error, c echo.Context, exposeInternal bool) *apperrors.HTTPError {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return apperrors.MapErrorToHTTP(err, exposeInternal)
	}

	if he.Code == http.StatusNotFound {
		return apperrors.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("Route %s not found", c.Request().RequestURI), "NOT_FOUND")
	}

	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	if he.Code >= http.StatusInternalServerError && !exposeInternal {
		msg = "internal server error"
	}
	return apperrors.NewHTTPError(he.Code, msg, "HTTP_ERROR")
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
