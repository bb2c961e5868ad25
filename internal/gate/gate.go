// Package gate authenticates requests carrying an auth token.
package gate

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"jobtrack/internal/auth"
	apperrors "jobtrack/internal/errors"
	"jobtrack/internal/metrics"
)

const (
	// CookieName is the cookie that carries the auth token.
	CookieName = "token"

	contextKey = "identity"
	// attemptKey marks requests in which a token was found and parsed.
	attemptKey = "gate.attempted"

	bearerPrefix = "Bearer "
)

var errNoBearer = errors.New("no bearer token in request without auth cookie")

// Gate verifies auth tokens on protected routes.
type Gate struct {
	tokens  *auth.JWTService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Gate. m may be nil.
func New(tokens *auth.JWTService, m *metrics.Metrics, logger *slog.Logger) *Gate {
	return &Gate{tokens: tokens, metrics: m, logger: logger}
}

// Middleware returns the echo middleware. A request carrying the auth
// cookie is decided by the cookie alone; the Authorization bearer header
// is read only when the cookie is absent. Requests without a token fail
// with ErrMissingToken, any other failure with ErrUnauthenticated.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:       contextKey,
		TokenLookupFuncs: []middleware.ValuesExtractor{bearerWithoutCookie},
		TokenLookup:      "cookie:" + CookieName,
		ParseTokenFunc:   g.parse,
		SuccessHandler: func(c echo.Context) {
			if id, ok := Identity(c); ok {
				req := c.Request()
				c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
			}
		},
		ErrorHandler: g.fail,
	})
}

// bearerWithoutCookie extracts the bearer token unless the auth cookie is
// present, in which case the cookie extractor has the only say.
func bearerWithoutCookie(c echo.Context) ([]string, error) {
	if _, err := c.Cookie(CookieName); !errors.Is(err, http.ErrNoCookie) {
		return nil, errNoBearer
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return nil, errNoBearer
	}
	return []string{header[len(bearerPrefix):]}, nil
}

func (g *Gate) parse(c echo.Context, token string) (interface{}, error) {
	c.Set(attemptKey, true)
	id, err := g.tokens.VerifyAuthToken(token)
	switch {
	case err == nil:
		g.metrics.ObserveVerification(metrics.ResultValid)
		return id, nil
	case errors.Is(err, auth.ErrExpiredToken):
		g.metrics.ObserveVerification(metrics.ResultExpired)
	default:
		g.metrics.ObserveVerification(metrics.ResultInvalid)
	}
	return nil, err
}

func (g *Gate) fail(c echo.Context, err error) error {
	if attempted, _ := c.Get(attemptKey).(bool); !attempted {
		g.metrics.ObserveVerification(metrics.ResultMissing)
		return apperrors.ErrMissingToken
	}

	g.logger.DebugContext(c.Request().Context(), "auth token rejected",
		"path", c.Path(),
		"reason", err.Error(),
	)
	return apperrors.ErrUnauthenticated
}

// Identity returns the identity the gate attached to c.
func Identity(c echo.Context) (*auth.Identity, bool) {
	id, ok := c.Get(contextKey).(*auth.Identity)
	return id, ok && id != nil
}
