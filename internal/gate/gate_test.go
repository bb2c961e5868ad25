package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/internal/auth"
	apperrors "jobtrack/internal/errors"
	"jobtrack/internal/logging"
	"jobtrack/internal/metrics"
)

const secret = "gate-secret"

type fixture struct {
	gate    *Gate
	tokens  *auth.JWTService
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewJWTService(secret, time.Hour)
	require.NoError(t, err)
	m := metrics.New()
	return &fixture{gate: New(tokens, m, logging.Discard()), tokens: tokens, metrics: m}
}

// serve runs req through the gate and returns the identity seen by the
// next handler, both from the echo context and the request context.
func (f *fixture) serve(req *http.Request) (echoID, ctxID *auth.Identity, err error) {
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	next := func(c echo.Context) error {
		echoID, _ = Identity(c)
		ctxID, _ = auth.IdentityFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}
	err = f.gate.Middleware()(next)(c)
	return echoID, ctxID, err
}

func (f *fixture) verifications(result string) float64 {
	return testutil.ToFloat64(f.metrics.TokenVerifications.WithLabelValues(result))
}

func TestGate_BearerHeader(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	token, err := f.tokens.IssueAuthToken(userID, "ana@x.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	echoID, ctxID, err := f.serve(req)
	require.NoError(t, err)
	require.NotNil(t, echoID)
	assert.Equal(t, userID, echoID.UserID)
	assert.Equal(t, "ana@x.com", echoID.Email)
	assert.Equal(t, echoID, ctxID)
	assert.Equal(t, float64(1), f.verifications(metrics.ResultValid))
}

func TestGate_Cookie(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	token, err := f.tokens.IssueAuthToken(userID, "ana@x.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	echoID, _, err := f.serve(req)
	require.NoError(t, err)
	assert.Equal(t, userID, echoID.UserID)
}

func TestGate_MissingToken(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.serve(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.ErrorIs(t, err, apperrors.ErrMissingToken)
	assert.Equal(t, float64(1), f.verifications(metrics.ResultMissing))
}

func TestGate_RejectedTokens(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: uuid.NewString(),
		Email:  "ana@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	otherKey, err := auth.NewJWTService("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := otherKey.IssueAuthToken(uuid.New(), "ana@x.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		result string
	}{
		{name: "expired", token: expired, result: metrics.ResultExpired},
		{name: "wrong signature", token: forged, result: metrics.ResultInvalid},
		{name: "garbage", token: "not-a-jwt", result: metrics.ResultInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)

			echoID, _, err := f.serve(req)
			assert.Nil(t, echoID)
			assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
			assert.NotErrorIs(t, err, apperrors.ErrMissingToken)
			assert.Equal(t, float64(1), f.verifications(tt.result))
		})
	}
}

func TestGate_CookieTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	token, err := f.tokens.IssueAuthToken(userID, "ana@x.com")
	require.NoError(t, err)

	t.Run("invalid cookie is not rescued by the header", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

		echoID, _, err := f.serve(req)
		assert.Nil(t, echoID)
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		assert.Equal(t, float64(1), f.verifications(metrics.ResultInvalid))
		assert.Equal(t, float64(0), f.verifications(metrics.ResultValid))
	})

	t.Run("valid cookie wins over an invalid header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")

		echoID, _, err := f.serve(req)
		require.NoError(t, err)
		assert.Equal(t, userID, echoID.UserID)
	})

	t.Run("lowercase bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "bearer "+token)

		echoID, _, err := f.serve(req)
		require.NoError(t, err)
		assert.Equal(t, userID, echoID.UserID)
	})
}
