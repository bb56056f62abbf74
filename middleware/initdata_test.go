package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	tglink "github.com/MrEthical07/tglink"
	"github.com/MrEthical07/tglink/initdata"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-BOT-TOKEN"

func testEngine(t *testing.T) *tglink.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := tglink.DefaultConfig()
	cfg.Bot.Token = testBotToken
	cfg.Session.PrivateKey = []byte("01234567890123456789012345678901")

	engine, err := tglink.New().WithConfig(cfg).WithRedis(rdb).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func serve(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireInitData(t *testing.T) {
	assert := assert.New(t)
	e := echo.New()
	engine := testEngine(t)

	e.GET("/me", func(c echo.Context) error {
		claim, ok := ClaimFromContext(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, claim)
	}, RequireInitData(engine))

	payload := initdata.Encode(map[string]string{"user": `{"id":42,"username":"ada"}`}, testBotToken)

	table := []struct {
		name          string
		authorization string
		statusCode    int
	}{
		{"valid", "tma " + payload, http.StatusOK},
		{"scheme is case insensitive", "TMA " + payload, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"bearer scheme", "Bearer " + payload, http.StatusUnauthorized},
		{"empty payload", "tma   ", http.StatusUnauthorized},
		{"forged payload", "tma " + initdata.Encode(map[string]string{"user": `{"id":42}`}, "other"), http.StatusUnauthorized},
	}

	for _, row := range table {
		rec := serve(e, row.authorization)
		assert.Equal(row.statusCode, rec.Code, row.name)
		if row.statusCode == http.StatusOK {
			assert.Contains(rec.Body.String(), `"username":"ada"`, row.name)
		}
	}
}

func TestRequireInitDataNilEngine(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireInitData(nil))

	rec := serve(e, "tma x")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestContextCarriesIPAndRequestID(t *testing.T) {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return "req-7" },
	}))
	e.Use(RequestContext())

	var got context.Context
	e.GET("/me", func(c echo.Context) error {
		got = c.Request().Context()
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.RemoteAddr = "203.0.113.5:41000"
	req.Header.Set(echo.HeaderXRealIP, "198.51.100.99")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "req-7", tglink.RequestIDFromContext(got))
	assert.Equal(t, "203.0.113.5", tglink.ClientIPFromContext(got))
}
