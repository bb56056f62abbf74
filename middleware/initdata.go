package middleware

import (
	"errors"
	"net/http"
	"strings"

	tglink "github.com/MrEthical07/tglink"
	"github.com/labstack/echo/v4"
)

// AuthScheme is the Authorization scheme mini-app clients use to send the raw
// launch payload.
const AuthScheme = "tma"

const claimContextKey = "tglink.claim"

// ClaimFromContext returns the claim stored by RequireInitData.
func ClaimFromContext(c echo.Context) (*tglink.Claim, bool) {
	claim, ok := c.Get(claimContextKey).(*tglink.Claim)
	return claim, ok && claim != nil
}

// RequireInitData verifies the payload carried in "Authorization: tma <initData>"
// and stores the resulting claim on the echo context.
//
// A nil engine answers 500, a throttled client 429 and every other
// verification failure 401.
func RequireInitData(engine *tglink.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if engine == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, tglink.ErrConfiguration.Error())
			}

			raw, ok := initDataFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}

			claim, err := engine.VerifyInitData(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, tglink.ErrVerifyRateLimited) {
					return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}

			c.Set(claimContextKey, claim)
			return next(c)
		}
	}
}

func initDataFromHeader(value string) (string, bool) {
	scheme, raw, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, AuthScheme) {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}
