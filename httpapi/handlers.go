package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	tglink "github.com/MrEthical07/tglink"
	tgmw "github.com/MrEthical07/tglink/middleware"

	"github.com/labstack/echo/v4"
)

const (
	errMissingConfiguration = "missing configuration"

	pathLinkTelegram = "/link-telegram"
	pathTelegramAuth = "/telegram-auth"
)

type LinkRequest struct {
	InitData string `json:"initData"`
	Code     string `json:"code"`
}

type LinkResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type AuthRequest struct {
	InitData string `json:"initData"`
}

// AuthResponse keeps the field names existing mini-app clients read.
type AuthResponse struct {
	Linked         bool    `json:"linked"`
	SupabaseUserID string  `json:"supabase_user_id,omitempty"`
	AccessToken    string  `json:"access_token,omitempty"`
	RefreshToken   *string `json:"refresh_token,omitempty"`
	ExpiresAt      int64   `json:"expires_at,omitempty"`
	Error          string  `json:"error,omitempty"`
}

type MeResponse struct {
	TelegramUserID string        `json:"telegram_user_id"`
	User           *tglink.Claim `json:"user"`
	Linked         bool          `json:"linked"`
	SupabaseUserID string        `json:"supabase_user_id,omitempty"`
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	if srv.engine == nil {
		return c.JSON(http.StatusInternalServerError, GenericStatus{Status: "error", Daemon: "tglinkd", Message: errMissingConfiguration})
	}
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "tglinkd"})
}

// HandleLinkTelegram redeems a link code for the identity in initData.
func (srv *Server) HandleLinkTelegram(c echo.Context) error {
	if srv.engine == nil {
		return c.JSON(http.StatusInternalServerError, LinkResponse{OK: false, Error: errMissingConfiguration})
	}

	var body LinkRequest
	if err := decodeBody(c, &body); err != nil {
		srv.logger.Warn("link request body rejected", "err", err)
		return c.JSON(http.StatusInternalServerError, LinkResponse{OK: false})
	}

	_, err := srv.engine.RedeemLinkCode(c.Request().Context(), body.InitData, body.Code)
	if err != nil {
		status, msg := srv.statusFor(err)
		return c.JSON(status, LinkResponse{OK: false, Error: msg})
	}

	return c.JSON(http.StatusOK, LinkResponse{OK: true})
}

// HandleTelegramAuth issues a session credential for a linked identity.
func (srv *Server) HandleTelegramAuth(c echo.Context) error {
	if srv.engine == nil {
		return c.JSON(http.StatusInternalServerError, AuthResponse{Linked: false, Error: errMissingConfiguration})
	}

	var body AuthRequest
	if err := decodeBody(c, &body); err != nil {
		srv.logger.Warn("auth request body rejected", "err", err)
		return c.JSON(http.StatusInternalServerError, AuthResponse{Linked: false})
	}

	res, err := srv.engine.IssueSession(c.Request().Context(), body.InitData)
	if err != nil {
		status, msg := srv.statusFor(err)
		return c.JSON(status, AuthResponse{Linked: false, Error: msg})
	}
	if !res.Linked {
		return c.JSON(http.StatusOK, AuthResponse{Linked: false})
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Linked:         true,
		SupabaseUserID: res.BackendUserID,
		AccessToken:    res.AccessToken,
		RefreshToken:   &res.RefreshToken,
		ExpiresAt:      res.ExpiresAt.Unix(),
	})
}

// HandleMe returns the verified claim and its link status. It runs behind
// RequireInitData.
func (srv *Server) HandleMe(c echo.Context) error {
	claim, ok := tgmw.ClaimFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	backendUserID, linked, err := srv.engine.LinkedBackendUser(c.Request().Context(), claim)
	if err != nil {
		return fmt.Errorf("looking up identity link: %w", err)
	}

	return c.JSON(http.StatusOK, MeResponse{
		TelegramUserID: tglink.ExternalUserID(claim),
		User:           claim,
		Linked:         linked,
		SupabaseUserID: backendUserID,
	})
}

// statusFor maps engine errors onto response codes. Only configuration
// problems carry a message.
func (srv *Server) statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tglink.ErrNotAuthenticated):
		return http.StatusUnauthorized, ""
	case errors.Is(err, tglink.ErrVerifyRateLimited), errors.Is(err, tglink.ErrLinkRateLimited):
		return http.StatusTooManyRequests, ""
	case errors.Is(err, tglink.ErrLinkCodeInvalid):
		return http.StatusBadRequest, ""
	case errors.Is(err, tglink.ErrConfiguration), errors.Is(err, tglink.ErrEngineNotReady):
		return http.StatusInternalServerError, errMissingConfiguration
	default:
		srv.logger.Error("request failed", "err", err)
		return http.StatusInternalServerError, ""
	}
}

// decodeBody reads a JSON body. An empty or malformed body is an error.
func decodeBody(c echo.Context, out any) error {
	if c.Request().Body == nil {
		return errors.New("empty request body")
	}
	return c.Echo().JSONSerializer.Deserialize(c, out)
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var errorMessage string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		errorMessage = fmt.Sprintf("%v", he.Message)
	}
	if code >= 500 {
		srv.logger.Warn("tglinkd-http-internal-error", "err", err)
		if errorMessage != errMissingConfiguration {
			errorMessage = ""
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	// Endpoint clients only understand their own failure shape, so body-limit
	// and recovered-panic errors on those routes answer with it too.
	switch c.Request().URL.Path {
	case pathLinkTelegram:
		_ = c.JSON(code, LinkResponse{OK: false, Error: endpointMessage(errorMessage)})
	case pathTelegramAuth:
		_ = c.JSON(code, AuthResponse{Linked: false, Error: endpointMessage(errorMessage)})
	default:
		_ = c.JSON(code, GenericStatus{Status: "error", Daemon: "tglinkd", Message: errorMessage})
	}
}

// endpointMessage keeps only the configuration hint on endpoint failures.
func endpointMessage(msg string) string {
	if msg == errMissingConfiguration {
		return msg
	}
	return ""
}
