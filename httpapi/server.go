package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	tglink "github.com/MrEthical07/tglink"
	tgmw "github.com/MrEthical07/tglink/middleware"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	slogecho "github.com/samber/slog-echo"
)

type Config struct {
	Logger *slog.Logger
	Bind   string

	// CORSAllowOrigins defaults to "*". Mini-app pages are served from the
	// host platform's domains.
	CORSAllowOrigins []string
	BodyLimit        string

	// Registerer receives the HTTP request metrics. Defaults to the global
	// Prometheus registerer.
	Registerer prometheus.Registerer

	// TrustedProxies lists the reverse proxies allowed to set X-Forwarded-For.
	// When empty the client IP is the connection's remote address and
	// forwarding headers are ignored.
	TrustedProxies []*net.IPNet
}

// Server exposes an Engine over HTTP. A nil engine puts the server in
// degraded mode: every endpoint answers 500 "missing configuration".
type Server struct {
	engine *tglink.Engine
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger
}

func NewServer(engine *tglink.Engine, config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "httpapi")

	bodyLimit := config.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "64K"
	}
	origins := config.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	registerer := config.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	e := echo.New()
	srv := &Server{
		engine: engine,
		echo:   e,
		logger: logger,
	}

	var (
		httpTimeout        = 30 * time.Second
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor(config.TrustedProxies)
	e.Use(middleware.RequestID())
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "tglink",
		Registerer: registerer,
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))
	e.Use(tgmw.RequestContext())
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST(pathLinkTelegram, srv.HandleLinkTelegram)
	e.POST(pathTelegramAuth, srv.HandleTelegramAuth)
	e.GET("/v1/me", srv.HandleMe, tgmw.RequireInitData(engine))

	return srv
}

// ipExtractor decides which address the verify throttle counts against.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, ipNet := range trusted {
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

// RunAPI serves until ctx is cancelled, then shuts down gracefully.
func (srv *Server) RunAPI(ctx context.Context) error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr, "degraded", srv.engine == nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return srv.Shutdown()
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}
