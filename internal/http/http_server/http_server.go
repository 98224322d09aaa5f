package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"liveauction/internal/http/auctionhandler"
	"liveauction/internal/http/middleware"
	"liveauction/internal/http/notificationhandler"
	"liveauction/internal/metrics"
	"liveauction/internal/ratelimit"
	"liveauction/internal/services/auction"
	"liveauction/internal/services/notification"
	"liveauction/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files
)

type httpServer struct {
	listenPort          uint16
	jwtSecret           string
	srv                 http.Server
	ln                  net.Listener
	auctionService      auction.IAuctionService
	notificationService notification.INotificationService
	wsSrv               *ws.WsServer
	bidLimiter          ratelimit.Limiter
	ctx                 context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, jwtSecret string, wsSrv *ws.WsServer,
	auctionService auction.IAuctionService, notificationService notification.INotificationService,
	bidLimiter ratelimit.Limiter) *httpServer {
	return &httpServer{
		listenPort:          listenPort,
		jwtSecret:           jwtSecret,
		wsSrv:               wsSrv,
		auctionService:      auctionService,
		notificationService: notificationService,
		bidLimiter:          bidLimiter,
		ctx:                 ctx,
	}
}

// Routes builds the gin engine with every REST, websocket and ops route.
func (h *httpServer) Routes() *gin.Engine {
	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))
	routerEngine.Use(metrics.PrometheusMiddleware())

	routerEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	routerEngine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	api := routerEngine.Group("", middleware.Actor(h.jwtSecret))

	// websocket endpoint
	api.GET("/ws", h.wsSrv.Handle)

	// REST API
	auctionhandler.New(h.auctionService, auctionhandler.WithBidLimiter(h.bidLimiter)).Register(api)
	notificationhandler.New(h.notificationService).Register(api)

	return routerEngine
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	zap.L().Info("http.listening", zap.String("addr", listenAddr))

	err = h.srv.Serve(h.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}
	return nil
}
