package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/socialpulse/backend/docs"
	"github.com/socialpulse/backend/internal/app/api/handlers"
	mw "github.com/socialpulse/backend/internal/app/api/middleware"
	"github.com/socialpulse/backend/internal/app/service/auth"
	"github.com/socialpulse/backend/internal/app/service/billing"
	"github.com/socialpulse/backend/internal/app/service/ingestion"
	"github.com/socialpulse/backend/internal/app/service/insights"
	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/app/service/wallet"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	metrics "github.com/socialpulse/backend/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request logger & access log are attached per group in registerRoutes.
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	Auth     *auth.Service
	Billing  *billing.Service
	Wallet   *wallet.Service
	Ingest   *ingestion.Service
	Insights *insights.Service
	Notifier *notifier.Service
	Provider paypalclient.Client
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		d.Log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())

	// Auth: code request / register / login stay public, session ops are behind auth.
	authProtected := apiV1.Group("/auth")
	authProtected.Use(mw.AuthMiddleware(d.Auth))
	handlers.RegisterAuthRoutes(apiV1.Group("/auth"), authProtected, d.Auth)

	// Webhooks authenticate via provider signature, not bearer tokens.
	handlers.RegisterWebhookRoutes(apiV1.Group("/webhooks"), d.Billing, d.Provider, d.Log)

	protected := apiV1.Group("/")
	protected.Use(mw.AuthMiddleware(d.Auth))
	handlers.RegisterBillingRoutes(
		protected.Group("/subscription"),
		protected.Group("/orders"),
		protected.Group("/invoices"),
		d.Billing, d.Wallet,
	)
	handlers.RegisterSocialRoutes(protected.Group("/social"), d.Ingest, d.Auth)
	handlers.RegisterMetricsRoutes(protected.Group("/metrics"), d.Insights, d.Auth)
	handlers.RegisterNotificationRoutes(protected.Group("/notifications"), d.Notifier)
	handlers.RegisterWalletRoutes(protected.Group("/wallet"), d.Wallet, d.Auth)

	admin := apiV1.Group("/")
	admin.Use(mw.AuthMiddleware(d.Auth), mw.AdminMiddleware())
	handlers.RegisterAnalyticsRoutes(admin.Group("/analytics"), d.Insights)
	handlers.RegisterBankTransferRoutes(
		protected.Group("/bank-transfer"),
		admin.Group("/admin/bank-transfers"),
		d.Billing,
	)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
