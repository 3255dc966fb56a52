package pkg

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"Sahaaya/internal/acknowledgement"
	"Sahaaya/internal/auth"
	"Sahaaya/internal/campaign"
	"Sahaaya/internal/config"
	"Sahaaya/internal/metrics"
	"Sahaaya/internal/notification"
	"Sahaaya/internal/upload"
	"Sahaaya/pkg/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var EchoModules = fx.Module("echo",
	fx.Provide(config.NewAppConfig),
	fx.Provide(config.NewLogger),
	fx.Provide(config.NewMongoDBClient),
	fx.Provide(config.NewResendConfig),
	fx.Provide(fx.Annotate(config.NewEmailService, fx.As(new(notification.Mailer)))),
	fx.Provide(metrics.NewDefault),
	fx.Provide(NewEchoServer),

	fx.Provide(auth.NewGate),
	fx.Provide(auth.NewTokenIssuer),
	fx.Provide(auth.NewUserRepository),
	fx.Provide(auth.NewUserService),
	fx.Provide(auth.NewAuthHandler),

	fx.Provide(campaign.NewRepository),
	fx.Provide(campaign.NewService),
	fx.Provide(campaign.NewCampaignHandler),

	fx.Provide(acknowledgement.NewRepository),
	fx.Provide(acknowledgement.NewService),
	fx.Provide(acknowledgement.NewAcknowledgementHandler),

	fx.Provide(notification.NewNotificationService),
	fx.Provide(fx.Annotate(notification.NewNotificationScheduler, fx.As(new(acknowledgement.Announcer)))),

	fx.Provide(fx.Annotate(upload.NewCloudinaryStore, fx.As(new(upload.AssetStore)))),
	fx.Provide(upload.NewUploadHandler),

	fx.Provide(
		func(r campaign.Repository) acknowledgement.CampaignFinder { return r },
		func(r campaign.Repository) notification.CampaignFinder { return r },
		func(r auth.UserRepository) notification.UserDirectory { return r },
		func(r acknowledgement.Repository) notification.DeliveryRecorder { return r },
	),
	fx.Invoke(RegisterRoutes))

func NewEchoServer(lc fx.Lifecycle, cfg *config.AppConfig, logger *zap.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	middleware.SetupMiddleware(e, cfg, logger, m)
	addr := fmt.Sprintf(":%d", cfg.Port)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("server running", zap.String("addr", addr))
			go func() {
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("failed to start the server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down the server")
			return e.Shutdown(ctx)
		},
	})
	return e
}

type RouteParams struct {
	fx.In

	Echo            *echo.Echo
	Config          *config.AppConfig
	Mongo           *config.MongoDBClient
	Gate            *auth.Gate
	Tokens          *auth.TokenIssuer
	Auth            *auth.AuthHandler
	Campaigns       *campaign.CampaignHandler
	Acknowledgement *acknowledgement.AcknowledgementHandler
	Upload          *upload.UploadHandler
}

func RegisterRoutes(p RouteParams) {
	e := p.Echo

	e.GET("/health", func(c echo.Context) error {
		if err := p.Mongo.Client.Ping(c.Request().Context(), nil); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authRoutes := e.Group("/api/auth", middleware.AuthRateLimiter(p.Config))
	authRoutes.POST("/register", p.Auth.Register)
	authRoutes.POST("/login", p.Auth.Login)

	optional := middleware.OptionalJWT(p.Tokens)
	e.GET("/api/campaigns", p.Campaigns.List, optional)
	e.GET("/api/campaigns/:id", p.Campaigns.Get, optional)
	e.GET("/api/acknowledgements/campaign/:campaignId", p.Acknowledgement.GetByCampaign)

	protected := e.Group("/api")
	protected.Use(middleware.JWTMiddleware(p.Tokens))

	protected.GET("/user/profile", p.Auth.Profile)
	protected.PUT("/user/profile", p.Auth.UpdateProfile)
	protected.PUT("/user/verify-id", p.Auth.VerifyID)
	protected.GET("/users/:id/profile", p.Auth.UserProfile)

	protected.POST("/campaigns", p.Campaigns.Propose)
	protected.POST("/campaigns/:id/join", p.Campaigns.Join)
	protected.POST("/campaigns/:id/donate", p.Campaigns.Donate)

	admin := protected.Group("/admin")
	admin.GET("/stats", p.Campaigns.DashboardStats, middleware.RequireCapability(p.Gate, auth.ObjDashboard, auth.ActRead))
	admin.GET("/campaigns", p.Campaigns.AdminList, middleware.RequireCapability(p.Gate, auth.ObjCampaign, auth.ActListAll))
	admin.PUT("/campaigns/:id/approve", p.Campaigns.Approve)
	admin.PUT("/campaigns/:id/reject", p.Campaigns.Reject)
	admin.PUT("/campaigns/:id/donations/:donationId/received", p.Campaigns.ConfirmReceived)

	acks := protected.Group("/acknowledgements")
	acks.POST("/generate", p.Acknowledgement.Generate)
	acks.GET("/mine", p.Acknowledgement.ListMine)
	acks.PUT("/:id/publish", p.Acknowledgement.Publish)
	acks.PUT("/:id", p.Acknowledgement.UpdateMessage)

	protected.POST("/upload", p.Upload.Upload)
}
