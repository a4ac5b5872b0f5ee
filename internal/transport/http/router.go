package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsuite/backend/internal/config"
	"mailsuite/backend/internal/health"
	"mailsuite/backend/internal/middleware"
	"mailsuite/backend/internal/monitoring"
	"mailsuite/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config   *config.Config
	Sessions *service.SessionStore
	Health   *health.Checker
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(10 * 1024 * 1024))

	metrics := deps.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	router.Use(metrics.GinMiddleware())

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 允许所有来源时不能同时开启凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewHandler(deps.Sessions, metrics, deps.Logger)

	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyHandler()))
	}
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.Use(SessionResolver(deps.Sessions))
	{
		api.GET("/status", handler.Status)
		api.POST("/connect", handler.Connect)
		api.POST("/select_mailbox", handler.SelectMailbox)
		api.POST("/list_mailboxes", handler.ListMailboxes)
		api.POST("/fetch_emails", handler.FetchEmails)
		api.POST("/get_email_detail", handler.GetEmailDetail)
		api.POST("/summarize_email", handler.SummarizeEmail)
		api.POST("/summarize_attachment", handler.SummarizeAttachment)
		api.POST("/download_attachment", handler.DownloadAttachment)
		api.POST("/reply_email", handler.ReplyEmail)
		api.POST("/send_email", handler.SendEmail)
		api.POST("/auto_summarize", handler.AutoSummarize)
		api.POST("/process_mailbox", handler.ProcessMailbox)
		api.POST("/logout", handler.Logout)
	}

	return router
}
