package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailsuite/backend/internal/config"
	"mailsuite/backend/internal/health"
	"mailsuite/backend/internal/logger"
	"mailsuite/backend/internal/monitoring"
	"mailsuite/backend/internal/service"
	"mailsuite/backend/internal/storage/maildir"
	"mailsuite/backend/internal/summarize"
	httptransport "mailsuite/backend/internal/transport/http"
)

// main 启动邮件套件的 HTTP API 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting mailsuite server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	store, err := maildir.NewStore(cfg.Storage.DownloadRoot, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize mail storage: %v", err))
	}
	log.Info("mail storage initialized", zap.String("path", store.Root()))

	// 摘要器是可选的：没有 API 密钥时服务照常启动，摘要接口返回可读错误
	var summarizer *summarize.Summarizer
	if cfg.OpenAI.APIKey != "" {
		generator := summarize.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		summarizer = summarize.New(generator, cfg.OpenAI.Model, cfg.OpenAI.CallInterval, log)
		log.Info("summarizer initialized", zap.String("model", cfg.OpenAI.Model))
	} else {
		log.Warn("no OpenAI API key configured, summarization disabled")
	}

	sessions := service.NewSessionStore(cfg, store, summarizer, 30*time.Minute, log)

	imapAddr := fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port)
	smtpAddr := fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	healthChecker := health.NewChecker(store.Root(), imapAddr, smtpAddr, log)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:   cfg,
		Sessions: sessions,
		Health:   healthChecker,
		Metrics:  monitoring.NewMetrics(),
		Logger:   log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // 抓取和摘要接口可能较慢
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions.StartJanitor(ctx, time.Minute)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}
