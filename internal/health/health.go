// Package health 暴露存活和就绪探针。
package health

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Checker 健康检查器
//
// 存活检查关注进程本身（协程数量），就绪检查关注外部依赖：
// 下载目录可写、IMAP 和 SMTP 服务器可达。
type Checker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewChecker 创建健康检查器
func NewChecker(downloadRoot, imapAddr, smtpAddr string, logger *zap.Logger) *Checker {
	hc := &Checker{
		health: healthcheck.NewHandler(),
		logger: logger,
	}

	hc.health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(500))

	hc.health.AddReadinessCheck("download-root", func() error {
		probe := filepath.Join(downloadRoot, ".health")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			return fmt.Errorf("download root not writable: %w", err)
		}
		return os.Remove(probe)
	})

	if imapAddr != "" {
		hc.health.AddReadinessCheck("imap-server", healthcheck.TCPDialCheck(imapAddr, 5*time.Second))
	}
	if smtpAddr != "" {
		hc.health.AddReadinessCheck("smtp-server", healthcheck.TCPDialCheck(smtpAddr, 5*time.Second))
	}

	return hc
}

// LiveHandler 返回存活探针处理器
func (hc *Checker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 返回就绪探针处理器
func (hc *Checker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}
