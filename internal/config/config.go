package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// IMAPConfig 定义收件服务器配置
type IMAPConfig struct {
	Host    string // IMAP 服务器地址，默认 "imap.naver.com"
	Port    int    // IMAP over TLS 端口，默认 993
	Mailbox string // 默认邮箱文件夹，默认 "INBOX"
}

// SMTPConfig 定义发件服务器配置
type SMTPConfig struct {
	Host    string // SMTP 服务器地址，默认 "smtp.naver.com"
	Port    int    // STARTTLS 端口，默认 587
	SSLPort int    // 隐式 TLS 端口，默认 465
	UseSSL  bool   // true 时使用隐式 TLS 连接 SSLPort
}

// OpenAIConfig 定义摘要引擎的外部 API 配置
type OpenAIConfig struct {
	APIKey       string        // API 密钥；为空时摘要功能标记为未就绪
	Model        string        // 默认模型，默认 "gpt-4o-mini"
	BaseURL      string        // 自定义 API 地址，留空使用官方地址
	CallInterval time.Duration // 相邻 API 调用的最小间隔，默认 1s
}

// StorageConfig 定义邮件下载目录配置
type StorageConfig struct {
	DownloadRoot string // 邮件目录根路径，默认 "./downloads"
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server  ServerConfig
	IMAP    IMAPConfig
	SMTP    SMTPConfig
	OpenAI  OpenAIConfig
	Storage StorageConfig
	CORS    CORSConfig
	Log     LogConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILSUITE_
// 例如: MAILSUITE_IMAP_HOST, MAILSUITE_OPENAI_API_KEY
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("mailsuite")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("imap.host", "imap.naver.com")
	viper.SetDefault("imap.port", 993)
	viper.SetDefault("imap.mailbox", "INBOX")
	viper.SetDefault("smtp.host", "smtp.naver.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.ssl_port", 465)
	viper.SetDefault("smtp.use_ssl", false)
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.base_url", "")
	viper.SetDefault("openai.call_interval", "1s")
	viper.SetDefault("storage.download_root", "./downloads")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)

	imapPort := viper.GetInt("imap.port")
	if imapPort <= 0 || imapPort > 65535 {
		return nil, fmt.Errorf("invalid imap.port: %d", imapPort)
	}

	smtpPort := viper.GetInt("smtp.port")
	if smtpPort <= 0 || smtpPort > 65535 {
		return nil, fmt.Errorf("invalid smtp.port: %d", smtpPort)
	}

	callInterval, err := time.ParseDuration(viper.GetString("openai.call_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid openai.call_interval: %w", err)
	}
	if callInterval < 0 {
		callInterval = time.Second
	}

	downloadRoot := viper.GetString("storage.download_root")
	if downloadRoot == "" {
		return nil, fmt.Errorf("storage.download_root must not be empty")
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		IMAP: IMAPConfig{
			Host:    viper.GetString("imap.host"),
			Port:    imapPort,
			Mailbox: viper.GetString("imap.mailbox"),
		},
		SMTP: SMTPConfig{
			Host:    viper.GetString("smtp.host"),
			Port:    smtpPort,
			SSLPort: viper.GetInt("smtp.ssl_port"),
			UseSSL:  viper.GetBool("smtp.use_ssl"),
		},
		OpenAI: OpenAIConfig{
			APIKey:       viper.GetString("openai.api_key"),
			Model:        viper.GetString("openai.model"),
			BaseURL:      viper.GetString("openai.base_url"),
			CallInterval: callInterval,
		},
		Storage: StorageConfig{
			DownloadRoot: downloadRoot,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 已存在的环境变量不会被 .env 中的值覆盖
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
