// Package service 提供邮件套件的编排层：登录、抓取、查看、摘要和发送
// 的统一入口，供 HTTP 传输层调用。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"go.uber.org/zap"

	"mailsuite/backend/internal/cache"
	"mailsuite/backend/internal/config"
	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/imap"
	"mailsuite/backend/internal/smtp"
	"mailsuite/backend/internal/storage/maildir"
	"mailsuite/backend/internal/summarize"
)

var (
	// ErrNoEmails 表示按条件没有抓取到任何邮件
	ErrNoEmails = errors.New("no emails to fetch")
	// ErrNotConnected 表示尚未登录邮箱账号
	ErrNotConnected = errors.New("not connected to mail server")
	// ErrSummarizerUnavailable 表示摘要功能未配置（缺少 API 密钥）
	ErrSummarizerUnavailable = errors.New("summarizer is not configured")
	// ErrEmailNotFound 表示请求的邮件不在磁盘上
	ErrEmailNotFound = errors.New("email not found")
)

// MailFetcher 抽象已登录的 IMAP 连接，便于测试替换
type MailFetcher interface {
	Username() string
	Mailbox() string
	SelectMailbox(name string) (uint32, error)
	ListMailboxes() ([]string, error)
	SearchUIDs(criteria string, limit int) ([]goimap.UID, error)
	FetchRaw(uid goimap.UID) ([]byte, error)
	Close() error
}

// MailSender 抽象 SMTP 发送端
type MailSender interface {
	Send(input smtp.SendInput) (*smtp.SendResult, error)
	TestConnection() error
}

// Suite 把收件、存储、摘要和发送组合为一个会话级别的门面
//
// 一个 Suite 对应一个已登录（或待登录）的邮箱账号，
// 不是并发安全的，按会话串行使用。
type Suite struct {
	cfg        *config.Config
	store      *maildir.Store
	summarizer *summarize.Summarizer
	summaries  *cache.SummaryCache
	logger     *zap.Logger

	fetcher  MailFetcher
	sender   MailSender
	username string

	// 测试注入点，默认连接真实服务器
	dialIMAP   func(host string, port int, username, password string, logger *zap.Logger) (MailFetcher, error)
	makeSender func(cfg config.SMTPConfig, username, password string, logger *zap.Logger) MailSender
}

// NewSuite 创建编排门面
//
// summarizer 可以为 nil（未配置 API 密钥时），相关操作返回
// ErrSummarizerUnavailable。
func NewSuite(cfg *config.Config, store *maildir.Store, summarizer *summarize.Summarizer, logger *zap.Logger) *Suite {
	return &Suite{
		cfg:        cfg,
		store:      store,
		summarizer: summarizer,
		summaries:  cache.NewSummaryCache(30 * time.Minute),
		logger:     logger,
		dialIMAP: func(host string, port int, username, password string, logger *zap.Logger) (MailFetcher, error) {
			return imap.Dial(host, port, username, password, logger)
		},
		makeSender: func(cfg config.SMTPConfig, username, password string, logger *zap.Logger) MailSender {
			return smtp.NewSender(cfg, username, password, logger)
		},
	}
}

// Status 描述套件各子系统的就绪状态
type Status struct {
	Connected       bool   `json:"connected"`
	Username        string `json:"username,omitempty"`
	Mailbox         string `json:"mailbox,omitempty"`
	SummarizerReady bool   `json:"summarizerReady"`
	Model           string `json:"model,omitempty"`
	DownloadRoot    string `json:"downloadRoot"`
}

// Status 返回当前就绪状态
func (s *Suite) Status() Status {
	st := Status{
		SummarizerReady: s.summarizer != nil,
		DownloadRoot:    s.store.Root(),
	}
	if s.summarizer != nil {
		st.Model = s.summarizer.Model()
	}
	if s.fetcher != nil {
		st.Connected = true
		st.Username = s.fetcher.Username()
		st.Mailbox = s.fetcher.Mailbox()
	}
	return st
}

// Connect 登录 IMAP 服务器并准备 SMTP 发送端
//
// 登录成功后自动选择配置的默认邮箱文件夹。
func (s *Suite) Connect(username, password string) error {
	if s.fetcher != nil {
		_ = s.fetcher.Close()
		s.fetcher = nil
	}

	fetcher, err := s.dialIMAP(s.cfg.IMAP.Host, s.cfg.IMAP.Port, username, password, s.logger)
	if err != nil {
		return err
	}

	if _, err := fetcher.SelectMailbox(s.cfg.IMAP.Mailbox); err != nil {
		_ = fetcher.Close()
		return err
	}

	s.fetcher = fetcher
	s.username = username
	s.sender = s.makeSender(s.cfg.SMTP, username, password, s.logger)
	return nil
}

// SelectMailbox 切换邮箱文件夹并返回其中的邮件数量
func (s *Suite) SelectMailbox(name string) (uint32, error) {
	if s.fetcher == nil {
		return 0, ErrNotConnected
	}
	return s.fetcher.SelectMailbox(name)
}

// ListMailboxes 列出账号下的邮箱文件夹
func (s *Suite) ListMailboxes() ([]string, error) {
	if s.fetcher == nil {
		return nil, ErrNotConnected
	}
	return s.fetcher.ListMailboxes()
}

// ViewEmail 查看一封邮件，优先从磁盘读取
//
// 邮件未下载且当前已连接时，按 id 从服务器抓取后再读取。
func (s *Suite) ViewEmail(ctx context.Context, id string) (*domain.Message, error) {
	msg, err := s.store.LoadMessage(id)
	if err == nil {
		return msg, nil
	}
	if !errors.Is(err, maildir.ErrNotFound) {
		return nil, err
	}

	if s.fetcher == nil {
		return nil, ErrEmailNotFound
	}

	uid, err := parseUID(id)
	if err != nil {
		return nil, ErrEmailNotFound
	}
	if _, err := s.fetchOne(ctx, uid); err != nil {
		return nil, fmt.Errorf("failed to fetch email %s: %w", id, err)
	}
	return s.store.LoadMessage(id)
}

// AttachmentPath 返回某封邮件附件在磁盘上的路径
func (s *Suite) AttachmentPath(id, filename string) (string, error) {
	path, err := s.store.AttachmentPath(id, filename)
	if err != nil {
		return "", ErrEmailNotFound
	}
	return path, nil
}

// SummarizeEmail 按范围摘要一封已下载的邮件
//
// 相同参数的结果会缓存一段时间，重复请求不再调用模型接口。
func (s *Suite) SummarizeEmail(ctx context.Context, id string, scope domain.SummaryScope, style string) (*summarize.EmailSummary, error) {
	if s.summarizer == nil {
		return nil, ErrSummarizerUnavailable
	}

	key := cache.Key(id, string(scope), style)
	if cached, ok := s.summaries.Get(key); ok {
		s.logger.Debug("summary cache hit", zap.String("email_id", id))
		return cached, nil
	}

	msg, err := s.ViewEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.summarizer.SummarizeEmail(ctx, msg, scope, style)
	if err != nil {
		return nil, err
	}
	s.summaries.Set(key, result)
	return result, nil
}

// SummarizeAttachment 摘要一封邮件的单个附件
func (s *Suite) SummarizeAttachment(ctx context.Context, id, filename, style string) (*domain.Summary, error) {
	if s.summarizer == nil {
		return nil, ErrSummarizerUnavailable
	}
	path, err := s.AttachmentPath(id, filename)
	if err != nil {
		return nil, err
	}
	return s.summarizer.SummarizeAttachmentFile(ctx, path, style)
}

// SendEmail 发送一封邮件，附件以磁盘路径给出
func (s *Suite) SendEmail(input smtp.SendInput) (*smtp.SendResult, error) {
	if s.sender == nil {
		return nil, ErrNotConnected
	}
	if input.From == "" {
		input.From = s.username
	}
	return s.sender.Send(input)
}

// ReplyEmail 回复一封已下载的邮件
//
// 收件人取原邮件的发件人，主题加 "Re: " 前缀（已有前缀时不重复）。
func (s *Suite) ReplyEmail(ctx context.Context, id, body string, attachments []string) (*smtp.SendResult, error) {
	if s.sender == nil {
		return nil, ErrNotConnected
	}
	msg, err := s.ViewEmail(ctx, id)
	if err != nil {
		return nil, err
	}

	recipient := extractAddress(msg.Sender)
	if recipient == "" {
		return nil, fmt.Errorf("original email has no sender address")
	}

	subject := msg.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	return s.sender.Send(smtp.SendInput{
		From:        s.username,
		To:          []string{recipient},
		Subject:     subject,
		Body:        body,
		Attachments: attachments,
	})
}

// Logout 关闭 IMAP 连接并清除发送端
func (s *Suite) Logout() error {
	var err error
	if s.fetcher != nil {
		err = s.fetcher.Close()
		s.fetcher = nil
	}
	s.sender = nil
	s.username = ""
	return err
}

// extractAddress 从 "Name <addr>" 形式的发件人头中取出地址
func extractAddress(sender string) string {
	if start := strings.LastIndex(sender, "<"); start >= 0 {
		if end := strings.Index(sender[start:], ">"); end > 0 {
			return sender[start+1 : start+end]
		}
	}
	return strings.TrimSpace(sender)
}
