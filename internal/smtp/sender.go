// Package smtp 负责外发邮件：构建 MIME 消息并通过 SMTP 投递。
package smtp

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"mailsuite/backend/internal/config"
	"mailsuite/backend/internal/security"
)

var (
	// ErrAuthFailed 表示 SMTP 服务器拒绝了账号凭据
	ErrAuthFailed = errors.New("smtp authentication failed")
	// ErrRecipientsRefused 表示所有收件人都被服务器拒绝
	ErrRecipientsRefused = errors.New("all recipients refused")
	// ErrNoRecipients 表示发送请求中没有收件人
	ErrNoRecipients = errors.New("no recipients specified")
)

// SendInput 描述一次发送请求
type SendInput struct {
	From        string   // 发件人地址
	To          []string // 收件人地址列表
	Subject     string
	Body        string   // 纯文本正文
	HTMLBody    string   // HTML 正文，可选
	Attachments []string // 附件的本地文件路径
}

// SendResult 描述一次发送的结果
type SendResult struct {
	Accepted         []string // 被服务器接受的收件人
	Refused          []string // 被服务器拒绝的收件人
	SkippedFiles     []string // 因缺失而跳过的附件路径
	AttachedFiles    []string // 实际附带的附件文件名
	MessageSizeBytes int      // 构建出的消息大小
}

// Sender 通过配置的 SMTP 服务器发送邮件
type Sender struct {
	cfg      config.SMTPConfig
	username string
	password string
	guard    *security.AttachmentGuard
	logger   *zap.Logger
}

// NewSender 创建发送器
func NewSender(cfg config.SMTPConfig, username, password string, logger *zap.Logger) *Sender {
	return &Sender{
		cfg:      cfg,
		username: username,
		password: password,
		guard:    security.NewAttachmentGuard(0),
		logger:   logger,
	}
}

// Send 构建并投递一封邮件
//
// 缺失或未通过安全检查的附件记录警告后跳过，不阻止发送。
// 凭据被拒绝时返回 ErrAuthFailed，所有收件人被拒绝时返回
// ErrRecipientsRefused，部分拒绝时照常发送并在结果中列出。
func (s *Sender) Send(input SendInput) (*SendResult, error) {
	if len(input.To) == 0 {
		return nil, ErrNoRecipients
	}

	result := &SendResult{}
	msg, err := s.buildMessage(input, result)
	if err != nil {
		return nil, err
	}
	result.MessageSizeBytes = len(msg)

	client, err := s.dial()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Auth(sasl.NewLoginClient(s.username, s.password)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	if err := client.Mail(input.From, nil); err != nil {
		return nil, fmt.Errorf("failed to set sender: %w", err)
	}

	for _, rcpt := range input.To {
		if err := client.Rcpt(rcpt, nil); err != nil {
			s.logger.Warn("recipient refused",
				zap.String("recipient", rcpt), zap.Error(err))
			result.Refused = append(result.Refused, rcpt)
			continue
		}
		result.Accepted = append(result.Accepted, rcpt)
	}
	if len(result.Accepted) == 0 {
		return nil, ErrRecipientsRefused
	}

	wc, err := client.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to open data stream: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		s.logger.Debug("smtp quit failed", zap.Error(err))
	}

	s.logger.Info("email sent",
		zap.String("subject", input.Subject),
		zap.Int("recipients", len(result.Accepted)),
		zap.Int("attachments", len(result.AttachedFiles)))
	return result, nil
}

// TestConnection 验证 SMTP 服务器可达且凭据有效
func (s *Sender) TestConnection() error {
	client, err := s.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Auth(sasl.NewLoginClient(s.username, s.password)); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return client.Quit()
}

// dial 根据配置选择 STARTTLS 或隐式 TLS 连接
func (s *Sender) dial() (*smtp.Client, error) {
	if s.cfg.UseSSL {
		addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.SSLPort)
		client, err := smtp.DialTLS(addr, &tls.Config{ServerName: s.cfg.Host})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		return client, nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	client, err := smtp.DialStartTLS(addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return client, nil
}

// buildMessage 用 MIME 多部分格式组装邮件
func (s *Sender) buildMessage(input SendInput, result *SendResult) ([]byte, error) {
	var buf bytes.Buffer

	from := []*mail.Address{{Address: input.From}}
	to := make([]*mail.Address, 0, len(input.To))
	for _, addr := range input.To {
		to = append(to, &mail.Address{Address: addr})
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", from)
	h.SetAddressList("To", to)
	h.SetSubject(input.Subject)

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline part: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("failed to create text part: %w", err)
	}
	if _, err := io.WriteString(pw, input.Body); err != nil {
		return nil, fmt.Errorf("failed to write text body: %w", err)
	}
	pw.Close()

	if input.HTMLBody != "" {
		var hh mail.InlineHeader
		hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		hw, err := tw.CreatePart(hh)
		if err != nil {
			return nil, fmt.Errorf("failed to create html part: %w", err)
		}
		if _, err := io.WriteString(hw, input.HTMLBody); err != nil {
			return nil, fmt.Errorf("failed to write html body: %w", err)
		}
		hw.Close()
	}
	tw.Close()

	for _, path := range input.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("attachment file missing, skipping",
				zap.String("path", path), zap.Error(err))
			result.SkippedFiles = append(result.SkippedFiles, path)
			continue
		}

		filename := filepath.Base(path)
		if ok, reason := s.guard.Check(filename, int64(len(data))); !ok {
			s.logger.Warn("attachment rejected, skipping",
				zap.String("path", path), zap.String("reason", reason))
			result.SkippedFiles = append(result.SkippedFiles, path)
			continue
		}

		var ah mail.AttachmentHeader
		ah.SetFilename(filename)
		contentType := mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.SetContentType(contentType, nil)

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		if _, err := aw.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", filename, err)
		}
		aw.Close()
		result.AttachedFiles = append(result.AttachedFiles, filename)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}
