package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/monitoring"
	"mailsuite/backend/internal/service"
	"mailsuite/backend/internal/smtp"
)

// Handler 聚合所有 HTTP 处理逻辑
type Handler struct {
	sessions *service.SessionStore
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(sessions *service.SessionStore, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	return &Handler{sessions: sessions, metrics: metrics, logger: logger}
}

type connectRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Connect 登录邮箱账号并建立会话
func (h *Handler) Connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	session, ok := currentSession(c)
	if !ok {
		session = h.sessions.Create()
	}

	if err := session.Suite.Connect(req.Username, req.Password); err != nil {
		if !ok {
			// 登录失败的新会话立即回收，不留给清理协程
			h.sessions.Evict(session.ID)
		}
		FailErr(c, err)
		return
	}

	setSessionCookie(c, session.ID)
	h.metrics.ActiveSessions.Set(float64(h.sessions.Len()))
	OK(c, gin.H{"status": session.Suite.Status()})
}

// Status 返回会话各子系统的就绪状态
func (h *Handler) Status(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		OK(c, gin.H{"status": service.Status{}})
		return
	}
	OK(c, gin.H{"status": session.Suite.Status()})
}

type selectMailboxRequest struct {
	Mailbox string `json:"mailbox" binding:"required"`
}

// SelectMailbox 切换邮箱文件夹
func (h *Handler) SelectMailbox(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req selectMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "mailbox is required")
		return
	}

	count, err := session.Suite.SelectMailbox(req.Mailbox)
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, gin.H{"mailbox": req.Mailbox, "messageCount": count})
}

// ListMailboxes 列出账号下的邮箱文件夹
func (h *Handler) ListMailboxes(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	mailboxes, err := session.Suite.ListMailboxes()
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, gin.H{"mailboxes": mailboxes})
}

type fetchEmailsRequest struct {
	Criteria string `json:"criteria"`
	Limit    int    `json:"limit"`
}

// FetchEmails 抓取邮件并落盘
func (h *Handler) FetchEmails(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req fetchEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	messages, err := session.Suite.FetchEmails(c.Request.Context(), req.Criteria, req.Limit)
	if err != nil {
		h.metrics.FetchFailures.Inc()
		FailErr(c, err)
		return
	}
	h.metrics.EmailsFetched.Add(float64(len(messages)))

	// 列表响应不携带正文，避免超大载荷
	list := make([]gin.H, 0, len(messages))
	for _, msg := range messages {
		h.metrics.AttachmentsStored.Add(float64(msg.AttachmentCount))
		list = append(list, gin.H{
			"id":              msg.ID,
			"subject":         msg.Subject,
			"sender":          msg.Sender,
			"date":            msg.Date,
			"hasAttachments":  msg.HasAttachments,
			"attachmentCount": msg.AttachmentCount,
		})
	}
	OK(c, gin.H{"emails": list, "count": len(list)})
}

type emailIDRequest struct {
	EmailID string `json:"email_id" binding:"required"`
}

// GetEmailDetail 查看一封邮件的完整内容
func (h *Handler) GetEmailDetail(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req emailIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "email_id is required")
		return
	}

	msg, err := session.Suite.ViewEmail(c.Request.Context(), req.EmailID)
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, gin.H{"email": msg})
}

type summarizeEmailRequest struct {
	EmailID string `json:"email_id" binding:"required"`
	Scope   string `json:"scope"`
	Style   string `json:"style"`
}

// SummarizeEmail 按范围摘要一封邮件
func (h *Handler) SummarizeEmail(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req summarizeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "email_id is required")
		return
	}

	scope := domain.SummaryScope(req.Scope)
	switch scope {
	case domain.ScopeBody, domain.ScopeAttachments, domain.ScopeBoth:
	case "":
		scope = domain.ScopeBody
	default:
		Fail(c, http.StatusBadRequest, "scope must be body, attachments or both")
		return
	}

	result, err := session.Suite.SummarizeEmail(c.Request.Context(), req.EmailID, scope, req.Style)
	if err != nil {
		h.metrics.SummaryFailures.Inc()
		FailErr(c, err)
		return
	}
	h.metrics.SummariesCreated.WithLabelValues(string(scope)).Inc()
	OK(c, gin.H{"result": result})
}

type replyEmailRequest struct {
	EmailID     string   `json:"email_id" binding:"required"`
	Body        string   `json:"body" binding:"required"`
	Attachments []string `json:"attachments"`
}

// ReplyEmail 回复一封已下载的邮件
func (h *Handler) ReplyEmail(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req replyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "email_id and body are required")
		return
	}

	result, err := session.Suite.ReplyEmail(c.Request.Context(), req.EmailID, req.Body, req.Attachments)
	if err != nil {
		h.metrics.SendFailures.Inc()
		FailErr(c, err)
		return
	}
	h.metrics.EmailsSent.Inc()
	OK(c, gin.H{"result": result})
}

type sendEmailRequest struct {
	To          []string `json:"to" binding:"required"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	HTMLBody    string   `json:"html_body"`
	Attachments []string `json:"attachments"`
}

// SendEmail 发送一封新邮件
func (h *Handler) SendEmail(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "to is required")
		return
	}

	result, err := session.Suite.SendEmail(smtp.SendInput{
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		HTMLBody:    req.HTMLBody,
		Attachments: req.Attachments,
	})
	if err != nil {
		h.metrics.SendFailures.Inc()
		FailErr(c, err)
		return
	}
	h.metrics.EmailsSent.Inc()
	OK(c, gin.H{"result": result})
}

type attachmentRequest struct {
	EmailID  string `json:"email_id" binding:"required"`
	Filename string `json:"filename" binding:"required"`
}

// DownloadAttachment 下载磁盘上的附件文件
func (h *Handler) DownloadAttachment(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req attachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "email_id and filename are required")
		return
	}

	path, err := session.Suite.AttachmentPath(req.EmailID, req.Filename)
	if err != nil {
		FailErr(c, err)
		return
	}
	c.FileAttachment(path, req.Filename)
}

type summarizeAttachmentRequest struct {
	EmailID  string `json:"email_id" binding:"required"`
	Filename string `json:"filename" binding:"required"`
	Style    string `json:"style"`
}

// SummarizeAttachment 摘要单个附件
func (h *Handler) SummarizeAttachment(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req summarizeAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "email_id and filename are required")
		return
	}

	summary, err := session.Suite.SummarizeAttachment(c.Request.Context(), req.EmailID, req.Filename, req.Style)
	if err != nil {
		h.metrics.SummaryFailures.Inc()
		FailErr(c, err)
		return
	}
	h.metrics.SummariesCreated.WithLabelValues("attachment").Inc()
	OK(c, gin.H{"summary": summary})
}

type autoSummarizeRequest struct {
	Criteria   string   `json:"criteria"`
	Limit      int      `json:"limit"`
	Style      string   `json:"style"`
	Recipient  []string `json:"recipient" binding:"required"`
	SaveResult bool     `json:"save_result"`
}

// AutoSummarize 执行抓取-摘要-转发流水线
func (h *Handler) AutoSummarize(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req autoSummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "recipient is required")
		return
	}

	result, err := session.Suite.FetchSummarizeSend(c.Request.Context(), service.PipelineOptions{
		Criteria:   req.Criteria,
		Limit:      req.Limit,
		Style:      req.Style,
		Recipient:  req.Recipient,
		SaveResult: req.SaveResult,
	})
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, gin.H{"result": result})
}

type processMailboxRequest struct {
	Criteria  string `json:"criteria"`
	BatchSize int    `json:"batch_size"`
	Style     string `json:"style"`
}

// ProcessMailbox 分批处理整个邮箱并生成报告文件
func (h *Handler) ProcessMailbox(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var req processMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := session.Suite.ProcessMailbox(c.Request.Context(), service.BatchOptions{
		Criteria:  req.Criteria,
		BatchSize: req.BatchSize,
		Style:     req.Style,
	})
	if err != nil {
		FailErr(c, err)
		return
	}
	OK(c, gin.H{"report": report})
}

// Logout 登出并销毁会话
func (h *Handler) Logout(c *gin.Context) {
	session, ok := currentSession(c)
	if ok {
		h.sessions.Evict(session.ID)
	}
	h.metrics.ActiveSessions.Set(float64(h.sessions.Len()))
	clearSessionCookie(c)
	OK(c, gin.H{"message": "logged out"})
}
