package domain

import "time"

// Message 表示一封已下载的邮件。
//
// 邮件以目录形式持久化：email_<id>/{body.txt, body.html, metadata.json, 附件...}。
// BodyText 保存的是合并文本（正文 + 按分隔标记拼接的附件抽取文本），
// 与磁盘上的 body.txt 一致；写入后记录不可变，重新抓取同一 id 会覆盖整个目录。
type Message struct {
	ID        string `json:"id"`        // 邮箱分配的标识（不透明字符串）
	Subject   string `json:"subject"`   // 已解码的主题
	Sender    string `json:"sender"`    // 已解码的发件人
	Recipient string `json:"recipient"` // 已解码的收件人
	Date      string `json:"date"`      // 原始 Date 头
	// 内容字段（不进 metadata.json，从文件系统加载）
	BodyText    string        `json:"body,omitempty"`     // 合并文本（含附件分隔标记）
	BodyHTML    string        `json:"bodyHtml,omitempty"` // 原始 HTML 正文，无则为空
	Attachments []*Attachment `json:"attachments,omitempty"`
	// 仅列表模式使用的统计字段
	HasAttachments  bool   `json:"hasAttachments"`
	AttachmentCount int    `json:"attachmentCount"`
	DownloadFolder  string `json:"downloadFolder,omitempty"`
}

// Metadata 是邮件目录内 metadata.json 的内容。
type Metadata struct {
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	Sender          string    `json:"sender"`
	Recipient       string    `json:"recipient"`
	Date            string    `json:"date"`
	DownloadedAt    time.Time `json:"downloadedAt"`
	HasHTML         bool      `json:"hasHtml"`
	AttachmentCount int       `json:"attachmentCount"`
}
