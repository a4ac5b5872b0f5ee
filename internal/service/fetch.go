package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"go.uber.org/zap"

	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/extract"
	"mailsuite/backend/internal/imap"
	"mailsuite/backend/internal/segment"
)

// FetchEmails 按条件抓取当前邮箱的邮件并落盘
//
// 返回最新优先的邮件列表。单封邮件抓取或解析失败时记录日志并
// 跳过，不中断整批；连接或搜索失败才返回错误。
func (s *Suite) FetchEmails(ctx context.Context, criteria string, limit int) ([]*domain.Message, error) {
	if s.fetcher == nil {
		return nil, ErrNotConnected
	}

	uids, err := s.fetcher.SearchUIDs(criteria, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]*domain.Message, 0, len(uids))
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return messages, err
		}

		msg, err := s.fetchOne(ctx, uid)
		if err != nil {
			s.logger.Warn("failed to fetch email, skipping",
				zap.Uint32("uid", uint32(uid)), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}

	s.logger.Info("emails fetched",
		zap.String("criteria", criteria),
		zap.Int("found", len(uids)),
		zap.Int("stored", len(messages)))
	return messages, nil
}

// fetchOne 抓取一封邮件：解析 MIME、保存附件、提取文本并落盘
func (s *Suite) fetchOne(_ context.Context, uid goimap.UID) (*domain.Message, error) {
	raw, err := s.fetcher.FetchRaw(uid)
	if err != nil {
		return nil, err
	}

	parsed, err := imap.ParseMessage(raw)
	if err != nil {
		return nil, err
	}

	id := strconv.FormatUint(uint64(uid), 10)
	// 重新下载覆盖整个文件夹，旧摘要作废
	if _, err := s.store.ResetFolder(id); err != nil {
		return nil, err
	}
	s.summaries.Invalidate(id)

	body := parsed.Text
	if strings.TrimSpace(body) == "" && parsed.HTML != "" {
		body = imap.HTMLToText(parsed.HTML)
	}

	var segments []segment.AttachmentText
	var attachments []*domain.Attachment
	for _, att := range parsed.Attachments {
		path, err := s.store.SaveAttachment(id, att.Filename, att.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to save attachment %s: %w", att.Filename, err)
		}

		text := extract.Text(path)
		savedName := filepath.Base(path)
		segments = append(segments, segment.AttachmentText{Filename: savedName, Text: text})
		attachments = append(attachments, &domain.Attachment{
			Filename:      savedName,
			Filepath:      path,
			Size:          int64(len(att.Content)),
			ContentType:   att.ContentType,
			ExtractedText: text,
		})
	}

	combined := segment.Encode(body, segments)
	if err := s.store.SaveBody(id, combined); err != nil {
		return nil, err
	}
	if err := s.store.SaveHTML(id, parsed.HTML); err != nil {
		return nil, err
	}
	if err := s.store.SaveMetadata(id, domain.Metadata{
		ID:              id,
		Subject:         parsed.Subject,
		Sender:          parsed.From,
		Recipient:       parsed.To,
		Date:            parsed.Date,
		DownloadedAt:    time.Now(),
		HasHTML:         parsed.HTML != "",
		AttachmentCount: len(attachments),
	}); err != nil {
		return nil, err
	}

	return &domain.Message{
		ID:              id,
		Subject:         parsed.Subject,
		Sender:          parsed.From,
		Recipient:       parsed.To,
		Date:            parsed.Date,
		BodyText:        combined,
		BodyHTML:        parsed.HTML,
		Attachments:     attachments,
		HasAttachments:  len(attachments) > 0,
		AttachmentCount: len(attachments),
		DownloadFolder:  s.store.FolderPath(id),
	}, nil
}

// parseUID 把邮件 id 解析为 IMAP UID
func parseUID(id string) (goimap.UID, error) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid email id %q: %w", id, err)
	}
	return goimap.UID(n), nil
}
