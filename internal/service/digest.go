package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/smtp"
)

// ErrNothingSummarized 表示抓取到的邮件没有一封摘要成功
var ErrNothingSummarized = errors.New("no emails could be summarized")

// DigestEntry 是摘要报告中单封邮件的条目
type DigestEntry struct {
	ID               string  `json:"id"`
	Subject          string  `json:"subject"`
	Sender           string  `json:"sender"`
	Date             string  `json:"date"`
	Summary          string  `json:"summary"`
	OriginalTokens   int     `json:"originalTokens"`
	SummaryTokens    int     `json:"summaryTokens"`
	CompressionRatio float64 `json:"compressionRatio"`
}

// SummarizeEmails 逐封摘要一组邮件，单封失败记录日志后跳过
func (s *Suite) SummarizeEmails(ctx context.Context, messages []*domain.Message, style string) ([]DigestEntry, error) {
	if s.summarizer == nil {
		return nil, ErrSummarizerUnavailable
	}

	entries := make([]DigestEntry, 0, len(messages))
	for _, msg := range messages {
		summary, err := s.summarizer.SummarizeText(ctx, msg.BodyText, style)
		if err != nil {
			s.logger.Warn("failed to summarize email, skipping",
				zap.String("email_id", msg.ID), zap.Error(err))
			continue
		}
		entries = append(entries, DigestEntry{
			ID:               msg.ID,
			Subject:          msg.Subject,
			Sender:           msg.Sender,
			Date:             msg.Date,
			Summary:          summary.Text,
			OriginalTokens:   summary.OriginalTokens,
			SummaryTokens:    summary.SummaryTokens,
			CompressionRatio: summary.CompressionRatio,
		})
	}
	return entries, nil
}

// PipelineOptions 控制抓取-摘要-转发流水线
type PipelineOptions struct {
	Criteria   string   // IMAP 搜索条件
	Limit      int      // 最多处理的邮件数
	Style      string   // 摘要风格
	Recipient  []string // 报告收件人
	SaveResult bool     // 是否把执行结果写为 JSON 文件
}

// PipelineResult 是一次流水线执行的结果
type PipelineResult struct {
	Fetched    int              `json:"fetched"`
	Summarized int              `json:"summarized"`
	Entries    []DigestEntry    `json:"entries"`
	SendResult *smtp.SendResult `json:"sendResult,omitempty"`
	ResultFile string           `json:"resultFile,omitempty"`
}

// FetchSummarizeSend 执行完整流水线：抓取邮件、逐封摘要、把
// 汇总报告发送给指定收件人
//
// 没有邮件可抓取时返回 ErrNoEmails，没有一封摘要成功时返回
// ErrNothingSummarized，两种情况都不发送报告。
func (s *Suite) FetchSummarizeSend(ctx context.Context, opts PipelineOptions) (*PipelineResult, error) {
	if s.summarizer == nil {
		return nil, ErrSummarizerUnavailable
	}

	messages, err := s.FetchEmails(ctx, opts.Criteria, opts.Limit)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrNoEmails
	}

	entries, err := s.SummarizeEmails(ctx, messages, opts.Style)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNothingSummarized
	}

	result := &PipelineResult{
		Fetched:    len(messages),
		Summarized: len(entries),
		Entries:    entries,
	}

	sendResult, err := s.SendEmail(smtp.SendInput{
		To:      opts.Recipient,
		Subject: fmt.Sprintf("메일 요약 리포트 (%d건)", len(entries)),
		Body:    buildDigestBody(entries),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send digest: %w", err)
	}
	result.SendResult = sendResult

	if opts.SaveResult {
		name := fmt.Sprintf("mail_workflow_result_%s.json", time.Now().Format("20060102_150405"))
		path := filepath.Join(s.store.Root(), name)
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode workflow result: %w", err)
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			// 报告已发送成功，落盘失败只记录警告
			s.logger.Warn("failed to write workflow result file",
				zap.String("path", path), zap.Error(err))
		} else {
			result.ResultFile = path
		}
	}

	return result, nil
}

// buildDigestBody 把各邮件摘要拼装为报告正文
func buildDigestBody(entries []DigestEntry) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("총 %d건의 이메일 요약입니다.\n", len(entries)))
	for i, entry := range entries {
		b.WriteString(fmt.Sprintf("\n[%d] %s\n", i+1, entry.Subject))
		b.WriteString(fmt.Sprintf("보낸사람: %s\n", entry.Sender))
		if entry.Date != "" {
			b.WriteString(fmt.Sprintf("날짜: %s\n", entry.Date))
		}
		b.WriteString("요약:\n")
		b.WriteString(entry.Summary)
		b.WriteString("\n")
	}
	return b.String()
}

// BatchOptions 控制整箱批处理
type BatchOptions struct {
	Criteria  string // IMAP 搜索条件
	BatchSize int    // 每批处理的邮件数，默认 10
	Style     string // 摘要风格
	OutputDir string // 报告输出目录，默认下载根目录下的 reports
}

// BatchReport 是批处理结束后 processing_summary.json 的内容
type BatchReport struct {
	Criteria     string    `json:"criteria"`
	TotalEmails  int       `json:"totalEmails"`
	Processed    int       `json:"processed"`
	Summarized   int       `json:"summarized"`
	Batches      int       `json:"batches"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	ElapsedSecs  float64   `json:"elapsedSeconds"`
	BatchFiles   []string  `json:"batchFiles"`
	FailedEmails []string  `json:"failedEmails,omitempty"`
}

// ProcessMailbox 分批处理整个邮箱：按批抓取、摘要并把每批结果
// 写为 batch_NNN.json，最后写出 processing_summary.json
//
// 单封邮件失败记录后继续，写批次文件失败则中止整个批处理。
func (s *Suite) ProcessMailbox(ctx context.Context, opts BatchOptions) (*BatchReport, error) {
	if s.summarizer == nil {
		return nil, ErrSummarizerUnavailable
	}
	if s.fetcher == nil {
		return nil, ErrNotConnected
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(s.store.Root(), "reports")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	uids, err := s.fetcher.SearchUIDs(opts.Criteria, 0)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, ErrNoEmails
	}

	report := &BatchReport{
		Criteria:    opts.Criteria,
		TotalEmails: len(uids),
		StartedAt:   time.Now(),
	}

	for start := 0; start < len(uids); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + opts.BatchSize
		if end > len(uids) {
			end = len(uids)
		}
		batchNum := start/opts.BatchSize + 1

		var entries []DigestEntry
		for _, uid := range uids[start:end] {
			msg, err := s.fetchOne(ctx, uid)
			if err != nil {
				s.logger.Warn("failed to fetch email in batch, skipping",
					zap.Uint32("uid", uint32(uid)), zap.Error(err))
				report.FailedEmails = append(report.FailedEmails, fmt.Sprintf("%d", uid))
				continue
			}
			report.Processed++

			summary, err := s.summarizer.SummarizeText(ctx, msg.BodyText, opts.Style)
			if err != nil {
				s.logger.Warn("failed to summarize email in batch, skipping",
					zap.String("email_id", msg.ID), zap.Error(err))
				report.FailedEmails = append(report.FailedEmails, msg.ID)
				continue
			}
			report.Summarized++

			entries = append(entries, DigestEntry{
				ID:               msg.ID,
				Subject:          msg.Subject,
				Sender:           msg.Sender,
				Date:             msg.Date,
				Summary:          summary.Text,
				OriginalTokens:   summary.OriginalTokens,
				SummaryTokens:    summary.SummaryTokens,
				CompressionRatio: summary.CompressionRatio,
			})
		}

		batchFile := filepath.Join(outputDir, fmt.Sprintf("batch_%03d.json", batchNum))
		if err := writeJSON(batchFile, entries); err != nil {
			return nil, fmt.Errorf("failed to write batch %d: %w", batchNum, err)
		}
		report.Batches++
		report.BatchFiles = append(report.BatchFiles, filepath.Base(batchFile))

		s.logger.Info("batch processed",
			zap.Int("batch", batchNum),
			zap.Int("emails", end-start),
			zap.Int("summarized", len(entries)))
	}

	report.FinishedAt = time.Now()
	report.ElapsedSecs = report.FinishedAt.Sub(report.StartedAt).Seconds()

	summaryFile := filepath.Join(outputDir, "processing_summary.json")
	if err := writeJSON(summaryFile, report); err != nil {
		return nil, fmt.Errorf("failed to write processing summary: %w", err)
	}
	return report, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
