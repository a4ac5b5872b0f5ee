// Package summarize 调用语言模型生成邮件和附件的文本摘要，
// 并负责超长文本的分块与 token 预算控制。
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/extract"
	"mailsuite/backend/internal/segment"
)

var (
	// ErrEmptyText 表示没有可供摘要的文本
	ErrEmptyText = errors.New("no text to summarize")
	// ErrNoAttachments 表示邮件没有带提取文本的附件
	ErrNoAttachments = errors.New("no attachments to summarize")
)

const (
	// completionReserveTokens 为模型回复预留的上下文空间
	completionReserveTokens = 1000
	// chunkBudgetTokens 单个分块的 token 预算
	chunkBudgetTokens = 3000
	// recombineThreshold 合并摘要超过该 token 数时再压缩一轮
	recombineThreshold = 3000
	// maxCompletionTokens 单次请求允许的回复长度
	maxCompletionTokens = 1000
)

// stylePrompts 各摘要风格对应的系统提示
var stylePrompts = map[string]string{
	"brief":    "You are an email summarization assistant. Summarize the following content in one or two concise sentences.",
	"detailed": "You are an email summarization assistant. Write a thorough summary of the following content, covering the key points, decisions, and any action items.",
	"bullet":   "You are an email summarization assistant. Summarize the following content as a short list of bullet points, one key fact per line.",
	"korean":   "You are an email summarization assistant. Summarize the following content in Korean, covering the key points and any action items.",
}

// EmailSummary 表示对整封邮件的摘要结果
type EmailSummary struct {
	Scope       domain.SummaryScope        `json:"scope"`
	Body        *domain.Summary            `json:"bodySummary,omitempty"`
	Attachments []domain.AttachmentSummary `json:"attachmentSummaries,omitempty"`
}

// Summarizer 组合生成器、token 计数器和调用限流
type Summarizer struct {
	generator Generator
	counter   TokenCounter
	model     string
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New 创建摘要器
//
// interval 是相邻模型调用之间的最小间隔，用于平滑外部 API 的调用节奏。
func New(generator Generator, model string, interval time.Duration, logger *zap.Logger) *Summarizer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Summarizer{
		generator: generator,
		counter:   NewTokenCounter(model),
		model:     model,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		logger:    logger,
	}
}

// Model 返回摘要使用的模型名
func (s *Summarizer) Model() string {
	return s.model
}

// Counter 返回摘要器使用的 token 计数器
func (s *Summarizer) Counter() TokenCounter {
	return s.counter
}

// SummarizeText 生成一段文本的摘要
//
// 文本超出模型上下文预算时先按句子切块逐块摘要，合并结果仍然
// 过长时再压缩一轮。未知风格按 detailed 处理。
func (s *Summarizer) SummarizeText(ctx context.Context, text, style string) (*domain.Summary, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	prompt, ok := stylePrompts[style]
	if !ok {
		style = "detailed"
		prompt = stylePrompts[style]
	}

	originalTokens := s.counter.Count(text)
	budget := ContextBudget(s.model) - completionReserveTokens

	var summary string
	if originalTokens <= budget {
		out, err := s.generate(ctx, prompt, text)
		if err != nil {
			return nil, err
		}
		summary = out
	} else {
		chunks := SplitByTokens(text, chunkBudgetTokens, s.counter)
		s.logger.Info("text exceeds context budget, chunking",
			zap.Int("original_tokens", originalTokens),
			zap.Int("chunks", len(chunks)))

		parts := make([]string, 0, len(chunks))
		for i, chunk := range chunks {
			out, err := s.generate(ctx, prompt, chunk)
			if err != nil {
				return nil, fmt.Errorf("failed to summarize chunk %d/%d: %w", i+1, len(chunks), err)
			}
			parts = append(parts, out)
		}
		summary = strings.Join(parts, "\n\n")

		if s.counter.Count(summary) > recombineThreshold {
			out, err := s.generate(ctx, prompt, summary)
			if err != nil {
				return nil, fmt.Errorf("failed to compress combined summary: %w", err)
			}
			summary = out
		}
	}

	summaryTokens := s.counter.Count(summary)
	return &domain.Summary{
		Style:            style,
		Text:             summary,
		OriginalTokens:   originalTokens,
		SummaryTokens:    summaryTokens,
		CompressionRatio: domain.CompressionRatio(summaryTokens, originalTokens),
	}, nil
}

// SummarizeEmail 按范围摘要一封已下载的邮件
//
// scope 为 body 时仅摘要正文，attachments 时逐个摘要附件提取文本，
// both 时两者都做。合并文本按附件分隔标记还原出各段落。
func (s *Summarizer) SummarizeEmail(ctx context.Context, msg *domain.Message, scope domain.SummaryScope, style string) (*EmailSummary, error) {
	body, attachments := segment.Decode(msg.BodyText)

	result := &EmailSummary{Scope: scope}

	if scope == domain.ScopeBody || scope == domain.ScopeBoth {
		if strings.TrimSpace(body) == "" {
			if scope == domain.ScopeBody {
				return nil, ErrEmptyText
			}
		} else {
			summary, err := s.SummarizeText(ctx, composeBody(msg, body), style)
			if err != nil {
				return nil, fmt.Errorf("failed to summarize body: %w", err)
			}
			summary.Scope = domain.ScopeBody
			result.Body = summary
		}
	}

	if scope == domain.ScopeAttachments || scope == domain.ScopeBoth {
		summaries, err := s.summarizeSegments(ctx, attachments, style)
		if err != nil {
			return nil, err
		}
		if len(summaries) == 0 && scope == domain.ScopeAttachments {
			return nil, ErrNoAttachments
		}
		result.Attachments = summaries
	}

	if result.Body == nil && len(result.Attachments) == 0 {
		return nil, ErrEmptyText
	}
	return result, nil
}

// composeBody 在正文前加上邮件头上下文，模型摘要时能利用主题和发件人
func composeBody(msg *domain.Message, body string) string {
	var b strings.Builder
	if msg.Subject != "" {
		b.WriteString("제목: " + msg.Subject + "\n")
	}
	if msg.Sender != "" {
		b.WriteString("보낸사람: " + msg.Sender + "\n")
	}
	if msg.Date != "" {
		b.WriteString("날짜: " + msg.Date + "\n")
	}
	if b.Len() == 0 {
		return body
	}
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}

// summarizeSegments 逐段摘要附件提取文本，空文本的段落跳过
func (s *Summarizer) summarizeSegments(ctx context.Context, segments []segment.AttachmentText, style string) ([]domain.AttachmentSummary, error) {
	var summaries []domain.AttachmentSummary
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			s.logger.Debug("skipping attachment with empty text",
				zap.String("filename", seg.Filename))
			continue
		}
		summary, err := s.SummarizeText(ctx, seg.Text, style)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize attachment %s: %w", seg.Filename, err)
		}
		summaries = append(summaries, domain.AttachmentSummary{
			Index:            i + 1,
			Filename:         seg.Filename,
			Summary:          summary.Text,
			OriginalTokens:   summary.OriginalTokens,
			SummaryTokens:    summary.SummaryTokens,
			CompressionRatio: summary.CompressionRatio,
		})
	}
	return summaries, nil
}

// SummarizeAttachmentFile 提取磁盘上单个附件的文本并生成摘要
func (s *Summarizer) SummarizeAttachmentFile(ctx context.Context, path, style string) (*domain.Summary, error) {
	text := extract.Text(path)
	summary, err := s.SummarizeText(ctx, text, style)
	if err != nil {
		return nil, err
	}
	summary.Scope = domain.ScopeAttachments
	return summary, nil
}

// generate 限流后发起一次模型调用
func (s *Summarizer) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait interrupted: %w", err)
	}
	out, err := s.generator.Generate(ctx, s.model, systemPrompt, userPrompt, maxCompletionTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
