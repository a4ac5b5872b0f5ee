package domain

import "math"

// SummaryScope 表示摘要的覆盖范围。
type SummaryScope string

const (
	ScopeBody        SummaryScope = "body"        // 仅正文
	ScopeAttachments SummaryScope = "attachments" // 仅附件
	ScopeBoth        SummaryScope = "both"        // 正文 + 附件
)

// Summary 表示一次摘要调用的结果。
type Summary struct {
	Scope            SummaryScope `json:"scope,omitempty"`
	Style            string       `json:"style,omitempty"`
	Text             string       `json:"summary"`
	OriginalTokens   int          `json:"originalTokens"`
	SummaryTokens    int          `json:"summaryTokens"`
	CompressionRatio float64      `json:"compressionRatio"` // summary/original × 100，保留两位小数
}

// AttachmentSummary 表示单个附件的摘要结果。
type AttachmentSummary struct {
	Index            int     `json:"index"`
	Filename         string  `json:"filename"`
	Summary          string  `json:"summary"`
	OriginalTokens   int     `json:"originalTokens"`
	SummaryTokens    int     `json:"summaryTokens"`
	CompressionRatio float64 `json:"compressionRatio"`
}

// CompressionRatio 计算压缩率（百分比，两位小数）。
// originalTokens 为 0 时返回 0，避免除零。
func CompressionRatio(summaryTokens, originalTokens int) float64 {
	if originalTokens == 0 {
		return 0
	}
	return math.Round(float64(summaryTokens)/float64(originalTokens)*100*100) / 100
}
