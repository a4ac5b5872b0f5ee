package summarize

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter 统计文本在某个模型下的 token 数量
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter 基于 tiktoken 的精确计数器
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter 为指定模型创建计数器
//
// 模型没有对应的编码表时退回估算计数器（约 4 字符一个 token）。
func NewTokenCounter(model string) TokenCounter {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return EstimateCounter{}
	}
	return &TiktokenCounter{encoding: encoding}
}

// Count 返回文本的精确 token 数
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateCounter 粗略估算 token 数的兜底实现
type EstimateCounter struct{}

// Count 按每 4 个字符约一个 token 估算
func (EstimateCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return n/4 + 1
}

// modelContextTokens 各模型的上下文窗口大小
var modelContextTokens = map[string]int{
	"gpt-3.5-turbo":     4096,
	"gpt-3.5-turbo-16k": 16384,
	"gpt-4":             8192,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
}

// defaultContextTokens 未知模型的保守上下文预算
const defaultContextTokens = 4096

// ContextBudget 返回模型的上下文窗口 token 数
func ContextBudget(model string) int {
	if budget, ok := modelContextTokens[model]; ok {
		return budget
	}
	return defaultContextTokens
}
