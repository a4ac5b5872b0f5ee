package summarize

import "strings"

// SplitByTokens 把长文本按句子边界切分为不超过 maxTokens 的块
//
// 以 ". " 作为句子分隔符贪心累积，单个句子超出预算时独立成块。
// 不在句子中间切断，因此块的 token 数可能略超预算。
func SplitByTokens(text string, maxTokens int, counter TokenCounter) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if counter.Count(text) <= maxTokens {
		return []string{text}
	}

	sentences := strings.Split(text, ". ")
	for i := 0; i < len(sentences)-1; i++ {
		sentences[i] += ". "
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	for _, sentence := range sentences {
		tokens := counter.Count(sentence)
		if currentTokens > 0 && currentTokens+tokens > maxTokens {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
		current.WriteString(sentence)
		currentTokens += tokens
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
