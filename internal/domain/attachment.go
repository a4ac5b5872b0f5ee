package domain

// Attachment 表示邮件附件及其文本抽取结果。
type Attachment struct {
	Filename      string `json:"filename"`                // 清洗后的文件名（目录内唯一，落盘后不可变）
	Filepath      string `json:"filepath,omitempty"`      // 磁盘路径，归属邮件目录
	Size          int64  `json:"size"`                    // 大小（字节）
	ContentType   string `json:"contentType,omitempty"`   // MIME 类型
	ExtractedText string `json:"extractedText,omitempty"` // 抽取文本；失败时为带括号的标记串，抽取从不报错
}
