// Package segment 负责把邮件正文和附件提取文本合并为单一文本，
// 以及从合并文本中还原出各个段落。
package segment

import "strings"

// Marker 附件段落的起始标记，出现在合并文本中每个附件段之前
const Marker = "=== 첨부파일:"

// separator 附件段之间的分隔符（空行 + 标记）
const separator = "\n\n" + Marker

// AttachmentText 表示合并文本中的一个附件段
type AttachmentText struct {
	Filename string // 附件文件名
	Text     string // 该附件的提取文本
}

// Encode 将正文和附件文本合并为单一文本
//
// 输出格式为（正文去除首尾空白）：
//
//	<body>
//
//	=== 첨부파일: <filename> ===
//	<text>
//
// 没有附件时输出就是去除首尾空白的正文。
func Encode(body string, attachments []AttachmentText) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(body))
	for _, att := range attachments {
		b.WriteString("\n\n")
		b.WriteString(Marker)
		b.WriteString(" ")
		b.WriteString(att.Filename)
		b.WriteString(" ===\n")
		b.WriteString(att.Text)
	}
	return b.String()
}

// Decode 从合并文本中还原正文和附件段
//
// 按附件标记分割合并文本。每个附件段的第一行是文件名头
// （去掉 "===" 并去除空白后即文件名），其余为该附件的文本
// （去除首尾空白）。没有标记时整个输入作为正文返回。
func Decode(combined string) (body string, attachments []AttachmentText) {
	parts := strings.Split(combined, separator)
	body = strings.TrimSpace(parts[0])

	for _, part := range parts[1:] {
		header, text, found := strings.Cut(part, "\n")
		if !found {
			text = ""
		}
		filename := strings.TrimSpace(strings.ReplaceAll(header, "===", ""))
		attachments = append(attachments, AttachmentText{
			Filename: filename,
			Text:     strings.TrimSpace(text),
		})
	}
	return body, attachments
}
