// Package extract 从附件文件中提取纯文本。
//
// 支持的格式:
//   - .pdf: PDF 文本提取
//   - .docx / .doc: Word 文档 (word/document.xml)
//   - .xlsx / .xls: Excel 表格 (excelize)
//   - .pptx / .ppt: PowerPoint 幻灯片 (ppt/slides)
//   - .txt .csv .log .md .json .xml .html .htm: 文本文件，带编码探测
//
// 提取是全函数：任何失败都折叠为可读的占位文本，从不返回错误。
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format 表示附件文件的提取格式分类
type Format string

const (
	FormatPDF        Format = "pdf"
	FormatWord       Format = "word"
	FormatExcel      Format = "excel"
	FormatPowerPoint Format = "powerpoint"
	FormatText       Format = "text"
	FormatUnknown    Format = "unknown"
)

// Detect 根据文件扩展名判断提取格式
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatWord
	case ".xlsx", ".xls":
		return FormatExcel
	case ".pptx", ".ppt":
		return FormatPowerPoint
	case ".txt", ".csv", ".log", ".md", ".json", ".xml", ".html", ".htm":
		return FormatText
	default:
		return FormatUnknown
	}
}

// Supported 判断该文件名是否属于可提取文本的格式
func Supported(filename string) bool {
	return Detect(filename) != FormatUnknown
}

// Text 提取文件的纯文本内容
//
// 无法提取时返回占位文本而不是错误：
//   - 不支持的扩展名: "[<ext> format is not supported for text extraction]"
//   - 某格式提取失败: "[PDF extraction failed: <原因>]" 等
//
// 调用方可以把返回值直接写入合并文本或摘要输入。
func Text(path string) string {
	switch Detect(path) {
	case FormatPDF:
		text, err := pdfText(path)
		if err != nil {
			return fmt.Sprintf("[PDF extraction failed: %v]", err)
		}
		return text
	case FormatWord:
		text, err := wordText(path)
		if err != nil {
			return fmt.Sprintf("[Word extraction failed: %v]", err)
		}
		return text
	case FormatExcel:
		text, err := excelText(path)
		if err != nil {
			return fmt.Sprintf("[Excel extraction failed: %v]", err)
		}
		return text
	case FormatPowerPoint:
		text, err := powerPointText(path)
		if err != nil {
			return fmt.Sprintf("[PowerPoint extraction failed: %v]", err)
		}
		return text
	case FormatText:
		text, err := plainText(path)
		if err != nil {
			return "[text file encoding detection failed]"
		}
		return text
	default:
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if ext == "" {
			ext = "unknown"
		}
		return fmt.Sprintf("[%s format is not supported for text extraction]", ext)
	}
}
