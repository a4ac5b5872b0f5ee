// Package sanitize 提供文件名清洗工具，保证来自邮件的附件名
// 可以安全地作为本地文件名使用。
package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
)

// maxNameLength 清洗后文件名的最大字符数（按 Unicode 字符计）
const maxNameLength = 200

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Filename 将任意字符串清洗为安全的文件名
//
// 处理规则：
//  1. 替换文件系统保留字符 < > : " / \ | ? * 为下划线
//  2. 替换空格为下划线
//  3. 超过 200 个字符时截断主体部分，保留扩展名
//
// 清洗是幂等的：对已清洗的名称再次清洗得到相同结果。
func Filename(name string) string {
	cleaned := unsafeChars.ReplaceAllString(name, "_")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")

	if len([]rune(cleaned)) <= maxNameLength {
		return cleaned
	}

	ext := filepath.Ext(cleaned)
	stem := strings.TrimSuffix(cleaned, ext)

	extRunes := []rune(ext)
	if len(extRunes) >= maxNameLength {
		// 极端情况：扩展名本身超长，直接截断整体
		return string([]rune(cleaned)[:maxNameLength])
	}

	stemRunes := []rune(stem)
	keep := maxNameLength - len(extRunes)
	if keep > len(stemRunes) {
		keep = len(stemRunes)
	}
	return string(stemRunes[:keep]) + ext
}
