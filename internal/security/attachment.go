// Package security 提供外发附件的安全检查。
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AttachmentGuard 外发附件检查器，拦截可执行类扩展名和超大文件
type AttachmentGuard struct {
	maxFileSize         int64
	dangerousExtensions map[string]bool
}

// NewAttachmentGuard 创建附件检查器，maxFileSize <= 0 时用默认 25MB
func NewAttachmentGuard(maxFileSize int64) *AttachmentGuard {
	if maxFileSize <= 0 {
		maxFileSize = 25 * 1024 * 1024
	}
	return &AttachmentGuard{
		maxFileSize: maxFileSize,
		dangerousExtensions: map[string]bool{
			".exe": true,
			".bat": true,
			".cmd": true,
			".scr": true,
			".pif": true,
			".com": true,
			".vbs": true,
			".js":  true,
			".jar": true,
			".msi": true,
			".ps1": true,
			".sh":  true,
		},
	}
}

// Check 检查一个待发送的附件，返回是否允许以及拒绝原因
func (g *AttachmentGuard) Check(filename string, size int64) (bool, string) {
	ext := strings.ToLower(filepath.Ext(filename))
	if g.dangerousExtensions[ext] {
		return false, "dangerous file extension: " + ext
	}
	if size > g.maxFileSize {
		return false, fmt.Sprintf("file too large: %d bytes (limit %d)", size, g.maxFileSize)
	}
	return true, ""
}
