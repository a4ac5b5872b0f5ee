// Package maildir 把下载的邮件持久化为本地目录结构。
//
// 每封邮件占用一个文件夹:
//
//	<root>/email_<id>/
//	    body.txt          合并文本（正文 + 附件提取文本）
//	    body.html         HTML 正文（可选）
//	    metadata.json     邮件元数据
//	    <附件文件>         清洗后的原始附件
package maildir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/sanitize"
)

const (
	bodyFile     = "body.txt"
	htmlFile     = "body.html"
	metadataFile = "metadata.json"
)

// ErrNotFound 表示请求的邮件或附件在磁盘上不存在
var ErrNotFound = errors.New("not found")

// reservedNames 邮件文件夹内的保留文件名，附件不允许占用
var reservedNames = map[string]bool{
	bodyFile:     true,
	htmlFile:     true,
	metadataFile: true,
}

// Store 管理下载根目录下的邮件文件夹
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore 创建存储并确保根目录存在
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root 返回下载根目录路径
func (s *Store) Root() string {
	return s.root
}

// FolderPath 返回某封邮件的文件夹路径（不保证存在）
func (s *Store) FolderPath(id string) string {
	return filepath.Join(s.root, "email_"+id)
}

// CreateFolder 创建某封邮件的文件夹并返回路径
func (s *Store) CreateFolder(id string) (string, error) {
	dir := s.FolderPath(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create email folder: %w", err)
	}
	return dir, nil
}

// ResetFolder 清空并重建某封邮件的文件夹
//
// 重新下载同一封邮件前调用，保证旧附件和正文不残留。
func (s *Store) ResetFolder(id string) (string, error) {
	dir := s.FolderPath(id)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear email folder: %w", err)
	}
	return s.CreateFolder(id)
}

// Exists 判断某封邮件是否已经下载到磁盘
func (s *Store) Exists(id string) bool {
	info, err := os.Stat(s.FolderPath(id))
	return err == nil && info.IsDir()
}

// SaveBody 保存合并文本到 body.txt
func (s *Store) SaveBody(id, combined string) error {
	dir, err := s.CreateFolder(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, bodyFile), []byte(combined), 0644); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}
	return nil
}

// SaveHTML 保存 HTML 正文到 body.html，html 为空时不写文件
func (s *Store) SaveHTML(id, html string) error {
	if html == "" {
		return nil
	}
	dir, err := s.CreateFolder(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, htmlFile), []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write html body: %w", err)
	}
	return nil
}

// SaveMetadata 保存邮件元数据到 metadata.json
func (s *Store) SaveMetadata(id string, meta domain.Metadata) error {
	dir, err := s.CreateFolder(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// SaveAttachment 把附件内容写入邮件文件夹
//
// 文件名先经过清洗；与保留文件名或已有附件冲突时，在扩展名前
// 追加 "_1"、"_2" 等后缀。返回实际使用的完整路径。
func (s *Store) SaveAttachment(id, filename string, data []byte) (string, error) {
	dir, err := s.CreateFolder(id)
	if err != nil {
		return "", err
	}

	name := sanitize.Filename(filename)
	if name == "" {
		name = "attachment"
	}

	path := s.uniquePath(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return path, nil
}

// uniquePath 为附件选择一个不冲突的路径
func (s *Store) uniquePath(dir, name string) string {
	candidate := name
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 1; ; n++ {
		if !reservedNames[candidate] {
			if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
				return filepath.Join(dir, candidate)
			}
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
}

// AttachmentPath 返回磁盘上某个附件的路径
//
// 附件不存在或名字是保留文件名时返回 ErrNotFound。
func (s *Store) AttachmentPath(id, filename string) (string, error) {
	if reservedNames[filename] || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return "", ErrNotFound
	}
	path := filepath.Join(s.FolderPath(id), filename)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

// LoadMessage 从磁盘还原一封已下载的邮件
//
// 读取 metadata.json、body.txt 和 body.html，并把文件夹中除
// 保留文件之外的文件作为附件列出。邮件未下载时返回 ErrNotFound。
func (s *Store) LoadMessage(id string) (*domain.Message, error) {
	dir := s.FolderPath(id)
	if _, err := os.Stat(dir); err != nil {
		return nil, ErrNotFound
	}

	var meta domain.Metadata
	metaRaw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err == nil {
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			s.logger.Warn("corrupt metadata.json, using defaults",
				zap.String("email_id", id), zap.Error(err))
		}
	}

	body := ""
	if raw, err := os.ReadFile(filepath.Join(dir, bodyFile)); err == nil {
		body = string(raw)
	}

	html := ""
	if raw, err := os.ReadFile(filepath.Join(dir, htmlFile)); err == nil {
		html = string(raw)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list email folder: %w", err)
	}

	var attachments []*domain.Attachment
	for _, entry := range entries {
		if entry.IsDir() || reservedNames[entry.Name()] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		attachments = append(attachments, &domain.Attachment{
			Filename: entry.Name(),
			Filepath: filepath.Join(dir, entry.Name()),
			Size:     info.Size(),
		})
	}
	sort.Slice(attachments, func(i, j int) bool {
		return attachments[i].Filename < attachments[j].Filename
	})

	msg := &domain.Message{
		ID:              id,
		Subject:         meta.Subject,
		Sender:          meta.Sender,
		Recipient:       meta.Recipient,
		Date:            meta.Date,
		BodyText:        body,
		BodyHTML:        html,
		Attachments:     attachments,
		HasAttachments:  len(attachments) > 0,
		AttachmentCount: len(attachments),
		DownloadFolder:  dir,
	}
	return msg, nil
}

// ListMessageIDs 列出磁盘上所有已下载邮件的 ID（按 ID 排序）
func (s *Store) ListMessageIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list download root: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if id, ok := strings.CutPrefix(entry.Name(), "email_"); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
