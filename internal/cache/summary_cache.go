// Package cache 提供摘要结果的内存缓存。
package cache

import (
	"strings"
	"sync"
	"time"

	"mailsuite/backend/internal/summarize"
)

const defaultMaxEntries = 256

type entry struct {
	summary   *summarize.EmailSummary
	expiresAt time.Time
}

// SummaryCache 按邮件 ID、摘要范围和风格键控的缓存。
// 同一封邮件以相同参数重复摘要时直接命中，不再调用模型接口。
type SummaryCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
}

// NewSummaryCache 创建摘要缓存，ttl 为条目有效期
func NewSummaryCache(ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SummaryCache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: defaultMaxEntries,
	}
}

// Key 由邮件 ID、摘要范围和风格拼出缓存键
func Key(emailID, scope, style string) string {
	return strings.Join([]string{emailID, scope, style}, "|")
}

// Get 查找缓存，过期条目视为未命中并顺手删除
func (c *SummaryCache) Get(key string) (*summarize.EmailSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.summary, true
}

// Set 写入缓存，容量满时先清理过期条目，仍然超限则丢弃最早过期的条目
func (c *SummaryCache) Set(key string, summary *summarize.EmailSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry{summary: summary, expiresAt: time.Now().Add(c.ttl)}
}

// Invalidate 删除某封邮件的全部缓存条目，邮件被重新下载后调用
func (c *SummaryCache) Invalidate(emailID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := emailID + "|"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len 返回当前条目数
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SummaryCache) evictLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = k
			oldest = e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
