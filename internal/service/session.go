package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailsuite/backend/internal/config"
	"mailsuite/backend/internal/storage/maildir"
	"mailsuite/backend/internal/summarize"
)

// Session 把一个 Suite 绑定到不透明的会话标识
type Session struct {
	ID        string
	Suite     *Suite
	CreatedAt time.Time
	LastSeen  time.Time
}

// SessionStore 管理 Web 层的会话集合
//
// 会话标识是随机 UUID，过期会话由后台清扫协程登出并移除。
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration

	cfg        *config.Config
	store      *maildir.Store
	summarizer *summarize.Summarizer
	logger     *zap.Logger
}

// NewSessionStore 创建会话仓库，ttl 是会话的空闲过期时间
func NewSessionStore(cfg *config.Config, store *maildir.Store, summarizer *summarize.Summarizer, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		cfg:        cfg,
		store:      store,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Create 创建新会话及其专属的 Suite
func (st *SessionStore) Create() *Session {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Suite:     NewSuite(st.cfg, st.store, st.summarizer, st.logger),
		CreatedAt: now,
		LastSeen:  now,
	}

	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()

	st.logger.Debug("session created", zap.String("session_id", session.ID))
	return session
}

// Get 按标识取会话并刷新最近使用时间
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	session, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	session.LastSeen = time.Now()
	return session, true
}

// Evict 移除会话并登出其邮箱连接
func (st *SessionStore) Evict(id string) {
	st.mu.Lock()
	session, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return
	}
	if err := session.Suite.Logout(); err != nil {
		st.logger.Debug("session logout failed",
			zap.String("session_id", id), zap.Error(err))
	}
	st.logger.Debug("session evicted", zap.String("session_id", id))
}

// Len 返回当前活跃会话数
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// StartJanitor 启动后台清扫协程，定期移除空闲超时的会话
func (st *SessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.evictExpired()
			}
		}
	}()
}

// evictExpired 移除所有空闲超过 ttl 的会话
func (st *SessionStore) evictExpired() {
	cutoff := time.Now().Add(-st.ttl)

	st.mu.Lock()
	var expired []string
	for id, session := range st.sessions {
		if session.LastSeen.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	st.mu.Unlock()

	for _, id := range expired {
		st.Evict(id)
	}
	if len(expired) > 0 {
		st.logger.Info("expired sessions evicted", zap.Int("count", len(expired)))
	}
}
