package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailsuite/backend/internal/service"
)

// SessionCookie 会话标识的 Cookie 名
const SessionCookie = "session-id"

const sessionKey = "session"

// SessionResolver 从 Cookie 解析会话并挂到请求上下文
//
// 没有会话或会话已过期时不报错，由需要会话的处理器自行拒绝。
func SessionResolver(sessions *service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err == nil && id != "" {
			if session, ok := sessions.Get(id); ok {
				c.Set(sessionKey, session)
			}
		}
		c.Next()
	}
}

// currentSession 取出请求绑定的会话
func currentSession(c *gin.Context) (*service.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*service.Session)
	return session, ok
}

// requireSession 取出会话，没有时直接响应 401
func requireSession(c *gin.Context) (*service.Session, bool) {
	session, ok := currentSession(c)
	if !ok {
		Fail(c, http.StatusUnauthorized, "no active session, connect first")
		return nil, false
	}
	return session, true
}

// setSessionCookie 下发会话 Cookie
func setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
}

// clearSessionCookie 清除会话 Cookie
func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}
