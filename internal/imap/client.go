// Package imap 封装 IMAP 收件：连接、选择邮箱、搜索和抓取原始邮件。
package imap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
)

var (
	// ErrAuth 表示用户名或密码被 IMAP 服务器拒绝
	ErrAuth = errors.New("imap authentication failed")
	// ErrNotConnected 表示客户端尚未连接或已经登出
	ErrNotConnected = errors.New("imap client is not connected")
	// ErrInvalidCriteria 表示搜索条件字符串无法解析
	ErrInvalidCriteria = errors.New("invalid search criteria")
)

// Client 持有一条已登录的 IMAP 连接
//
// 连接在会话期间复用，调用方负责在会话结束时 Close。
type Client struct {
	conn     *imapclient.Client
	username string
	mailbox  string
	logger   *zap.Logger
}

// Dial 建立 TLS 连接并登录 IMAP 服务器
func Dial(host string, port int, username, password string, logger *zap.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	conn, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := conn.Login(username, password).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	logger.Info("imap connected", zap.String("server", addr), zap.String("username", username))
	return &Client{conn: conn, username: username, logger: logger}, nil
}

// Username 返回登录时使用的账号
func (c *Client) Username() string {
	return c.username
}

// Mailbox 返回当前选中的邮箱文件夹，未选择时为空
func (c *Client) Mailbox() string {
	return c.mailbox
}

// SelectMailbox 选择邮箱文件夹并返回其中的邮件数量
func (c *Client) SelectMailbox(name string) (uint32, error) {
	if c.conn == nil {
		return 0, ErrNotConnected
	}

	data, err := c.conn.Select(name, nil).Wait()
	if err != nil {
		return 0, fmt.Errorf("failed to select mailbox %q: %w", name, err)
	}

	c.mailbox = name
	c.logger.Info("mailbox selected",
		zap.String("mailbox", name), zap.Uint32("messages", data.NumMessages))
	return data.NumMessages, nil
}

// ListMailboxes 列出账号下的所有邮箱文件夹
func (c *Client) ListMailboxes() ([]string, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	boxes, err := c.conn.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}

	names := make([]string, 0, len(boxes))
	for _, box := range boxes {
		names = append(names, box.Mailbox)
	}
	return names, nil
}

// SearchUIDs 按条件搜索当前邮箱，返回最新优先的 UID 列表
//
// limit > 0 时只保留最新的 limit 封。返回顺序为最新在前。
func (c *Client) SearchUIDs(criteria string, limit int) ([]imap.UID, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	parsed, err := ParseCriteria(criteria)
	if err != nil {
		return nil, err
	}

	data, err := c.conn.UIDSearch(parsed, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}

	uids := data.AllUIDs()
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	// 服务器按升序返回，反转为最新在前
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	return uids, nil
}

// FetchRaw 抓取一封邮件的完整 RFC 822 内容（peek，不标记已读）
func (c *Client) FetchRaw(uid imap.UID) ([]byte, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := c.conn.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message uid %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to collect message uid %d: %w", uid, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message uid %d has no body", uid)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("failed to fetch message uid %d: %w", uid, err)
	}
	return raw, nil
}

// Close 登出并关闭连接
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Logout().Wait()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// ParseCriteria 把搜索条件字符串解析为结构化条件
//
// 支持的形式：
//   - "" / "ALL"            全部邮件
//   - "UNSEEN"              未读邮件
//   - "SEEN"                已读邮件
//   - "SINCE 02-Jan-2006"   指定日期之后（IMAP 日期格式）
func ParseCriteria(criteria string) (*imap.SearchCriteria, error) {
	fields := strings.Fields(strings.TrimSpace(criteria))
	if len(fields) == 0 {
		return &imap.SearchCriteria{}, nil
	}

	switch strings.ToUpper(fields[0]) {
	case "ALL":
		if len(fields) > 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCriteria, criteria)
		}
		return &imap.SearchCriteria{}, nil
	case "UNSEEN":
		return &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}, nil
	case "SEEN":
		return &imap.SearchCriteria{Flag: []imap.Flag{imap.FlagSeen}}, nil
	case "SINCE":
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: SINCE requires a date", ErrInvalidCriteria)
		}
		since, err := time.Parse("2-Jan-2006", fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
		}
		return &imap.SearchCriteria{Since: since}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCriteria, criteria)
	}
}
