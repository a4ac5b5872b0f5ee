package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailsuite/backend/internal/config"
	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/smtp"
	"mailsuite/backend/internal/storage/maildir"
	"mailsuite/backend/internal/summarize"
)

type fakeFetcher struct {
	username string
	mailbox  string
	uids     []goimap.UID
	raw      map[goimap.UID][]byte
	closed   bool
}

func (f *fakeFetcher) Username() string { return f.username }
func (f *fakeFetcher) Mailbox() string  { return f.mailbox }

func (f *fakeFetcher) SelectMailbox(name string) (uint32, error) {
	f.mailbox = name
	return uint32(len(f.uids)), nil
}

func (f *fakeFetcher) ListMailboxes() ([]string, error) {
	return []string{"INBOX", "Sent"}, nil
}

func (f *fakeFetcher) SearchUIDs(_ string, limit int) ([]goimap.UID, error) {
	uids := f.uids
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}
	return uids, nil
}

func (f *fakeFetcher) FetchRaw(uid goimap.UID) ([]byte, error) {
	raw, ok := f.raw[uid]
	if !ok {
		return nil, fmt.Errorf("uid %d not found", uid)
	}
	return raw, nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

type fakeSender struct {
	inputs  []smtp.SendInput
	sendErr error
}

func (f *fakeSender) Send(input smtp.SendInput) (*smtp.SendResult, error) {
	f.inputs = append(f.inputs, input)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &smtp.SendResult{Accepted: input.To}, nil
}

func (f *fakeSender) TestConnection() error { return nil }

type fixedGenerator struct {
	reply string
	err   error
	calls int
}

func (g *fixedGenerator) Generate(context.Context, string, string, string, int) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func rawEmailWithAttachment(subject, body, filename, payload string) []byte {
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))
	return []byte("From: alice@example.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; name=\"" + filename + "\"\r\n" +
		"Content-Disposition: attachment; filename=\"" + filename + "\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		encoded + "\r\n" +
		"--XYZ--\r\n")
}

func rawEmail(from, subject, body string) []byte {
	return []byte("From: " + from + "\r\n" +
		"To: me@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 +0900\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n")
}

type testEnv struct {
	suite   *Suite
	fetcher *fakeFetcher
	sender  *fakeSender
	gen     *fixedGenerator
	store   *maildir.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := maildir.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	gen := &fixedGenerator{reply: "generated summary"}
	summarizer := summarize.New(gen, "test-model", time.Nanosecond, zap.NewNop())

	cfg := &config.Config{
		IMAP: config.IMAPConfig{Host: "imap.example.com", Port: 993, Mailbox: "INBOX"},
		SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 587},
	}

	fetcher := &fakeFetcher{
		username: "me@example.com",
		uids:     []goimap.UID{3, 2, 1},
		raw: map[goimap.UID][]byte{
			1: rawEmail("alice@example.com", "first", "first body"),
			2: rawEmail("Bob <bob@example.com>", "second", "second body"),
			3: rawEmail("carol@example.com", "third", "third body"),
		},
	}
	sender := &fakeSender{}

	suite := NewSuite(cfg, store, summarizer, zap.NewNop())
	suite.dialIMAP = func(string, int, string, string, *zap.Logger) (MailFetcher, error) {
		return fetcher, nil
	}
	suite.makeSender = func(config.SMTPConfig, string, string, *zap.Logger) MailSender {
		return sender
	}
	require.NoError(t, suite.Connect("me@example.com", "password"))

	return &testEnv{suite: suite, fetcher: fetcher, sender: sender, gen: gen, store: store}
}

func TestConnectSelectsDefaultMailbox(t *testing.T) {
	env := newTestEnv(t)

	st := env.suite.Status()
	assert.True(t, st.Connected)
	assert.Equal(t, "me@example.com", st.Username)
	assert.Equal(t, "INBOX", st.Mailbox)
	assert.True(t, st.SummarizerReady)
}

func TestFetchEmails(t *testing.T) {
	env := newTestEnv(t)

	messages, err := env.suite.FetchEmails(context.Background(), "ALL", 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "third", messages[0].Subject)
	assert.Equal(t, "3", messages[0].ID)
	assert.Contains(t, messages[0].BodyText, "third body")

	// 落盘验证
	loaded, err := env.store.LoadMessage("3")
	require.NoError(t, err)
	assert.Equal(t, "third", loaded.Subject)
	assert.Contains(t, loaded.BodyText, "third body")
}

func TestRefetchOverwritesFolder(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.uids = []goimap.UID{7}
	env.fetcher.raw = map[goimap.UID][]byte{
		7: rawEmailWithAttachment("with file", "hello", "notes.txt", "first version"),
	}

	_, err := env.suite.FetchEmails(context.Background(), "ALL", 0)
	require.NoError(t, err)

	env.fetcher.raw[7] = rawEmailWithAttachment("with file", "hello", "notes.txt", "second version")
	messages, err := env.suite.FetchEmails(context.Background(), "ALL", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	// 重新抓取覆盖文件夹，不产生 notes_1.txt
	loaded, err := env.store.LoadMessage("7")
	require.NoError(t, err)
	require.Len(t, loaded.Attachments, 1)
	assert.Equal(t, "notes.txt", loaded.Attachments[0].Filename)

	raw, err := os.ReadFile(filepath.Join(env.store.FolderPath("7"), "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second version", string(raw))
}

func TestFetchEmailsSkipsBrokenMessage(t *testing.T) {
	env := newTestEnv(t)
	delete(env.fetcher.raw, 2)

	messages, err := env.suite.FetchEmails(context.Background(), "ALL", 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestFetchEmailsNotConnected(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.suite.Logout())

	_, err := env.suite.FetchEmails(context.Background(), "ALL", 0)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, env.fetcher.closed)
}

func TestViewEmailDiskFirst(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.suite.FetchEmails(context.Background(), "ALL", 0)
	require.NoError(t, err)

	// 断开后仍能从磁盘读取
	require.NoError(t, env.suite.Logout())

	msg, err := env.suite.ViewEmail(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Subject)
}

func TestViewEmailFetchesWhenMissing(t *testing.T) {
	env := newTestEnv(t)

	msg, err := env.suite.ViewEmail(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "second", msg.Subject)
	assert.True(t, env.store.Exists("2"))
}

func TestViewEmailNotFound(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.suite.Logout())

	_, err := env.suite.ViewEmail(context.Background(), "99")
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

func TestReplyEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.suite.ReplyEmail(context.Background(), "2", "thanks!", nil)
	require.NoError(t, err)

	require.Len(t, env.sender.inputs, 1)
	sent := env.sender.inputs[0]
	assert.Equal(t, []string{"bob@example.com"}, sent.To)
	assert.Equal(t, "Re: second", sent.Subject)
	assert.Equal(t, "thanks!", sent.Body)
	assert.Equal(t, "me@example.com", sent.From)
}

func TestSummarizeEmailByID(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.suite.SummarizeEmail(context.Background(), "1", domain.ScopeBody, "brief")
	require.NoError(t, err)
	require.NotNil(t, result.Body)
	assert.Equal(t, "generated summary", result.Body.Text)
}

func TestSummarizeEmailCached(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.suite.SummarizeEmail(context.Background(), "1", domain.ScopeBody, "brief")
	require.NoError(t, err)
	firstCalls := env.gen.calls

	// 相同参数命中缓存，不再调用生成器
	_, err = env.suite.SummarizeEmail(context.Background(), "1", domain.ScopeBody, "brief")
	require.NoError(t, err)
	assert.Equal(t, firstCalls, env.gen.calls)

	// 不同风格重新生成
	_, err = env.suite.SummarizeEmail(context.Background(), "1", domain.ScopeBody, "bullet")
	require.NoError(t, err)
	assert.Greater(t, env.gen.calls, firstCalls)
}

func TestFetchSummarizeSend(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.suite.FetchSummarizeSend(context.Background(), PipelineOptions{
		Criteria:  "ALL",
		Style:     "brief",
		Recipient: []string{"boss@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.Summarized)

	require.Len(t, env.sender.inputs, 1)
	sent := env.sender.inputs[0]
	assert.Equal(t, []string{"boss@example.com"}, sent.To)
	assert.Contains(t, sent.Subject, "3건")
	assert.Contains(t, sent.Body, "[1] third")
	assert.Contains(t, sent.Body, "보낸사람: carol@example.com")
	assert.Contains(t, sent.Body, "generated summary")
}

func TestFetchSummarizeSendSavesResult(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.suite.FetchSummarizeSend(context.Background(), PipelineOptions{
		Criteria:   "ALL",
		Style:      "brief",
		Recipient:  []string{"boss@example.com"},
		SaveResult: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ResultFile)
	assert.Contains(t, filepath.Base(result.ResultFile), "mail_workflow_result_")

	raw, err := os.ReadFile(result.ResultFile)
	require.NoError(t, err)

	var saved PipelineResult
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, 3, saved.Fetched)
	assert.Len(t, saved.Entries, 3)
}

func TestFetchSummarizeSendNoEmails(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.uids = nil

	_, err := env.suite.FetchSummarizeSend(context.Background(), PipelineOptions{
		Recipient: []string{"boss@example.com"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEmails)
	assert.Equal(t, "no emails to fetch", ErrNoEmails.Error())
	assert.Empty(t, env.sender.inputs)
}

func TestFetchSummarizeSendNothingSummarized(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = errors.New("api down")

	_, err := env.suite.FetchSummarizeSend(context.Background(), PipelineOptions{
		Recipient: []string{"boss@example.com"},
	})
	assert.ErrorIs(t, err, ErrNothingSummarized)
	assert.Empty(t, env.sender.inputs)
}

func TestProcessMailbox(t *testing.T) {
	env := newTestEnv(t)
	outputDir := filepath.Join(t.TempDir(), "reports")

	report, err := env.suite.ProcessMailbox(context.Background(), BatchOptions{
		Criteria:  "ALL",
		BatchSize: 2,
		Style:     "brief",
		OutputDir: outputDir,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalEmails)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 3, report.Summarized)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, []string{"batch_001.json", "batch_002.json"}, report.BatchFiles)

	for _, name := range []string{"batch_001.json", "batch_002.json", "processing_summary.json"} {
		_, err := os.Stat(filepath.Join(outputDir, name))
		assert.NoError(t, err, name)
	}
}

func TestProcessMailboxEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.uids = nil

	_, err := env.suite.ProcessMailbox(context.Background(), BatchOptions{})
	assert.ErrorIs(t, err, ErrNoEmails)
}

func TestSummarizerUnavailable(t *testing.T) {
	store, err := maildir.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	suite := NewSuite(&config.Config{}, store, nil, zap.NewNop())

	_, err = suite.SummarizeEmail(context.Background(), "1", domain.ScopeBody, "brief")
	assert.ErrorIs(t, err, ErrSummarizerUnavailable)

	st := suite.Status()
	assert.False(t, st.SummarizerReady)
}

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "a@b.c", extractAddress("Alice <a@b.c>"))
	assert.Equal(t, "a@b.c", extractAddress("a@b.c"))
	assert.Equal(t, "a@b.c", extractAddress("  a@b.c  "))
	assert.Equal(t, "", extractAddress(""))
}

func TestSessionStore(t *testing.T) {
	store, err := maildir.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	sessions := NewSessionStore(&config.Config{}, store, nil, time.Minute, zap.NewNop())

	created := sessions.Create()
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, sessions.Len())

	got, ok := sessions.Get(created.ID)
	require.True(t, ok)
	assert.Same(t, created, got)

	_, ok = sessions.Get("unknown")
	assert.False(t, ok)

	sessions.Evict(created.ID)
	assert.Equal(t, 0, sessions.Len())
	_, ok = sessions.Get(created.ID)
	assert.False(t, ok)
}
