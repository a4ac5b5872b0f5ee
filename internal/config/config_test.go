package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "imap.naver.com", cfg.IMAP.Host)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	assert.Equal(t, "smtp.naver.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 465, cfg.SMTP.SSLPort)
	assert.False(t, cfg.SMTP.UseSSL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, time.Second, cfg.OpenAI.CallInterval)
	assert.Equal(t, "./downloads", cfg.Storage.DownloadRoot)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Setenv("MAILSUITE_IMAP_HOST", "imap.example.com")
	t.Setenv("MAILSUITE_IMAP_PORT", "1993")
	t.Setenv("MAILSUITE_OPENAI_API_KEY", "sk-test")
	t.Setenv("MAILSUITE_OPENAI_MODEL", "gpt-4o")
	t.Setenv("MAILSUITE_OPENAI_CALL_INTERVAL", "250ms")
	t.Setenv("MAILSUITE_STORAGE_DOWNLOAD_ROOT", "/tmp/mail")
	t.Setenv("MAILSUITE_CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "imap.example.com", cfg.IMAP.Host)
	assert.Equal(t, 1993, cfg.IMAP.Port)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 250*time.Millisecond, cfg.OpenAI.CallInterval)
	assert.Equal(t, "/tmp/mail", cfg.Storage.DownloadRoot)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoadInvalidPort(t *testing.T) {
	viper.Reset()
	t.Setenv("MAILSUITE_IMAP_PORT", "99999")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid imap.port")
}

func TestLoadInvalidCallInterval(t *testing.T) {
	viper.Reset()
	t.Setenv("MAILSUITE_OPENAI_CALL_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid openai.call_interval")
}

func TestParseList(t *testing.T) {
	t.Run("single value", func(t *testing.T) {
		assert.Equal(t, []string{"*"}, parseList("*"))
	})

	t.Run("multiple values with spaces", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b", "c"}, parseList(" a, b ,c "))
	})

	t.Run("empty segments dropped", func(t *testing.T) {
		assert.Equal(t, []string{"a"}, parseList("a,,  ,"))
	})
}
