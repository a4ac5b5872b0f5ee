package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsuite/backend/internal/domain"
	"mailsuite/backend/internal/summarize"
)

func sampleSummary(text string) *summarize.EmailSummary {
	return &summarize.EmailSummary{
		Scope: domain.ScopeBody,
		Body:  &domain.Summary{Text: text},
	}
}

func TestSummaryCacheHitAndMiss(t *testing.T) {
	c := NewSummaryCache(time.Minute)

	key := Key("1", "body", "brief")
	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, sampleSummary("hello"))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "hello", got.Body.Text)

	// 不同风格是不同的键
	_, ok = c.Get(Key("1", "body", "detailed"))
	assert.False(t, ok)
}

func TestSummaryCacheExpiry(t *testing.T) {
	c := NewSummaryCache(10 * time.Millisecond)

	key := Key("1", "body", "brief")
	c.Set(key, sampleSummary("hello"))

	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSummaryCacheInvalidate(t *testing.T) {
	c := NewSummaryCache(time.Minute)

	c.Set(Key("1", "body", "brief"), sampleSummary("a"))
	c.Set(Key("1", "all", "brief"), sampleSummary("b"))
	c.Set(Key("2", "body", "brief"), sampleSummary("c"))

	c.Invalidate("1")

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(Key("2", "body", "brief"))
	assert.True(t, ok)
}

func TestSummaryCacheEviction(t *testing.T) {
	c := NewSummaryCache(time.Minute)
	c.maxEntries = 8

	for i := 0; i < 20; i++ {
		c.Set(Key(fmt.Sprintf("%d", i), "body", "brief"), sampleSummary("x"))
	}

	assert.LessOrEqual(t, c.Len(), 8)
}
