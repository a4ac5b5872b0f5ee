package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	t.Run("replaces unsafe characters", func(t *testing.T) {
		assert.Equal(t, "a_b_c_d_e_f_g_h_i.txt", Filename(`a<b>c:d"e/f\g|h?i.txt`))
	})

	t.Run("replaces spaces", func(t *testing.T) {
		assert.Equal(t, "my_report_final.pdf", Filename("my report final.pdf"))
	})

	t.Run("keeps safe names unchanged", func(t *testing.T) {
		assert.Equal(t, "report-2024.v1.pdf", Filename("report-2024.v1.pdf"))
	})

	t.Run("truncates long names preserving extension", func(t *testing.T) {
		long := strings.Repeat("a", 300) + ".pdf"
		got := Filename(long)
		assert.Len(t, []rune(got), 200)
		assert.True(t, strings.HasSuffix(got, ".pdf"))
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		long := strings.Repeat("한", 300) + ".docx"
		got := Filename(long)
		assert.Len(t, []rune(got), 200)
		assert.True(t, strings.HasSuffix(got, ".docx"))
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{
			`a<b>c.txt`,
			"my report final.pdf",
			strings.Repeat("x", 500) + ".xlsx",
			"보고서 초안?.hwp",
		}
		for _, in := range inputs {
			once := Filename(in)
			assert.Equal(t, once, Filename(once))
		}
	})

	t.Run("empty name stays empty", func(t *testing.T) {
		assert.Equal(t, "", Filename(""))
	})
}
