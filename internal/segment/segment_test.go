package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Run("body only", func(t *testing.T) {
		assert.Equal(t, "Hello", Encode("  Hello \n", nil))
	})

	t.Run("body with attachment", func(t *testing.T) {
		got := Encode("Hello", []AttachmentText{{Filename: "a.txt", Text: "World"}})
		assert.Equal(t, "Hello\n\n=== 첨부파일: a.txt ===\nWorld", got)
	})

	t.Run("multiple attachments", func(t *testing.T) {
		got := Encode("Body", []AttachmentText{
			{Filename: "one.pdf", Text: "first"},
			{Filename: "two.docx", Text: "second"},
		})
		assert.Equal(t, "Body\n\n=== 첨부파일: one.pdf ===\nfirst\n\n=== 첨부파일: two.docx ===\nsecond", got)
	})

	t.Run("empty body with attachment", func(t *testing.T) {
		got := Encode("", []AttachmentText{{Filename: "a.txt", Text: "x"}})
		assert.Equal(t, "\n\n=== 첨부파일: a.txt ===\nx", got)
	})
}

func TestDecode(t *testing.T) {
	t.Run("no marker returns whole input as body", func(t *testing.T) {
		body, atts := Decode("just a plain body\nwith two lines")
		assert.Equal(t, "just a plain body\nwith two lines", body)
		assert.Empty(t, atts)
	})

	t.Run("single attachment", func(t *testing.T) {
		body, atts := Decode("Hello\n\n=== 첨부파일: a.txt ===\nWorld")
		assert.Equal(t, "Hello", body)
		require.Len(t, atts, 1)
		assert.Equal(t, "a.txt", atts[0].Filename)
		assert.Equal(t, "World", atts[0].Text)
	})

	t.Run("multiline attachment text", func(t *testing.T) {
		body, atts := Decode("B\n\n=== 첨부파일: r.pdf ===\nline one\nline two\n")
		assert.Equal(t, "B", body)
		require.Len(t, atts, 1)
		assert.Equal(t, "line one\nline two", atts[0].Text)
	})

	t.Run("filename with spaces", func(t *testing.T) {
		_, atts := Decode("B\n\n=== 첨부파일: 분기 보고서.xlsx ===\ncells")
		require.Len(t, atts, 1)
		assert.Equal(t, "분기 보고서.xlsx", atts[0].Filename)
	})
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		body string
		atts []AttachmentText
	}{
		{"body only", "Hello", nil},
		{"one attachment", "Hello", []AttachmentText{{Filename: "a.txt", Text: "World"}}},
		{"three attachments", "안녕하세요", []AttachmentText{
			{Filename: "report.pdf", Text: "page one\npage two"},
			{Filename: "data.xlsx", Text: "[Sheet: Sheet1]\na\tb"},
			{Filename: "slides.pptx", Text: "[Slide 1]\ntitle"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, atts := Decode(Encode(tc.body, tc.atts))
			assert.Equal(t, strings.TrimSpace(tc.body), body)
			require.Len(t, atts, len(tc.atts))
			for i := range tc.atts {
				assert.Equal(t, tc.atts[i].Filename, atts[i].Filename)
				assert.Equal(t, strings.TrimSpace(tc.atts[i].Text), atts[i].Text)
			}
		})
	}
}
