package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

func TestDetect(t *testing.T) {
	cases := map[string]Format{
		"a.pdf":       FormatPDF,
		"a.PDF":       FormatPDF,
		"a.docx":      FormatWord,
		"a.doc":       FormatWord,
		"a.xlsx":      FormatExcel,
		"a.xls":       FormatExcel,
		"a.pptx":      FormatPowerPoint,
		"a.ppt":       FormatPowerPoint,
		"a.txt":       FormatText,
		"a.csv":       FormatText,
		"a.md":        FormatText,
		"a.json":      FormatText,
		"a.xml":       FormatText,
		"a.html":      FormatText,
		"a.htm":       FormatText,
		"a.log":       FormatText,
		"a.bin":       FormatUnknown,
		"a.zip":       FormatUnknown,
		"noextension": FormatUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, Detect(name), name)
	}
}

func TestTextUnsupportedFormat(t *testing.T) {
	got := Text("archive.bin")
	assert.Equal(t, "[bin format is not supported for text extraction]", got)

	got = Text("noextension")
	assert.Equal(t, "[unknown format is not supported for text extraction]", got)
}

func TestTextNeverFailsOnMissingFile(t *testing.T) {
	got := Text(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.True(t, strings.HasPrefix(got, "[PDF extraction failed:"), got)

	got = Text(filepath.Join(t.TempDir(), "missing.docx"))
	assert.True(t, strings.HasPrefix(got, "[Word extraction failed:"), got)

	got = Text(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.True(t, strings.HasPrefix(got, "[Excel extraction failed:"), got)

	got = Text(filepath.Join(t.TempDir(), "missing.pptx"))
	assert.True(t, strings.HasPrefix(got, "[PowerPoint extraction failed:"), got)

	got = Text(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, "[text file encoding detection failed]", got)
}

func TestTextCorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	got := Text(path)
	assert.True(t, strings.HasPrefix(got, "[PDF extraction failed:"), got)
}

func TestTextLegacyBinaryWord(t *testing.T) {
	// 旧版 .doc 是 OLE 二进制格式，不是 zip
	path := filepath.Join(t.TempDir(), "legacy.doc")
	require.NoError(t, os.WriteFile(path, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, 0644))

	got := Text(path)
	assert.True(t, strings.HasPrefix(got, "[Word extraction failed:"), got)
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestTextWord(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:tab/><w:t>column</w:t></w:r></w:p>
  </w:body>
</w:document>`

	path := filepath.Join(t.TempDir(), "sample.docx")
	writeZip(t, path, map[string]string{"word/document.xml": docXML})

	got := Text(path)
	assert.Contains(t, got, "First paragraph")
	assert.Contains(t, got, "Second\tcolumn")
	lines := strings.Split(got, "\n")
	assert.Equal(t, "First paragraph", strings.TrimSpace(lines[0]))
}

func TestTextWordMissingDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	writeZip(t, path, map[string]string{"other.xml": "<x/>"})

	got := Text(path)
	assert.True(t, strings.HasPrefix(got, "[Word extraction failed:"), got)
}

func TestTextPowerPoint(t *testing.T) {
	slideXML := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>
    <a:p><a:r><a:t>` + text + `</a:t></a:r></a:p>
  </p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}

	path := filepath.Join(t.TempDir(), "deck.pptx")
	writeZip(t, path, map[string]string{
		"ppt/slides/slide2.xml": slideXML("second slide"),
		"ppt/slides/slide1.xml": slideXML("first slide"),
		"ppt/slides/slide10.xml": slideXML("tenth slide"),
	})

	got := Text(path)
	first := strings.Index(got, "[Slide 1]")
	second := strings.Index(got, "[Slide 2]")
	tenth := strings.Index(got, "[Slide 10]")
	require.GreaterOrEqual(t, first, 0)
	assert.Greater(t, second, first)
	assert.Greater(t, tenth, second)
	assert.Contains(t, got, "first slide")
	assert.Contains(t, got, "tenth slide")
}

func TestTextExcel(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "count"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "apples"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))

	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got := Text(path)
	assert.Contains(t, got, "[Sheet: Sheet1]")
	assert.Contains(t, got, "name\tcount")
	assert.Contains(t, got, "apples\t3")
}

func TestTextPlainUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello 한국어 text"), 0644))

	assert.Equal(t, "hello 한국어 text", Text(path))
}

func TestTextPlainEUCKR(t *testing.T) {
	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte("안녕하세요 세계"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "korean.txt")
	require.NoError(t, os.WriteFile(path, encoded, 0644))

	assert.Equal(t, "안녕하세요 세계", Text(path))
}

func TestTextPlainLatin1Fallback(t *testing.T) {
	// 0xFF 不是合法的 UTF-8 也不是 EUC-KR 前导字节
	path := filepath.Join(t.TempDir(), "latin.txt")
	require.NoError(t, os.WriteFile(path, []byte{'c', 'a', 'f', 0xE9, 0xFF}, 0644))

	got := Text(path)
	assert.Contains(t, got, "café")
}
