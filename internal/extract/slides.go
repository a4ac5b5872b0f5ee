package extract

import (
	"archive/zip"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// powerPointText 提取 .pptx 压缩包中各张幻灯片的文本
//
// 幻灯片按编号排序，每张以 "[Slide <n>]" 行开头。
// 旧版二进制 .ppt 不是 zip 格式，打开时会直接失败。
func powerPointText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open presentation archive: %w", err)
	}
	defer zr.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("no slides found in archive")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var b strings.Builder
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read slide %d: %w", s.num, err)
		}
		text, err := officeXMLText(rc, "p", "t")
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to parse slide %d: %w", s.num, err)
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("[Slide %d]", s.num))
		if text != "" {
			b.WriteString("\n")
			b.WriteString(text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
