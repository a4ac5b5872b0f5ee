package extract

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// plainText 读取文本文件并探测编码
//
// 依次尝试 UTF-8、EUC-KR/CP949、ISO-8859-1。
// ISO-8859-1 对任意字节序列都有效，作为兜底以保证不丢失内容。
func plainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}

	// 解码器对非法字节输出 U+FFFD 而不是报错，出现替换符说明不是 EUC-KR
	if decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw); err == nil &&
		!strings.ContainsRune(string(decoded), utf8.RuneError) {
		return string(decoded), nil
	}

	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode file: %w", err)
	}
	return string(decoded), nil
}
