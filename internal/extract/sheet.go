package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// excelText 提取工作簿所有工作表的单元格文本
//
// 每个工作表以 "[Sheet: <名称>]" 行开头，行内单元格以制表符连接。
// 公式单元格使用缓存的计算结果。
func excelText(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("[Sheet: %s]", sheet))
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
