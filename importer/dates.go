package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateFormats 按顺序尝试的日期格式，日在前优先于月在前；不补零的格式排在补零格式之后
var DateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"2006/1/2",
	"2.1.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/06",
	"2/1/06",
	"1/2/06",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
}

// Excel 序列号的合理范围（1900-01-01 至 9999-12-31）
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// tokenLayout 允许调用方使用 DD/MM/YYYY 风格的格式
// DD、MM 映射为不补零的 2、1，同时接受一位和两位数字
var tokenLayout = strings.NewReplacer(
	"YYYY", "2006",
	"yyyy", "2006",
	"YY", "06",
	"yy", "06",
	"MMMM", "January",
	"MMM", "Jan",
	"MM", "1",
	"DD", "2",
	"dd", "2",
)

// NormalizeLayout 将 DD/MM/YYYY 风格转换为 Go 时间格式
func NormalizeLayout(layout string) string {
	return tokenLayout.Replace(strings.TrimSpace(layout))
}

// ParseDate 依次尝试：调用方格式、内置格式、RFC3339、Excel 序列号。结果归一为 UTC 零点
func ParseDate(raw, preferred string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}

	if preferred != "" {
		if t, err := time.Parse(NormalizeLayout(preferred), s); err == nil {
			return dateOnly(t), nil
		}
	}
	for _, layout := range DateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t.UTC()), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// DetectDateFormat 返回能解析全部样本的第一个内置格式
func DetectDateFormat(samples []string) string {
	for _, layout := range DateFormats {
		matched := 0
		for _, s := range samples {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if _, err := time.Parse(layout, s); err != nil {
				matched = -1
				break
			}
			matched++
		}
		if matched > 0 {
			return layout
		}
	}
	return ""
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
