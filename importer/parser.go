package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFile 仅支持 csv / xlsx / xlsm
	ErrUnsupportedFile = errors.New("unsupported file type, expected .csv or .xlsx")
	// ErrEmptyFile 文件没有表头或数据行
	ErrEmptyFile = errors.New("file has no header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row 一行数据，Number 为数据行序号（从 1 开始，不含表头与空行）
type Row struct {
	Number int
	Cells  []string
}

// Get 按列下标取值，越界返回空串
func (r Row) Get(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[idx])
}

// Table 解析后的表格
type Table struct {
	Headers []string
	Rows    []Row
}

// FileType 由文件名得到文件类型
func FileType(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "csv", nil
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	default:
		return "", ErrUnsupportedFile
	}
}

// ParseFile 解析 CSV 或 Excel 文件，sheet 为空时读取第一个工作表
func ParseFile(name string, data []byte, sheet string) (*Table, error) {
	typ, err := FileType(name)
	if err != nil {
		return nil, err
	}
	var records [][]string
	if typ == "csv" {
		records, err = readCSV(data)
	} else {
		records, err = readXLSX(data, sheet)
	}
	if err != nil {
		return nil, err
	}
	return buildTable(records)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// sniffDelimiter 在首个非空行中统计 , ; 制表符，取出现最多者
func sniffDelimiter(data []byte) rune {
	var line string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readXLSX(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	// 原始值：日期单元格返回 Excel 序列号，由日期解析兜底处理
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// buildTable 第一个非空行为表头，其余空行跳过且不计数
func buildTable(records [][]string) (*Table, error) {
	t := &Table{}
	headerFound := false
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		if !headerFound {
			for _, h := range rec {
				t.Headers = append(t.Headers, strings.TrimSpace(h))
			}
			headerFound = true
			continue
		}
		t.Rows = append(t.Rows, Row{Number: len(t.Rows) + 1, Cells: rec})
	}
	if !headerFound {
		return nil, ErrEmptyFile
	}
	return t, nil
}
