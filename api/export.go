package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"globfam/database"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

var exportHeaders = []string{"ID", "Date", "Type", "Asset", "To Asset", "Amount", "Currency", "Category", "Description", "Notes"}

type exportData struct {
	rows   []models.Transaction
	assets map[uint]string
	label  string
}

// loadExport 按组织与日期范围读取交易
func loadExport(c *gin.Context) (*exportData, bool) {
	orgID := middleware.GetCurrentOrgID(c)
	query := database.DB.Where("organization_id = ?", orgID)

	startStr, endStr := c.Query("start_date"), c.Query("end_date")
	label := "all"
	if startStr != "" {
		start, err := parseDay(startStr)
		if err != nil {
			FieldErrors(c, map[string]string{"start_date": "must be a date in the format 2006-01-02"})
			return nil, false
		}
		query = query.Where("date >= ?", start)
		label = startStr
	}
	if endStr != "" {
		end, err := parseDay(endStr)
		if err != nil {
			FieldErrors(c, map[string]string{"end_date": "must be a date in the format 2006-01-02"})
			return nil, false
		}
		query = query.Where("date < ?", end.AddDate(0, 0, 1))
		label += "_" + endStr
	}
	if assetID := c.Query("asset_id"); assetID != "" {
		id, err := strconv.ParseUint(assetID, 10, 32)
		if err != nil {
			FieldErrors(c, map[string]string{"asset_id": "must be a number"})
			return nil, false
		}
		query = query.Where("(asset_id = ? OR to_asset_id = ?)", id, id)
	}

	var rows []models.Transaction
	if err := query.Order("date DESC, id DESC").Find(&rows).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load transactions"))
		return nil, false
	}

	var assets []models.Asset
	if err := database.DB.Unscoped().Where("organization_id = ?", orgID).Find(&assets).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load assets"))
		return nil, false
	}
	names := make(map[uint]string, len(assets))
	for _, a := range assets {
		names[a.ID] = a.Name
	}
	return &exportData{rows: rows, assets: names, label: label}, true
}

func (d *exportData) record(t *models.Transaction) []string {
	toAsset := ""
	if t.ToAssetID != nil {
		toAsset = d.assets[*t.ToAssetID]
	}
	return []string{
		strconv.FormatUint(uint64(t.ID), 10),
		t.Date.Format("2006-01-02"),
		string(t.Type),
		d.assets[t.AssetID],
		toAsset,
		t.SignedAmount().StringFixed(2),
		t.Currency,
		t.Category,
		t.Description,
		t.Notes,
	}
}

// netByCurrency 按币种汇总带符号金额，转账不计入
func (d *exportData) netByCurrency() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for i := range d.rows {
		t := &d.rows[i]
		if t.Type == models.TransactionTransfer {
			continue
		}
		totals[t.Currency] = totals[t.Currency].Add(t.SignedAmount())
	}
	return totals
}

// ExportTransactions 导出交易
// @Summary 导出交易
// @Description 按日期范围导出交易为 CSV（带 BOM）或 XLSX（含汇总行）
// @Tags 导出
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param format query string false "csv 或 xlsx" default(csv)
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Param asset_id query int false "资产ID"
// @Success 200 {file} file "导出文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/export/transactions [get]
func (h *ExportHandler) ExportTransactions(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		FieldErrors(c, map[string]string{"format": "must be one of: csv xlsx"})
		return
	}
	data, ok := loadExport(c)
	if !ok {
		return
	}
	if format == "xlsx" {
		h.writeXLSX(c, data)
		return
	}
	h.writeCSV(c, data)
}

func (h *ExportHandler) writeCSV(c *gin.Context, data *exportData) {
	buf := new(bytes.Buffer)
	// BOM 让 Excel 以 UTF-8 打开
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		InternalError(c, "failed to generate csv")
		return
	}
	for i := range data.rows {
		if err := writer.Write(data.record(&data.rows[i])); err != nil {
			InternalError(c, "failed to generate csv")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "failed to generate csv")
		return
	}

	filename := fmt.Sprintf("transactions_%s.csv", data.label)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ExportHandler) writeXLSX(c *gin.Context, data *exportData) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		InternalError(c, "failed to generate xlsx")
		return
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    border,
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    border,
	})

	widths := map[string]float64{"A": 8, "B": 12, "C": 11, "D": 22, "E": 22, "F": 14, "G": 9, "H": 18, "I": 36, "J": 30}
	for col, w := range widths {
		_ = f.SetColWidth(sheet, col, col, w)
	}

	lastCol := string(rune('A' + len(exportHeaders) - 1))
	_ = f.SetSheetRow(sheet, "A1", &exportHeaders)
	_ = f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle)

	for i := range data.rows {
		row := i + 2
		t := &data.rows[i]
		rec := data.record(t)
		cells := make([]interface{}, len(rec))
		for j, v := range rec {
			cells[j] = v
		}
		cells[0] = t.ID
		amount, _ := t.SignedAmount().Float64()
		cells[5] = amount
		_ = f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), dataStyle)
	}

	// 汇总行：按币种列出净额
	summaryRow := len(data.rows) + 2
	totals := data.netByCurrency()
	currencies := make([]string, 0, len(totals))
	for cur := range totals {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	parts := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		parts = append(parts, fmt.Sprintf("%s %s", cur, totals[cur].StringFixed(2)))
	}
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	_ = f.MergeCell(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("E%d", summaryRow))
	if len(currencies) == 1 {
		net, _ := totals[currencies[0]].Float64()
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", summaryRow), net)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", summaryRow), currencies[0])
	}
	_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", summaryRow), fmt.Sprintf("%d records; net %s", len(data.rows), strings.Join(parts, ", ")))
	_ = f.MergeCell(sheet, fmt.Sprintf("H%d", summaryRow), fmt.Sprintf("%s%d", lastCol, summaryRow))
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("%s%d", lastCol, summaryRow), summaryStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		InternalError(c, "failed to generate xlsx")
		return
	}
	filename := fmt.Sprintf("transactions_%s.xlsx", data.label)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
