package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"globfam/config"
	"globfam/models"
	"globfam/service"
	"globfam/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

// Notifier 导入完成通知
type Notifier interface {
	Enabled() bool
	SendImportSummary(toEmail, name string, summary service.ImportSummary) error
}

// Request 一次导入请求
type Request struct {
	OrganizationID  uint
	UserID          uint
	AssetID         uint
	FileName        string
	Data            []byte
	Sheet           string
	Mapping         ColumnMapping // 为空时按表头自动推荐
	DateFormat      string
	DefaultCurrency string
	SkipDuplicates  bool
	AICategorize    bool
}

// Importer 交易导入服务
type Importer struct {
	db            *gorm.DB
	cfg           config.ImportConfig
	archiver      storage.Archiver
	notifier      Notifier
	categorizer   Categorizer
	minConfidence float64
}

// Option 导入服务选项
type Option func(*Importer)

// WithArchiver 设置归档器
func WithArchiver(a storage.Archiver) Option {
	return func(i *Importer) { i.archiver = a }
}

// WithNotifier 设置完成通知
func WithNotifier(n Notifier) Option {
	return func(i *Importer) { i.notifier = n }
}

// WithCategorizer 设置分类器及最低置信度
func WithCategorizer(c Categorizer, minConfidence float64) Option {
	return func(i *Importer) {
		i.categorizer = c
		i.minConfidence = minConfidence
	}
}

// New 创建导入服务
func New(db *gorm.DB, cfg config.ImportConfig, opts ...Option) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 500
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 10
	}
	i := &Importer{
		db:          db,
		cfg:         cfg,
		archiver:    storage.Noop{},
		categorizer: NewKeywordCategorizer(nil),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// PreviewResult 文件预览
type PreviewResult struct {
	FileType         string        `json:"file_type"`
	Headers          []string      `json:"headers"`
	SampleRows       [][]string    `json:"sample_rows"`
	TotalRows        int           `json:"total_rows"`
	SuggestedMapping ColumnMapping `json:"suggested_mapping"`
	DateFormat       string        `json:"date_format,omitempty"`
}

// Preview 解析文件并返回表头、样本行与推荐映射
func (im *Importer) Preview(name string, data []byte, sheet string) (*PreviewResult, error) {
	typ, err := FileType(name)
	if err != nil {
		return nil, err
	}
	table, err := ParseFile(name, data, sheet)
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{
		FileType:         typ,
		Headers:          table.Headers,
		SampleRows:       [][]string{},
		TotalRows:        len(table.Rows),
		SuggestedMapping: SuggestMapping(table.Headers),
	}
	for i := 0; i < len(table.Rows) && i < im.cfg.PreviewRows; i++ {
		res.SampleRows = append(res.SampleRows, table.Rows[i].Cells)
	}
	if cols, err := res.SuggestedMapping.resolve(table.Headers); err == nil {
		samples := make([]string, 0, len(res.SampleRows))
		for i := 0; i < len(table.Rows) && i < im.cfg.PreviewRows; i++ {
			samples = append(samples, table.Rows[i].Get(cols.date))
		}
		res.DateFormat = DetectDateFormat(samples)
	}
	return res, nil
}

// parsedRow 规范化后的一行
type parsedRow struct {
	row         int
	date        time.Time
	amount      decimal.Decimal
	typ         models.TransactionType
	currency    string
	description string
	category    string
	aiConf      *float64
}

// run 单次导入的累计状态
type run struct {
	hist   *models.ImportHistory
	errors []models.RowError
	failed int
}

func (r *run) fail(row int, msg string, maxErrors int) {
	r.failed++
	if len(r.errors) < maxErrors {
		r.errors = append(r.errors, models.RowError{Row: row, Message: msg})
	}
}

// Import 执行导入
// 文件不可读或映射缺少必需列时导入记录置为 failed 并返回错误；逐行错误计入记录
func (im *Importer) Import(ctx context.Context, req Request) (*models.ImportHistory, error) {
	fileType, err := FileType(req.FileName)
	if err != nil {
		return nil, err
	}
	asset, err := service.FindAsset(im.db.WithContext(ctx), req.OrganizationID, req.AssetID)
	if err != nil {
		return nil, err
	}

	hist := &models.ImportHistory{
		BatchID:        uuid.NewString(),
		OrganizationID: req.OrganizationID,
		UserID:         req.UserID,
		AssetID:        asset.ID,
		FileName:       req.FileName,
		FileType:       fileType,
		FileSize:       int64(len(req.Data)),
		Status:         models.ImportProcessing,
		SkipDuplicates: req.SkipDuplicates,
		StartedAt:      time.Now().UTC(),
	}
	if err := im.db.WithContext(ctx).Create(hist).Error; err != nil {
		return nil, fmt.Errorf("create import history: %w", err)
	}
	logger := log.With().Str("batch_id", hist.BatchID).Uint("asset_id", asset.ID).Logger()
	logger.Info().Str("file", req.FileName).Int64("size", hist.FileSize).Msg("开始导入")

	if uri, err := im.archiver.Put(ctx, storage.ObjectKey(req.OrganizationID, hist.BatchID, req.FileName), req.Data); err != nil {
		logger.Warn().Err(err).Msg("归档导入文件失败")
	} else {
		hist.StorageURI = uri
	}

	r := &run{hist: hist}
	fatal := im.process(ctx, req, asset, r)

	im.finish(ctx, r, fatal)
	logger.Info().
		Str("status", string(hist.Status)).
		Int("success", hist.SuccessRows).
		Int("failed", hist.FailedRows).
		Int("duplicates", hist.DuplicateRows).
		Msg("导入结束")

	im.notify(ctx, asset, hist)
	if fatal != nil {
		return hist, fatal
	}
	return hist, nil
}

// process 解析、校验并分批写入；返回值仅为致命错误
func (im *Importer) process(ctx context.Context, req Request, asset *models.Asset, r *run) error {
	table, err := ParseFile(req.FileName, req.Data, req.Sheet)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	r.hist.TotalRows = len(table.Rows)

	mapping := req.Mapping
	if mapping.IsEmpty() {
		mapping = SuggestMapping(table.Headers)
	}
	r.hist.Mapping = mapping.ToMap()
	cols, err := mapping.resolve(table.Headers)
	if err != nil {
		return err
	}

	fallbackCurrency := asset.Currency
	if c, ok := validCurrency(req.DefaultCurrency); ok {
		fallbackCurrency = c
	}

	rows := make([]parsedRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		p, err := normalizeRow(row, cols, req.DateFormat, fallbackCurrency)
		if err != nil {
			r.fail(row.Number, err.Error(), im.cfg.MaxErrors)
			continue
		}
		rows = append(rows, p)
	}

	if req.AICategorize {
		im.categorize(ctx, req.OrganizationID, rows)
	}

	seen := make(map[string]bool)
	for start := 0; start < len(rows); start += im.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import interrupted: %w", err)
		}
		end := start + im.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		im.writeBatch(ctx, req, r, rows[start:end], seen)
	}
	return nil
}

// normalizeRow 将一行原始数据转换为交易字段
func normalizeRow(row Row, cols columns, dateFormat, fallbackCurrency string) (parsedRow, error) {
	p := parsedRow{row: row.Number}

	date, err := ParseDate(row.Get(cols.date), dateFormat)
	if err != nil {
		return p, err
	}
	p.date = date

	amount, err := rowAmount(row, cols)
	if err != nil {
		return p, err
	}
	if amount.IsZero() {
		return p, errors.New("amount is zero")
	}

	p.typ = typeFromColumn(row.Get(cols.typ))
	if p.typ == "" {
		if amount.IsNegative() {
			p.typ = models.TransactionExpense
		} else {
			p.typ = models.TransactionIncome
		}
	}
	p.amount = amount.Abs().Round(2)

	p.currency = fallbackCurrency
	if c, ok := validCurrency(row.Get(cols.currency)); ok {
		p.currency = c
	}
	p.description = truncate(row.Get(cols.description), 255)
	p.category = truncate(row.Get(cols.category), 100)
	return p, nil
}

// rowAmount 金额列优先，否则使用借方/贷方列
func rowAmount(row Row, cols columns) (decimal.Decimal, error) {
	if cols.amount >= 0 {
		return ParseAmount(row.Get(cols.amount))
	}
	if v := row.Get(cols.debit); v != "" {
		d, err := ParseAmount(v)
		if err != nil {
			return d, err
		}
		if !d.IsZero() {
			return d.Abs().Neg(), nil
		}
	}
	if v := row.Get(cols.credit); v != "" {
		d, err := ParseAmount(v)
		if err != nil {
			return d, err
		}
		return d.Abs(), nil
	}
	return decimal.Zero, errors.New("missing amount")
}

func validCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", false
	}
	return unit.String(), true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// categorize 为没有分类的行推荐分类，失败不影响导入
func (im *Importer) categorize(ctx context.Context, orgID uint, rows []parsedRow) {
	var idx []int
	var descs []string
	for i := range rows {
		if rows[i].category == "" && rows[i].description != "" {
			idx = append(idx, i)
			descs = append(descs, rows[i].description)
		}
	}
	if len(idx) == 0 || im.categorizer == nil {
		return
	}

	var names []string
	if err := im.db.WithContext(ctx).Model(&models.BudgetCategory{}).
		Where("organization_id = ? AND is_hidden = ?", orgID, false).
		Order("sort_order").Pluck("name", &names).Error; err != nil {
		log.Warn().Err(err).Msg("读取预算分类失败")
	}

	suggestions, err := im.categorizer.Categorize(ctx, descs, names)
	if err != nil {
		log.Warn().Err(err).Msg("自动分类失败")
		return
	}
	for j, i := range idx {
		if j >= len(suggestions) {
			break
		}
		s := suggestions[j]
		if s.Category == "" || s.Confidence < im.minConfidence {
			continue
		}
		conf := s.Confidence
		rows[i].category = s.Category
		rows[i].aiConf = &conf
	}
}

// dedupKey 去重键：日期 + 金额 + 描述
func dedupKey(date time.Time, amount decimal.Decimal, description string) string {
	return date.UTC().Format("2006-01-02") + "|" + amount.StringFixed(2) + "|" + strings.ToLower(strings.TrimSpace(description))
}

// existingKeys 查询资产在批次日期范围内已有交易的去重键
func (im *Importer) existingKeys(ctx context.Context, assetID uint, batch []parsedRow) (map[string]bool, error) {
	minDate, maxDate := batch[0].date, batch[0].date
	for _, p := range batch[1:] {
		if p.date.Before(minDate) {
			minDate = p.date
		}
		if p.date.After(maxDate) {
			maxDate = p.date
		}
	}

	var existing []models.Transaction
	if err := im.db.WithContext(ctx).
		Select("date", "amount", "description").
		Where("asset_id = ? AND date >= ? AND date < ?", assetID, minDate, maxDate.AddDate(0, 0, 1)).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load existing transactions: %w", err)
	}
	keys := make(map[string]bool, len(existing))
	for _, t := range existing {
		keys[dedupKey(t.Date, t.Amount, t.Description)] = true
	}
	return keys, nil
}

// writeBatch 批量写入一批交易并调整资产余额；失败时整批计为失败行
func (im *Importer) writeBatch(ctx context.Context, req Request, r *run, batch []parsedRow, seen map[string]bool) {
	if len(batch) == 0 {
		return
	}
	// 本批去重键仅在提交成功后并入 seen
	pending := make(map[string]bool)
	if req.SkipDuplicates {
		existing, err := im.existingKeys(ctx, req.AssetID, batch)
		if err != nil {
			for _, p := range batch {
				r.fail(p.row, err.Error(), im.cfg.MaxErrors)
			}
			return
		}
		kept := batch[:0:0]
		for _, p := range batch {
			key := dedupKey(p.date, p.amount, p.description)
			if existing[key] || seen[key] || pending[key] {
				r.hist.DuplicateRows++
				continue
			}
			pending[key] = true
			kept = append(kept, p)
		}
		batch = kept
		if len(batch) == 0 {
			return
		}
	}

	importID := r.hist.ID
	txs := make([]models.Transaction, len(batch))
	net := decimal.Zero
	for i, p := range batch {
		sourceRow := p.row
		txs[i] = models.Transaction{
			OrganizationID: req.OrganizationID,
			UserID:         req.UserID,
			AssetID:        req.AssetID,
			Type:           p.typ,
			Amount:         p.amount,
			Currency:       p.currency,
			Category:       p.category,
			Description:    p.description,
			Date:           p.date,
			ImportID:       &importID,
			SourceRow:      &sourceRow,
			AICategorized:  p.aiConf != nil,
			AIConfidence:   p.aiConf,
		}
		net = net.Add(txs[i].SignedAmount())
	}

	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&txs, len(txs)).Error; err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		return service.AdjustBalance(tx, req.AssetID, net)
	})
	if err != nil {
		log.Error().Err(err).Str("batch_id", r.hist.BatchID).Int("rows", len(batch)).Msg("批量写入失败")
		for _, p := range batch {
			r.fail(p.row, "batch insert failed: "+config.SafeErrorMessage(err, "database error"), im.cfg.MaxErrors)
		}
		return
	}
	for key := range pending {
		seen[key] = true
	}
	r.hist.SuccessRows += len(batch)
}

// finish 写回导入结果与最终状态
func (im *Importer) finish(ctx context.Context, r *run, fatal error) {
	h := r.hist
	h.FailedRows = r.failed
	h.Errors = r.errors
	now := time.Now().UTC()
	h.CompletedAt = &now

	switch {
	case fatal != nil:
		h.Status = models.ImportFailed
		h.Message = fatal.Error()
	case h.SuccessRows == 0 && h.FailedRows > 0:
		h.Status = models.ImportFailed
		h.Message = "no rows were imported"
	default:
		h.Status = models.ImportCompleted
		h.Message = fmt.Sprintf("imported %d of %d rows", h.SuccessRows, h.TotalRows)
	}
	h.Message = truncate(h.Message, 500)

	// 请求已取消时仍需落库最终状态
	if err := im.db.WithContext(context.WithoutCancel(ctx)).Save(h).Error; err != nil {
		log.Error().Err(err).Str("batch_id", h.BatchID).Msg("更新导入记录失败")
	}
}

// notify 发送导入结果邮件，失败只记录日志
func (im *Importer) notify(ctx context.Context, asset *models.Asset, h *models.ImportHistory) {
	if im.notifier == nil || !im.notifier.Enabled() {
		return
	}
	var user models.User
	if err := im.db.WithContext(context.WithoutCancel(ctx)).First(&user, h.UserID).Error; err != nil || user.Email == "" {
		return
	}

	msgs := make([]string, len(h.Errors))
	for i, e := range h.Errors {
		msgs[i] = fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	summary := service.ImportSummary{
		FileName:      h.FileName,
		AssetName:     asset.Name,
		Status:        string(h.Status),
		TotalRows:     h.TotalRows,
		SuccessRows:   h.SuccessRows,
		FailedRows:    h.FailedRows,
		DuplicateRows: h.DuplicateRows,
		Errors:        msgs,
	}
	if err := im.notifier.SendImportSummary(user.Email, user.Name, summary); err != nil {
		log.Warn().Err(err).Str("batch_id", h.BatchID).Msg("发送导入结果邮件失败")
	}
}
