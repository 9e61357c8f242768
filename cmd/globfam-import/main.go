package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"globfam/config"
	"globfam/database"
	"globfam/importer"
	"globfam/logger"
	"globfam/models"
	"globfam/service"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		Config    string       `help:"External config file" short:"c" type:"path"`
		Import    ImportCmd    `cmd:"" help:"Import transactions from a CSV/XLSX file into an asset"`
		Preview   PreviewCmd   `cmd:"" help:"Show headers, sample rows and the suggested column mapping"`
		TestEmail TestEmailCmd `cmd:"" name:"test-email" help:"Send a test email with the configured SMTP settings"`
		Version   kong.VersionFlag
	}
)

// Globals 子命令共享的配置
type Globals struct {
	Config *config.Config
}

// ImportCmd 离线导入
type ImportCmd struct {
	File            string `arg:"" type:"existingfile" help:"CSV or XLSX file"`
	Org             uint   `required:"" help:"Organization ID"`
	User            uint   `required:"" help:"User ID recorded on the import"`
	Asset           uint   `required:"" help:"Target asset ID"`
	Mapping         string `help:"Column mapping as JSON, e.g. {\"date\":\"Date\",\"amount\":\"Amount\"}"`
	DateFormat      string `help:"Preferred date format, e.g. DD/MM/YYYY"`
	Sheet           string `help:"Worksheet name for XLSX files"`
	DefaultCurrency string `help:"Currency for rows without a currency column"`
	SkipDuplicates  bool   `help:"Skip rows already present for the asset"`
	AICategorize    bool   `name:"ai-categorize" help:"Categorize rows without a category"`
}

// Run 执行导入
func (cmd *ImportCmd) Run(ctx context.Context, g *Globals) error {
	var mapping importer.ColumnMapping
	if cmd.Mapping != "" {
		if err := json.Unmarshal([]byte(cmd.Mapping), &mapping); err != nil {
			return fmt.Errorf("parse mapping: %w", err)
		}
	}
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	if err := database.Init(ctx, g.Config); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	imp, closeImporter, err := importer.FromConfig(ctx, database.DB, g.Config)
	if err != nil {
		return err
	}
	defer closeImporter()

	hist, err := imp.Import(ctx, importer.Request{
		OrganizationID:  cmd.Org,
		UserID:          cmd.User,
		AssetID:         cmd.Asset,
		FileName:        filepath.Base(cmd.File),
		Data:            data,
		Sheet:           cmd.Sheet,
		Mapping:         mapping,
		DateFormat:      cmd.DateFormat,
		DefaultCurrency: cmd.DefaultCurrency,
		SkipDuplicates:  cmd.SkipDuplicates,
		AICategorize:    cmd.AICategorize,
	})
	if hist != nil {
		if perr := printJSON(hist); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	if hist.Status == models.ImportFailed {
		return fmt.Errorf("import failed: %s", hist.Message)
	}
	return nil
}

// PreviewCmd 预览文件，不访问数据库
type PreviewCmd struct {
	File  string `arg:"" type:"existingfile" help:"CSV or XLSX file"`
	Sheet string `help:"Worksheet name for XLSX files"`
}

// Run 执行预览
func (cmd *PreviewCmd) Run(g *Globals) error {
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	res, err := importer.New(nil, g.Config.Import).Preview(filepath.Base(cmd.File), data, cmd.Sheet)
	if err != nil {
		return err
	}
	return printJSON(res)
}

// TestEmailCmd 发送测试邮件
type TestEmailCmd struct {
	To string `arg:"" help:"Recipient address"`
}

// Run 发送测试邮件
func (cmd *TestEmailCmd) Run(g *Globals) error {
	return service.NewEmailService(&g.Config.Email).SendTestEmail(cmd.To)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx := context.Background()
	kctx := kong.Parse(&cli,
		kong.Name("globfam-import"),
		kong.Description("Offline transaction importer for GlobFam."),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	cfg, err := config.LoadConfig(cli.Config)
	kctx.FatalIfErrorf(err)
	logger.Init(cfg.Log)

	err = kctx.Run(&Globals{Config: cfg})
	kctx.FatalIfErrorf(err)
}
