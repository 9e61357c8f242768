package service

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"globfam/config"

	"gopkg.in/gomail.v2"
)

// ErrEmailDisabled 邮件服务未启用
var ErrEmailDisabled = errors.New("email service is disabled")

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled 是否已启用
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled
}

// ImportSummary 导入结果摘要
type ImportSummary struct {
	FileName      string
	AssetName     string
	Status        string
	TotalRows     int
	SuccessRows   int
	FailedRows    int
	DuplicateRows int
	Errors        []string
}

// maxSummaryErrors 邮件中最多列出的错误行
const maxSummaryErrors = 10

// SendImportSummary 发送导入结果邮件
func (s *EmailService) SendImportSummary(toEmail, name string, summary ImportSummary) error {
	if !s.Enabled() {
		return ErrEmailDisabled
	}
	subject := fmt.Sprintf("[GlobFam] Import %s: %s", summary.Status, summary.FileName)
	return s.sendEmail(toEmail, subject, s.generateImportSummaryBody(name, summary))
}

// generateImportSummaryBody 生成导入结果邮件内容
func (s *EmailService) generateImportSummaryBody(name string, summary ImportSummary) string {
	var errs strings.Builder
	for i, e := range summary.Errors {
		if i == maxSummaryErrors {
			fmt.Fprintf(&errs, "<li>... and %d more</li>", len(summary.Errors)-maxSummaryErrors)
			break
		}
		fmt.Fprintf(&errs, "<li>%s</li>", html.EscapeString(e))
	}
	errorBlock := ""
	if errs.Len() > 0 {
		errorBlock = `<div class="warning"><p>Rows that could not be imported:</p><ul>` + errs.String() + `</ul></div>`
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; }
        .header { background: linear-gradient(135deg, #2563eb, #1d4ed8); color: white; padding: 24px; text-align: center; }
        .content { padding: 30px; color: #333; line-height: 1.6; }
        table { border-collapse: collapse; width: 100%%; }
        td { padding: 6px 10px; border-bottom: 1px solid #eee; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 12px; margin-top: 20px; color: #856404; font-size: 14px; }
        .footer { background: #f8f9fa; padding: 16px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>GlobFam</h1></div>
        <div class="content">
            <p>Hi <strong>%s</strong>,</p>
            <p>Your import of <strong>%s</strong> into <strong>%s</strong> finished with status <strong>%s</strong>.</p>
            <table>
                <tr><td>Total rows</td><td>%d</td></tr>
                <tr><td>Imported</td><td>%d</td></tr>
                <tr><td>Failed</td><td>%d</td></tr>
                <tr><td>Duplicates skipped</td><td>%d</td></tr>
            </table>
            %s
        </div>
        <div class="footer"><p>This message was sent automatically, please do not reply.</p></div>
    </div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(summary.FileName), html.EscapeString(summary.AssetName),
		summary.Status, summary.TotalRows, summary.SuccessRows, summary.FailedRows, summary.DuplicateRows, errorBlock)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// SendTestEmail 发送测试邮件
func (s *EmailService) SendTestEmail(toEmail string) error {
	if !s.Enabled() {
		return ErrEmailDisabled
	}
	body := `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2>Email configuration works</h2>
    <p>If you received this message, GlobFam can deliver import notifications.</p>
</body>
</html>
`
	return s.sendEmail(toEmail, "[GlobFam] Email configuration test", body)
}
