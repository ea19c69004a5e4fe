package service

import (
	"context"
	"fmt"
	"html"

	"expensetracker/config"
	"expensetracker/report"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Name 通知渠道名称
func (s *EmailService) Name() string {
	return "email"
}

// NotifyBudgetAlert 发送预算提醒邮件
func (s *EmailService) NotifyBudgetAlert(_ context.Context, event BudgetAlertEvent) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用，请配置 EXPENSE_EMAIL_ENABLED=true")
	}
	if event.Email == "" {
		return fmt.Errorf("用户未设置邮箱")
	}

	subject := "【Expense Tracker】预算提醒"
	if event.Alert.Kind == report.AlertExceeded {
		subject = "【Expense Tracker】今日预算已超支"
	}
	return s.sendEmail(event.Email, subject, s.generateBudgetAlertBody(event))
}

// generateBudgetAlertBody 生成预算提醒邮件内容
func (s *EmailService) generateBudgetAlertBody(event BudgetAlertEvent) string {
	color, title := "#f59e0b", "接近今日预算上限"
	if event.Alert.Kind == report.AlertExceeded {
		color, title = "#ef4444", "今日预算已超支"
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: %s; color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .amount { font-size: 28px; font-weight: bold; color: %s; text-align: center; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>💰 %s</h1>
        </div>
        <div class="content">
            <p><strong>%s</strong>，您好！</p>
            <p>%s 的消费情况：</p>
            <p class="amount">%.2f / %.2f</p>
            <p>%s</p>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
            <p>© Expense Tracker</p>
        </div>
    </div>
</body>
</html>
`, color, color, title,
		html.EscapeString(event.Name),
		event.Alert.Date,
		event.Alert.Spent, event.Alert.Budget,
		html.EscapeString(event.Alert.Message))
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
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}
