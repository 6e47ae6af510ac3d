// Package sender 提供基于 SMTP 的邮件发送实现
package sender

import (
	"context"
	"fmt"

	"github.com/wyfcoding/scholarpay/pkg/config"
	gomail "gopkg.in/gomail.v2"
)

// SMTPSender 通过 SMTP 发送邮件，实现 domain.EmailSender
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender 创建 SMTP 发送器
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send 发送单封邮件。gomail 不支持 context 取消，发送前检查 ctx 状态。
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
