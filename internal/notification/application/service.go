// Package application 实现通知用例：支付完成确认邮件与事件发布
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/scholarpay/internal/notification/domain"
	paydomain "github.com/wyfcoding/scholarpay/internal/payment/domain"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"github.com/wyfcoding/scholarpay/pkg/metrics"
	"github.com/wyfcoding/scholarpay/pkg/utils"
)

// notificationIDPrefix 通知 ID 前缀
const notificationIDPrefix = "NTF"

// eventTypePaymentCompleted 发布到消息队列的事件类型
const eventTypePaymentCompleted = "payment.completed"

// NotificationService 通知应用服务，实现支付侧的确认通知接口
type NotificationService struct {
	repo      domain.NotificationRepository
	sender    domain.EmailSender
	publisher domain.EventPublisher
	metrics   *metrics.Metrics

	// 便于测试注入时钟
	now func() time.Time
}

// NewNotificationService 构造函数
func NewNotificationService(
	repo domain.NotificationRepository,
	sender domain.EmailSender,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
) *NotificationService {
	return &NotificationService{
		repo:      repo,
		sender:    sender,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// PaymentCompleted 发送支付完成确认邮件并发布事件。
// 每次尝试都落一条通知记录；记录写入失败不阻断发送，
// 事件发布失败只记录日志。
func (s *NotificationService) PaymentCompleted(ctx context.Context, notice paydomain.PaymentCompletedNotice) error {
	subject, body := buildConfirmationEmail(notice)

	notification := &domain.Notification{
		NotificationID:  utils.NewID(notificationIDPrefix),
		ApplicationID:   notice.ApplicationID,
		MerchantOrderID: notice.MerchantOrderID,
		Type:            domain.NotificationTypeEmail,
		Target:          notice.ApplicantEmail,
		Subject:         subject,
		Content:         body,
		Status:          domain.NotificationStatusPending,
	}

	persisted := true
	if err := s.repo.Create(ctx, notification); err != nil {
		persisted = false
		logger.Error(ctx, "failed to persist notification record",
			"merchant_order_id", notice.MerchantOrderID,
			"error", err,
		)
	}

	if err := s.sender.Send(ctx, notice.ApplicantEmail, subject, body); err != nil {
		s.metrics.NotificationsFailed.Inc()
		if persisted {
			if markErr := s.repo.MarkFailed(ctx, notification.NotificationID, err.Error()); markErr != nil {
				logger.Error(ctx, "failed to mark notification failed", "notification_id", notification.NotificationID, "error", markErr)
			}
		}
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	s.metrics.NotificationsSent.Inc()
	if persisted {
		if err := s.repo.MarkSent(ctx, notification.NotificationID, s.now()); err != nil {
			logger.Error(ctx, "failed to mark notification sent", "notification_id", notification.NotificationID, "error", err)
		}
	}
	logger.Info(ctx, "confirmation email sent",
		"merchant_order_id", notice.MerchantOrderID,
		"target", notice.ApplicantEmail,
	)

	event := domain.PaymentCompletedEvent{
		EventType:       eventTypePaymentCompleted,
		ApplicationID:   notice.ApplicationID,
		MerchantOrderID: notice.MerchantOrderID,
		GatewayOrderID:  notice.GatewayOrderID,
		Amount:          notice.Amount,
		Currency:        notice.Currency,
		CompletedAt:     notice.CompletedAt,
	}
	if err := s.publisher.PublishPaymentCompleted(ctx, event); err != nil {
		logger.Error(ctx, "failed to publish payment completed event",
			"merchant_order_id", notice.MerchantOrderID,
			"error", err,
		)
	}

	return nil
}

// buildConfirmationEmail 生成确认邮件的主题与正文，金额以主货币单位展示
func buildConfirmationEmail(notice paydomain.PaymentCompletedNotice) (subject, body string) {
	amount := decimal.NewFromInt(notice.Amount).Div(decimal.NewFromInt(100))

	subject = fmt.Sprintf("Payment received for application %s", notice.ApplicationID)
	body = fmt.Sprintf(
		"<p>Dear %s,</p>"+
			"<p>We have received your scholarship application fee of <b>%s %s</b>.</p>"+
			"<p>Application ID: %s<br>Order ID: %s<br>Transaction reference: %s</p>"+
			"<p>Your application is now being processed.</p>",
		notice.ApplicantName,
		notice.Currency, amount.StringFixed(2),
		notice.ApplicationID,
		notice.MerchantOrderID,
		notice.GatewayOrderID,
	)
	return subject, body
}
