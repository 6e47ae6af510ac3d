// Package domain 包含通知服务的领域模型
package domain

import (
	"context"
	"time"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeEmail NotificationType = "EMAIL"
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification 通知记录实体，每次发送尝试一条
type Notification struct {
	// 通知唯一标识
	NotificationID string `json:"notification_id"`
	// 关联的报名 ID
	ApplicationID string `json:"application_id"`
	// 关联的商户订单号
	MerchantOrderID string `json:"merchant_order_id"`
	// 通知类型
	Type NotificationType `json:"type"`
	// 接收方（邮箱地址）
	Target string `json:"target"`
	// 邮件主题
	Subject string `json:"subject"`
	// 邮件正文
	Content string `json:"content"`
	// 发送状态
	Status NotificationStatus `json:"status"`
	// 失败原因
	ErrorMessage string `json:"error_message,omitempty"`
	// 发送成功时间
	SentAt *time.Time `json:"sent_at,omitempty"`
	// 创建时间
	CreatedAt time.Time `json:"created_at"`
	// 更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	MarkSent(ctx context.Context, notificationID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, notificationID string, errorMessage string) error
}

// EmailSender 邮件发送接口
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PaymentCompletedEvent 支付完成事件，发布到消息队列供下游消费
type PaymentCompletedEvent struct {
	EventType       string    `json:"event_type"`
	ApplicationID   string    `json:"application_id"`
	MerchantOrderID string    `json:"merchant_order_id"`
	GatewayOrderID  string    `json:"gateway_order_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	CompletedAt     time.Time `json:"completed_at"`
}

// EventPublisher 事件发布接口，由 Kafka 实现
type EventPublisher interface {
	PublishPaymentCompleted(ctx context.Context, event PaymentCompletedEvent) error
}
