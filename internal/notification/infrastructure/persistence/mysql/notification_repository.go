// Package mysql 提供了通知仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/scholarpay/internal/notification/domain"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"gorm.io/gorm"
)

// NotificationModel 通知数据库模型，直接映射 notifications 表。
type NotificationModel struct {
	gorm.Model
	NotificationID  string     `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null;comment:通知唯一标识"`
	ApplicationID   string     `gorm:"column:application_id;type:varchar(32);index;comment:关联报名"`
	MerchantOrderID string     `gorm:"column:merchant_order_id;type:varchar(64);index;comment:关联订单"`
	Type            string     `gorm:"column:type;type:varchar(10);not null;comment:通知类型"`
	Target          string     `gorm:"column:target;type:varchar(100);not null;comment:接收方"`
	Subject         string     `gorm:"column:subject;type:varchar(200);comment:邮件主题"`
	Content         string     `gorm:"column:content;type:text;comment:邮件正文"`
	Status          string     `gorm:"column:status;type:varchar(10);index;not null;comment:发送状态"`
	ErrorMessage    string     `gorm:"column:error_message;type:varchar(500);comment:失败原因"`
	SentAt          *time.Time `gorm:"column:sent_at;comment:发送成功时间"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notifications"
}

// notificationRepositoryImpl 是 domain.NotificationRepository 接口的 GORM 实现。
type notificationRepositoryImpl struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储实例
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

// Create 实现 domain.NotificationRepository.Create
func (r *notificationRepositoryImpl) Create(ctx context.Context, notification *domain.Notification) error {
	model := r.toModel(notification)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Conflict("notification already exists", nil)
		}
		logger.Error(ctx, "notification_repository.create failed", "notification_id", notification.NotificationID, "error", err)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	notification.CreatedAt = model.CreatedAt
	notification.UpdatedAt = model.UpdatedAt
	return nil
}

// MarkSent 实现 domain.NotificationRepository.MarkSent
func (r *notificationRepositoryImpl) MarkSent(ctx context.Context, notificationID string, sentAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]any{
			"status":  string(domain.NotificationStatusSent),
			"sent_at": sentAt,
		}).Error
	if err != nil {
		logger.Error(ctx, "notification_repository.mark_sent failed", "notification_id", notificationID, "error", err)
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed 实现 domain.NotificationRepository.MarkFailed
func (r *notificationRepositoryImpl) MarkFailed(ctx context.Context, notificationID string, errorMessage string) error {
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]any{
			"status":        string(domain.NotificationStatusFailed),
			"error_message": errorMessage,
		}).Error
	if err != nil {
		logger.Error(ctx, "notification_repository.mark_failed failed", "notification_id", notificationID, "error", err)
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (r *notificationRepositoryImpl) toModel(n *domain.Notification) *NotificationModel {
	return &NotificationModel{
		NotificationID:  n.NotificationID,
		ApplicationID:   n.ApplicationID,
		MerchantOrderID: n.MerchantOrderID,
		Type:            string(n.Type),
		Target:          n.Target,
		Subject:         n.Subject,
		Content:         n.Content,
		Status:          string(n.Status),
		ErrorMessage:    n.ErrorMessage,
		SentAt:          n.SentAt,
	}
}
