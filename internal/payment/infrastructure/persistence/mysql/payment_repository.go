// Package mysql 提供了支付订单仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/scholarpay/internal/payment/domain"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"gorm.io/gorm"
)

// PaymentOrderModel 支付订单数据库模型，直接映射 payment_orders 表。
type PaymentOrderModel struct {
	gorm.Model
	MerchantOrderID string `gorm:"column:merchant_order_id;type:varchar(64);uniqueIndex;not null;comment:商户侧订单号"`
	ApplicationID   string `gorm:"column:application_id;type:varchar(32);index;not null;comment:关联报名"`
	GatewayOrderID  string `gorm:"column:gateway_order_id;type:varchar(64);comment:网关订单号"`
	Amount          int64  `gorm:"column:amount;not null;comment:金额(最小货币单位)"`
	Status          string `gorm:"column:status;type:varchar(20);index;not null;comment:订单状态"`
	RawResponse     string `gorm:"column:raw_response;type:text;comment:最近一次网关响应原文"`
}

// TableName 指定表名
func (PaymentOrderModel) TableName() string {
	return "payment_orders"
}

// paymentOrderRepositoryImpl 是 domain.PaymentOrderRepository 接口的 GORM 实现。
type paymentOrderRepositoryImpl struct {
	db *gorm.DB
}

// NewPaymentOrderRepository 创建支付订单仓储实例
func NewPaymentOrderRepository(db *gorm.DB) domain.PaymentOrderRepository {
	return &paymentOrderRepositoryImpl{db: db}
}

// Create 实现 domain.PaymentOrderRepository.Create
func (r *paymentOrderRepositoryImpl) Create(ctx context.Context, order *domain.PaymentOrder) error {
	model := r.toModel(order)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Conflict("payment order already exists", map[string]any{
				"merchantOrderId": order.MerchantOrderID,
			})
		}
		logger.Error(ctx, "payment_repository.create failed", "merchant_order_id", order.MerchantOrderID, "error", err)
		return fmt.Errorf("failed to create payment order: %w", err)
	}

	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByMerchantOrderID 实现 domain.PaymentOrderRepository.GetByMerchantOrderID
func (r *paymentOrderRepositoryImpl) GetByMerchantOrderID(ctx context.Context, merchantOrderID string) (*domain.PaymentOrder, error) {
	var model PaymentOrderModel
	if err := r.db.WithContext(ctx).Where("merchant_order_id = ?", merchantOrderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "payment_repository.get failed", "merchant_order_id", merchantOrderID, "error", err)
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}
	return r.toDomain(&model), nil
}

// LatestCompletedSince 实现 domain.PaymentOrderRepository.LatestCompletedSince
func (r *paymentOrderRepositoryImpl) LatestCompletedSince(ctx context.Context, applicationID string, since time.Time) (*domain.PaymentOrder, error) {
	var model PaymentOrderModel
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND status = ? AND updated_at >= ?",
			applicationID, string(domain.PaymentOrderStatusCompleted), since).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "payment_repository.latest_completed failed", "application_id", applicationID, "error", err)
		return nil, fmt.Errorf("failed to query completed orders: %w", err)
	}
	return r.toDomain(&model), nil
}

// UpdateReconciliation 实现 domain.PaymentOrderRepository.UpdateReconciliation
func (r *paymentOrderRepositoryImpl) UpdateReconciliation(ctx context.Context, merchantOrderID string, update domain.ReconciliationUpdate) error {
	updates := map[string]any{
		"status":       string(update.Status),
		"raw_response": update.RawResponse,
	}
	if update.GatewayOrderID != "" {
		updates["gateway_order_id"] = update.GatewayOrderID
	}

	err := r.db.WithContext(ctx).
		Model(&PaymentOrderModel{}).
		Where("merchant_order_id = ?", merchantOrderID).
		Updates(updates).Error
	if err != nil {
		logger.Error(ctx, "payment_repository.update_reconciliation failed", "merchant_order_id", merchantOrderID, "error", err)
		return fmt.Errorf("failed to update payment order: %w", err)
	}
	return nil
}

func (r *paymentOrderRepositoryImpl) toModel(order *domain.PaymentOrder) *PaymentOrderModel {
	return &PaymentOrderModel{
		MerchantOrderID: order.MerchantOrderID,
		ApplicationID:   order.ApplicationID,
		GatewayOrderID:  order.GatewayOrderID,
		Amount:          order.Amount,
		Status:          string(order.Status),
		RawResponse:     order.RawResponse,
	}
}

func (r *paymentOrderRepositoryImpl) toDomain(m *PaymentOrderModel) *domain.PaymentOrder {
	return &domain.PaymentOrder{
		MerchantOrderID: m.MerchantOrderID,
		ApplicationID:   m.ApplicationID,
		GatewayOrderID:  m.GatewayOrderID,
		Amount:          m.Amount,
		Status:          domain.PaymentOrderStatus(m.Status),
		RawResponse:     m.RawResponse,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
