// Package domain 包含支付服务的领域模型
package domain

import (
	"context"
	"encoding/json"
	"time"
)

// PaymentOrderStatus 支付订单状态
type PaymentOrderStatus string

const (
	PaymentOrderStatusInitiated PaymentOrderStatus = "initiated"
	PaymentOrderStatusPending   PaymentOrderStatus = "pending"
	PaymentOrderStatusCompleted PaymentOrderStatus = "completed"
	PaymentOrderStatusFailed    PaymentOrderStatus = "failed"
)

// 网关状态词表是开放的，这里只区分三个已知值，其余一律按 PENDING 处理
const (
	GatewayStateCompleted = "COMPLETED"
	GatewayStateFailed    = "FAILED"
	GatewayStatePending   = "PENDING"
)

// MapGatewayState 将网关状态映射为本地订单状态。
// 第二个返回值表示该状态是否在已知词表内，未识别的状态按 pending 处理但不视为错误。
func MapGatewayState(state string) (PaymentOrderStatus, bool) {
	switch state {
	case GatewayStateCompleted:
		return PaymentOrderStatusCompleted, true
	case GatewayStateFailed:
		return PaymentOrderStatusFailed, true
	case GatewayStatePending:
		return PaymentOrderStatusPending, true
	default:
		return PaymentOrderStatusPending, false
	}
}

// PaymentOrder 支付订单实体
// 网关受理下单后创建一次，之后仅由对账流程修改，永不删除
type PaymentOrder struct {
	// 商户侧订单号，调用方生成，作为幂等键
	MerchantOrderID string `json:"merchant_order_id"`
	// 关联的报名 ID（外部引用，订单不拥有报名记录）
	ApplicationID string `json:"application_id"`
	// 网关受理后分配的订单号
	GatewayOrderID string `json:"gateway_order_id"`
	// 金额（最小货币单位）
	Amount int64 `json:"amount"`
	// 订单状态
	Status PaymentOrderStatus `json:"status"`
	// 最近一次网关响应原文，仅作审计用途
	RawResponse string `json:"raw_response,omitempty"`
	// 创建时间
	CreatedAt time.Time `json:"created_at"`
	// 更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// ReconciliationUpdate 对账流程写回订单的变更
type ReconciliationUpdate struct {
	Status         PaymentOrderStatus
	GatewayOrderID string
	RawResponse    string
}

// PaymentOrderRepository 支付订单仓储接口
type PaymentOrderRepository interface {
	// 创建订单，商户订单号唯一约束冲突时返回 errs.Conflict
	Create(ctx context.Context, order *PaymentOrder) error
	// 按商户订单号查询，未找到时返回 nil
	GetByMerchantOrderID(ctx context.Context, merchantOrderID string) (*PaymentOrder, error)
	// 查询某报名在 since 之后完成的订单，未找到时返回 nil
	LatestCompletedSince(ctx context.Context, applicationID string, since time.Time) (*PaymentOrder, error)
	// 写回对账结果
	UpdateReconciliation(ctx context.Context, merchantOrderID string, update ReconciliationUpdate) error
}

// CreateOrderParams 网关下单参数
type CreateOrderParams struct {
	MerchantOrderID string
	Amount          int64
	ApplicationID   string
	ApplicantName   string
	ApplicantEmail  string
	ApplicantPhone  string
	// 回跳地址，必须以查询参数形式携带商户订单号
	RedirectURL string
}

// GatewayOrder 网关下单结果
type GatewayOrder struct {
	OrderID     string
	RedirectURL string
	State       string
	ExpireAt    int64
	// 网关响应原文
	Raw json.RawMessage
}

// GatewayOrderStatus 网关订单状态查询结果
type GatewayOrderStatus struct {
	State   string
	OrderID string
	// 网关响应原文
	Raw json.RawMessage
}

// Gateway 支付网关接口
type Gateway interface {
	CreateOrder(ctx context.Context, token string, params CreateOrderParams) (*GatewayOrder, error)
	OrderStatus(ctx context.Context, token string, merchantOrderID string) (*GatewayOrderStatus, error)
}

// TokenSource 网关访问令牌来源
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PaymentCompletedNotice 支付完成通知内容
type PaymentCompletedNotice struct {
	ApplicationID   string
	MerchantOrderID string
	GatewayOrderID  string
	ApplicantName   string
	ApplicantEmail  string
	Amount          int64
	Currency        string
	CompletedAt     time.Time
}

// ConfirmationNotifier 支付完成确认通知接口
// 通知失败由调用方记录日志后吞掉，绝不影响对账结果
type ConfirmationNotifier interface {
	PaymentCompleted(ctx context.Context, notice PaymentCompletedNotice) error
}
