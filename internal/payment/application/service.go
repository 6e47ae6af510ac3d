// Package application 实现支付用例：发起支付与状态对账
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	appdomain "github.com/wyfcoding/scholarpay/internal/application/domain"
	"github.com/wyfcoding/scholarpay/internal/payment/domain"
	"github.com/wyfcoding/scholarpay/pkg/config"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"github.com/wyfcoding/scholarpay/pkg/metrics"
)

// duplicateWindow 已完成订单的防重窗口
const duplicateWindow = 30 * time.Minute

// ApplicationUpdater 对账流程需要的报名侧能力，由报名应用服务实现
type ApplicationUpdater interface {
	Get(ctx context.Context, applicationID string) (*appdomain.Application, error)
	ApplyPaymentResult(ctx context.Context, applicationID string, result appdomain.PaymentResult) error
}

// InitiatePaymentCommand 发起支付命令
type InitiatePaymentCommand struct {
	MerchantOrderID string
	ApplicationID   string
	Amount          int64
	ApplicantName   string
	ApplicantEmail  string
	ApplicantPhone  string
}

// InitiateResult 发起支付结果，内容来自网关受理响应
type InitiateResult struct {
	OrderID     string
	RedirectURL string
	State       string
	ExpireAt    int64
}

// LocalOrder 本地订单视图，随对账结果一起返回
type LocalOrder struct {
	MerchantOrderID string                    `json:"merchantOrderId"`
	ApplicationID   string                    `json:"applicationId"`
	Status          domain.PaymentOrderStatus `json:"status"`
	GatewayOrderID  string                    `json:"gatewayOrderId"`
	Amount          int64                     `json:"amount"`
	UpdatedAt       time.Time                 `json:"updatedAt"`
}

// StatusResult 对账结果：网关响应原文加上写回后的本地订单
type StatusResult struct {
	Raw   json.RawMessage
	Local LocalOrder
}

// PaymentService 支付应用服务
type PaymentService struct {
	orders       domain.PaymentOrderRepository
	gateway      domain.Gateway
	tokens       domain.TokenSource
	applications ApplicationUpdater
	notifier     domain.ConfirmationNotifier
	payment      config.PaymentConfig
	// 回跳地址前缀，merchantOrderId 以查询参数追加其后
	redirectBaseURL string
	metrics         *metrics.Metrics

	// 便于测试注入时钟
	now func() time.Time
}

// NewPaymentService 构造函数
func NewPaymentService(
	orders domain.PaymentOrderRepository,
	gateway domain.Gateway,
	tokens domain.TokenSource,
	applications ApplicationUpdater,
	notifier domain.ConfirmationNotifier,
	payment config.PaymentConfig,
	redirectBaseURL string,
	m *metrics.Metrics,
) *PaymentService {
	return &PaymentService{
		orders:          orders,
		gateway:         gateway,
		tokens:          tokens,
		applications:    applications,
		notifier:        notifier,
		payment:         payment,
		redirectBaseURL: redirectBaseURL,
		metrics:         m,
		now:             time.Now,
	}
}

// InitiatePayment 发起支付。
// 闸门按固定顺序执行：字段校验、金额校验、商户订单号查重、
// 完成窗口查重、令牌获取、网关下单，全部通过后才落库。
// 网关下单失败不产生任何本地记录。
func (s *PaymentService) InitiatePayment(ctx context.Context, cmd InitiatePaymentCommand) (*InitiateResult, error) {
	cmd.MerchantOrderID = strings.TrimSpace(cmd.MerchantOrderID)
	cmd.ApplicationID = strings.TrimSpace(cmd.ApplicationID)
	cmd.ApplicantName = strings.TrimSpace(cmd.ApplicantName)
	cmd.ApplicantEmail = strings.TrimSpace(cmd.ApplicantEmail)
	cmd.ApplicantPhone = strings.TrimSpace(cmd.ApplicantPhone)

	var violations []string
	if cmd.MerchantOrderID == "" {
		violations = append(violations, "merchantOrderId is required")
	}
	if cmd.ApplicationID == "" {
		violations = append(violations, "applicationId is required")
	}
	if cmd.ApplicantName == "" {
		violations = append(violations, "name is required")
	}
	if cmd.ApplicantEmail == "" {
		violations = append(violations, "email is required")
	}
	if cmd.ApplicantPhone == "" {
		violations = append(violations, "phone is required")
	}
	if cmd.Amount <= 0 {
		violations = append(violations, "amount is required and must be positive")
	}
	if len(violations) > 0 {
		return nil, errs.Validation(violations...)
	}

	// 金额固定，任何偏离都拒绝
	if cmd.Amount != s.payment.Amount {
		return nil, errs.Validation(fmt.Sprintf("amount must be exactly %d", s.payment.Amount))
	}

	existing, err := s.orders.GetByMerchantOrderID(ctx, cmd.MerchantOrderID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if existing != nil {
		return nil, errs.Conflict("payment order already exists", map[string]any{
			"merchantOrderId": existing.MerchantOrderID,
			"status":          string(existing.Status),
			"gatewayOrderId":  existing.GatewayOrderID,
		})
	}

	completed, err := s.orders.LatestCompletedSince(ctx, cmd.ApplicationID, s.now().Add(-duplicateWindow))
	if err != nil {
		return nil, errs.Internal(err)
	}
	if completed != nil {
		return nil, errs.Conflict("a completed payment already exists for this application", map[string]any{
			"merchantOrderId": completed.MerchantOrderID,
			"completedAt":     completed.UpdatedAt,
		})
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, token, domain.CreateOrderParams{
		MerchantOrderID: cmd.MerchantOrderID,
		Amount:          cmd.Amount,
		ApplicationID:   cmd.ApplicationID,
		ApplicantName:   cmd.ApplicantName,
		ApplicantEmail:  cmd.ApplicantEmail,
		ApplicantPhone:  cmd.ApplicantPhone,
		RedirectURL:     s.redirectURL(cmd.MerchantOrderID),
	})
	if err != nil {
		return nil, err
	}

	order := &domain.PaymentOrder{
		MerchantOrderID: cmd.MerchantOrderID,
		ApplicationID:   cmd.ApplicationID,
		GatewayOrderID:  gwOrder.OrderID,
		Amount:          cmd.Amount,
		Status:          domain.PaymentOrderStatusInitiated,
		RawResponse:     string(gwOrder.Raw),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		// 并发发起时唯一索引兜底，冲突原样返回
		if errs.KindOf(err) == errs.KindConflict {
			return nil, err
		}
		return nil, errs.Internal(err)
	}

	s.metrics.PaymentsInitiated.Inc()
	logger.Info(ctx, "payment initiated",
		"merchant_order_id", cmd.MerchantOrderID,
		"application_id", cmd.ApplicationID,
		"gateway_order_id", gwOrder.OrderID,
	)

	return &InitiateResult{
		OrderID:     gwOrder.OrderID,
		RedirectURL: gwOrder.RedirectURL,
		State:       gwOrder.State,
		ExpireAt:    gwOrder.ExpireAt,
	}, nil
}

// ReconcileStatus 向网关查询订单状态并写回本地。
// 每次调用都完整执行查询与写回；仅当订单首次变为完成时
// 晋升报名状态并发送确认通知，通知失败不影响对账结果。
func (s *PaymentService) ReconcileStatus(ctx context.Context, merchantOrderID string) (*StatusResult, error) {
	order, err := s.orders.GetByMerchantOrderID(ctx, merchantOrderID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if order == nil {
		return nil, errs.NotFound("payment order not found")
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	status, err := s.gateway.OrderStatus(ctx, token, merchantOrderID)
	if err != nil {
		return nil, err
	}

	mapped, recognized := domain.MapGatewayState(status.State)
	if !recognized {
		s.metrics.GatewayUnrecognizedStates.Inc()
		logger.Warn(ctx, "unrecognized gateway state, treating as pending",
			"merchant_order_id", merchantOrderID,
			"state", status.State,
		)
	}

	gatewayOrderID := status.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = order.GatewayOrderID
	}

	update := domain.ReconciliationUpdate{
		Status:         mapped,
		GatewayOrderID: gatewayOrderID,
		RawResponse:    string(status.Raw),
	}
	if err := s.orders.UpdateReconciliation(ctx, merchantOrderID, update); err != nil {
		return nil, errs.Internal(err)
	}

	firstCompletion := mapped == domain.PaymentOrderStatusCompleted &&
		order.Status != domain.PaymentOrderStatusCompleted
	if firstCompletion {
		s.metrics.PaymentsCompleted.Inc()
		if err := s.promoteApplication(ctx, order); err != nil {
			return nil, err
		}
		s.notifyCompletion(ctx, order, gatewayOrderID)
	}
	if mapped == domain.PaymentOrderStatusFailed && order.Status != domain.PaymentOrderStatusFailed {
		s.metrics.PaymentsFailed.Inc()
	}

	return &StatusResult{
		Raw: status.Raw,
		Local: LocalOrder{
			MerchantOrderID: merchantOrderID,
			ApplicationID:   order.ApplicationID,
			Status:          mapped,
			GatewayOrderID:  gatewayOrderID,
			Amount:          order.Amount,
			UpdatedAt:       s.now(),
		},
	}, nil
}

// promoteApplication 将报名晋升为已支付
func (s *PaymentService) promoteApplication(ctx context.Context, order *domain.PaymentOrder) error {
	result := appdomain.PaymentResult{
		Status:         appdomain.ApplicationStatusPaid,
		PaymentStatus:  appdomain.PaymentStatusCompleted,
		PaymentOrderID: order.MerchantOrderID,
	}
	if err := s.applications.ApplyPaymentResult(ctx, order.ApplicationID, result); err != nil {
		logger.Error(ctx, "failed to promote application after payment",
			"application_id", order.ApplicationID,
			"merchant_order_id", order.MerchantOrderID,
			"error", err,
		)
		return errs.Internal(err)
	}
	return nil
}

// notifyCompletion 发送支付完成确认，失败只记录日志
func (s *PaymentService) notifyCompletion(ctx context.Context, order *domain.PaymentOrder, gatewayOrderID string) {
	app, err := s.applications.Get(ctx, order.ApplicationID)
	if err != nil {
		logger.Warn(ctx, "skipping confirmation, application lookup failed",
			"application_id", order.ApplicationID,
			"error", err,
		)
		return
	}

	notice := domain.PaymentCompletedNotice{
		ApplicationID:   order.ApplicationID,
		MerchantOrderID: order.MerchantOrderID,
		GatewayOrderID:  gatewayOrderID,
		ApplicantName:   app.FullName,
		ApplicantEmail:  app.Email,
		Amount:          order.Amount,
		Currency:        s.payment.Currency,
		CompletedAt:     s.now(),
	}
	if err := s.notifier.PaymentCompleted(ctx, notice); err != nil {
		logger.Error(ctx, "confirmation notification failed",
			"merchant_order_id", order.MerchantOrderID,
			"error", err,
		)
	}
}

func (s *PaymentService) redirectURL(merchantOrderID string) string {
	return s.redirectBaseURL + "?merchantOrderId=" + url.QueryEscape(merchantOrderID)
}
