// Package http 支付相关的 HTTP 处理器
package http

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scholarpay/internal/payment/application"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/response"
)

// PaymentHandler HTTP 处理器
// 负责处理与支付相关的 HTTP 请求
type PaymentHandler struct {
	svc *application.PaymentService
}

// NewPaymentHandler 创建 HTTP 处理器实例
func NewPaymentHandler(svc *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *PaymentHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/payment")
	{
		api.POST("/initiate", h.InitiatePayment)             // 发起支付
		api.GET("/status/:merchantOrderId", h.PaymentStatus) // 查询并对账
	}
}

// InitiatePaymentRequest 发起支付请求
type InitiatePaymentRequest struct {
	MerchantOrderID string `json:"merchantOrderId"`
	ApplicationID   string `json:"applicationId"`
	Amount          int64  `json:"amount"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
}

// InitiatePayment 发起支付
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errs.Validation("request body is not valid JSON"))
		return
	}

	cmd := application.InitiatePaymentCommand{
		MerchantOrderID: req.MerchantOrderID,
		ApplicationID:   req.ApplicationID,
		Amount:          req.Amount,
		ApplicantName:   req.Name,
		ApplicantEmail:  req.Email,
		ApplicantPhone:  req.Phone,
	}

	res, err := h.svc.InitiatePayment(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"orderId":     res.OrderID,
		"redirectUrl": res.RedirectURL,
		"state":       res.State,
		"expireAt":    res.ExpireAt,
	})
}

// PaymentStatus 查询订单状态并写回本地
func (h *PaymentHandler) PaymentStatus(c *gin.Context) {
	merchantOrderID := c.Param("merchantOrderId")
	if merchantOrderID == "" {
		response.Error(c, errs.Validation("merchantOrderId is required"))
		return
	}

	res, err := h.svc.ReconcileStatus(c.Request.Context(), merchantOrderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"data":      json.RawMessage(res.Raw),
		"localData": res.Local,
	})
}
