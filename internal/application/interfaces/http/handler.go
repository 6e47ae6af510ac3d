// Package http 报名相关的 HTTP 处理器
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scholarpay/internal/application/application"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/response"
)

// ApplicationHandler HTTP 处理器
// 负责处理与报名相关的 HTTP 请求
type ApplicationHandler struct {
	svc *application.ApplicationService
}

// NewApplicationHandler 创建 HTTP 处理器实例
func NewApplicationHandler(svc *application.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *ApplicationHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/application")
	{
		api.POST("/submit", h.SubmitApplication)     // 提交报名
		api.GET("/:applicationId", h.GetApplication) // 查询报名
	}
}

// SubmitApplicationRequest 提交报名请求
type SubmitApplicationRequest struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Institution string `json:"institution"`
	Course      string `json:"course"`
	Statement   string `json:"statement"`
}

// SubmitApplication 提交报名
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errs.Validation("request body is not valid JSON"))
		return
	}

	cmd := application.SubmitApplicationCommand{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Pincode:     req.Pincode,
		Institution: req.Institution,
		Course:      req.Course,
		Statement:   req.Statement,
	}

	res, err := h.svc.Submit(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"applicationId": res.ApplicationID,
		"timestamp":     res.CreatedAt.Unix(),
	})
}

// GetApplication 查询报名
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	applicationID := c.Param("applicationId")
	if applicationID == "" {
		response.Error(c, errs.Validation("applicationId is required"))
		return
	}

	app, err := h.svc.Get(c.Request.Context(), applicationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, app)
}
