// Package response 提供统一的 HTTP 响应封装与错误到状态码的映射
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scholarpay/pkg/errs"
)

// productionMode 为 true 时对外隐藏上游与内部错误详情
var productionMode bool

// SetMode 设置生产模式开关，应在启动时调用一次
func SetMode(production bool) {
	productionMode = production
}

// Body 统一响应体
type Body struct {
	Code       int            `json:"code"`
	Message    string         `json:"message"`
	Data       any            `json:"data,omitempty"`
	Violations []string       `json:"violations,omitempty"`
	Upstream   map[string]any `json:"upstream,omitempty"`
}

// Success 返回 200
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: "success", Data: data})
}

// Created 返回 201
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Code: 0, Message: "created", Data: data})
}

// Error 按错误类别返回对应状态码与响应体
func Error(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	body := Body{Code: status}

	var e *errs.Error
	if !errors.As(err, &e) {
		body.Message = internalMessage(err)
		c.JSON(status, body)
		return
	}

	switch e.Kind {
	case errs.KindValidation:
		body.Message = e.Message
		body.Violations = e.Violations
	case errs.KindConflict:
		body.Message = e.Message
		body.Data = e.Data
	case errs.KindNotFound:
		body.Message = e.Message
	case errs.KindAuth, errs.KindGateway:
		// 上游错误码/详情仅在非生产环境透传
		if productionMode {
			body.Message = "internal server error"
		} else {
			body.Message = e.Message
			if e.UpstreamCode != "" {
				body.Upstream = map[string]any{"code": e.UpstreamCode}
			}
		}
	default:
		body.Message = internalMessage(err)
	}

	c.JSON(status, body)
}

func internalMessage(err error) string {
	if productionMode {
		return "internal server error"
	}
	return err.Error()
}
