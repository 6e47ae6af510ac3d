// Package errs 提供服务统一的错误分类：校验、冲突、未找到、上游认证/网关失败、内部错误
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind 错误类别
type Kind int

const (
	// KindValidation 客户端可修复的输入问题
	KindValidation Kind = iota + 1
	// KindConflict 唯一性/幂等约束阻止了本次操作
	KindConflict
	// KindNotFound 目标记录不存在
	KindNotFound
	// KindAuth 上游凭证交换失败
	KindAuth
	// KindGateway 上游网关调用失败
	KindGateway
	// KindInternal 未预期的内部错误
	KindInternal
)

// Error 服务错误，携带类别与面向调用方的附加信息
type Error struct {
	Kind    Kind
	Message string
	// Violations 校验失败明细，一次性返回全部违规项
	Violations []string
	// Data 冲突记录的识别信息，供调用方决定是否继续
	Data map[string]any
	// UpstreamCode 上游返回的错误码
	UpstreamCode string
	// Err 底层错误
	Err error
}

func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return e.Message + ": " + strings.Join(e.Violations, "; ")
	}
	if e.UpstreamCode != "" {
		return fmt.Sprintf("%s (upstream code %s)", e.Message, e.UpstreamCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 构造校验错误，violations 为全部违规项
func Validation(violations ...string) *Error {
	return &Error{
		Kind:       KindValidation,
		Message:    "validation failed",
		Violations: violations,
	}
}

// Conflict 构造冲突错误，data 为冲突记录的识别信息
func Conflict(message string, data map[string]any) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: message,
		Data:    data,
	}
}

// NotFound 构造未找到错误
func NotFound(message string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: message,
	}
}

// Auth 构造上游认证错误
func Auth(message string, err error) *Error {
	return &Error{
		Kind:    KindAuth,
		Message: message,
		Err:     err,
	}
}

// Gateway 构造上游网关错误，code/message 为上游返回的错误码与描述
func Gateway(code, message string, err error) *Error {
	return &Error{
		Kind:         KindGateway,
		Message:      message,
		UpstreamCode: code,
		Err:          err,
	}
}

// Internal 包装未预期的内部错误
func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "internal error",
		Err:     err,
	}
}

// KindOf 返回错误的类别，非 *Error 一律视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 返回错误类别对应的 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		// 认证、网关、内部错误对调用方都是 500
		return http.StatusInternalServerError
	}
}
