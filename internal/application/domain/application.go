// Package domain 包含报名服务的领域模型
package domain

import (
	"context"
	"time"
)

// ApplicationStatus 报名生命周期状态
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusPaid     ApplicationStatus = "paid"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// PaymentStatus 报名的支付状态
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Application 报名实体
// 提交时创建一次，之后仅由支付对账流程修改状态字段，正常流程中不会删除
type Application struct {
	// 服务端生成的全局唯一报名 ID
	ApplicationID string `json:"application_id"`
	// 申请人姓名
	FullName string `json:"full_name"`
	// 邮箱，与手机号组成唯一对
	Email string `json:"email"`
	// 手机号
	Phone string `json:"phone"`
	// 出生日期
	DateOfBirth string `json:"date_of_birth"`
	// 性别
	Gender string `json:"gender"`
	// 通讯地址
	Address string `json:"address"`
	// 城市
	City string `json:"city"`
	// 省/邦
	State string `json:"state"`
	// 邮政编码，6 位数字
	Pincode string `json:"pincode"`
	// 就读院校
	Institution string `json:"institution"`
	// 就读专业/课程
	Course string `json:"course"`
	// 申请陈述，最少 50 字符
	Statement string `json:"statement"`
	// 生命周期状态
	Status ApplicationStatus `json:"status"`
	// 支付状态
	PaymentStatus PaymentStatus `json:"payment_status"`
	// 完成支付的订单号，仅在支付完成后设置
	PaymentOrderID string `json:"payment_order_id,omitempty"`
	// 创建时间
	CreatedAt time.Time `json:"created_at"`
	// 更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentResult 对账流程写回报名记录的状态变更
type PaymentResult struct {
	Status         ApplicationStatus
	PaymentStatus  PaymentStatus
	PaymentOrderID string
}

// ApplicationRepository 报名仓储接口
type ApplicationRepository interface {
	// 创建报名记录，邮箱+手机号唯一约束冲突时返回 errs.Conflict
	Create(ctx context.Context, app *Application) error
	// 按报名 ID 查询，未找到时返回 nil
	GetByID(ctx context.Context, applicationID string) (*Application, error)
	// 按邮箱或手机号查询已有报名，未找到时返回 nil
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*Application, error)
	// 写回支付结果
	UpdatePaymentResult(ctx context.Context, applicationID string, result PaymentResult) error
}
