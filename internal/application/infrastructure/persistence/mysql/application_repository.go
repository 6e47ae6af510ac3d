// Package mysql 提供了报名仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/scholarpay/internal/application/domain"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"gorm.io/gorm"
)

// ApplicationModel 报名数据库模型，直接映射 applications 表。
type ApplicationModel struct {
	gorm.Model
	ApplicationID  string `gorm:"column:application_id;type:varchar(32);uniqueIndex;not null;comment:报名唯一标识"`
	FullName       string `gorm:"column:full_name;type:varchar(100);not null;comment:申请人姓名"`
	Email          string `gorm:"column:email;type:varchar(100);not null;uniqueIndex:uix_applications_email_phone;comment:邮箱"`
	Phone          string `gorm:"column:phone;type:varchar(10);not null;uniqueIndex:uix_applications_email_phone;comment:手机号"`
	DateOfBirth    string `gorm:"column:date_of_birth;type:varchar(10);comment:出生日期"`
	Gender         string `gorm:"column:gender;type:varchar(10);comment:性别"`
	Address        string `gorm:"column:address;type:varchar(255);comment:通讯地址"`
	City           string `gorm:"column:city;type:varchar(50);comment:城市"`
	State          string `gorm:"column:state;type:varchar(50);comment:省/邦"`
	Pincode        string `gorm:"column:pincode;type:varchar(6);comment:邮政编码"`
	Institution    string `gorm:"column:institution;type:varchar(100);comment:就读院校"`
	Course         string `gorm:"column:course;type:varchar(100);comment:就读课程"`
	Statement      string `gorm:"column:statement;type:text;comment:申请陈述"`
	Status         string `gorm:"column:status;type:varchar(20);index;not null;default:'pending';comment:生命周期状态"`
	PaymentStatus  string `gorm:"column:payment_status;type:varchar(20);index;not null;default:'pending';comment:支付状态"`
	PaymentOrderID string `gorm:"column:payment_order_id;type:varchar(64);comment:完成支付的订单号"`
}

// TableName 指定表名
func (ApplicationModel) TableName() string {
	return "applications"
}

// applicationRepositoryImpl 是 domain.ApplicationRepository 接口的 GORM 实现。
type applicationRepositoryImpl struct {
	db *gorm.DB
}

// NewApplicationRepository 创建报名仓储实例
func NewApplicationRepository(db *gorm.DB) domain.ApplicationRepository {
	return &applicationRepositoryImpl{db: db}
}

// Create 实现 domain.ApplicationRepository.Create
func (r *applicationRepositoryImpl) Create(ctx context.Context, app *domain.Application) error {
	model := r.toModel(app)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.conflictWithExisting(ctx, app)
		}
		logger.Error(ctx, "application_repository.create failed", "application_id", app.ApplicationID, "error", err)
		return fmt.Errorf("failed to create application: %w", err)
	}

	app.CreatedAt = model.CreatedAt
	app.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID 实现 domain.ApplicationRepository.GetByID
func (r *applicationRepositoryImpl) GetByID(ctx context.Context, applicationID string) (*domain.Application, error) {
	var model ApplicationModel
	if err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "application_repository.get failed", "application_id", applicationID, "error", err)
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return r.toDomain(&model), nil
}

// FindByEmailOrPhone 实现 domain.ApplicationRepository.FindByEmailOrPhone
func (r *applicationRepositoryImpl) FindByEmailOrPhone(ctx context.Context, email, phone string) (*domain.Application, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).
		Where("email = ? OR phone = ?", email, phone).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "application_repository.find_by_email_or_phone failed", "error", err)
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return r.toDomain(&model), nil
}

// UpdatePaymentResult 实现 domain.ApplicationRepository.UpdatePaymentResult
func (r *applicationRepositoryImpl) UpdatePaymentResult(ctx context.Context, applicationID string, result domain.PaymentResult) error {
	updates := map[string]any{
		"status":         string(result.Status),
		"payment_status": string(result.PaymentStatus),
	}
	if result.PaymentOrderID != "" {
		updates["payment_order_id"] = result.PaymentOrderID
	}

	err := r.db.WithContext(ctx).
		Model(&ApplicationModel{}).
		Where("application_id = ?", applicationID).
		Updates(updates).Error
	if err != nil {
		logger.Error(ctx, "application_repository.update_payment_result failed", "application_id", applicationID, "error", err)
		return fmt.Errorf("failed to update application: %w", err)
	}
	return nil
}

// conflictWithExisting 唯一索引冲突时查出已有记录，冲突响应携带它的真实状态
// 而不是本次提交的初始状态
func (r *applicationRepositoryImpl) conflictWithExisting(ctx context.Context, app *domain.Application) error {
	data := map[string]any{}

	var existing ApplicationModel
	err := r.db.WithContext(ctx).
		Where("email = ? OR phone = ?", app.Email, app.Phone).
		First(&existing).Error
	if err == nil {
		data["status"] = existing.Status
	} else {
		logger.Warn(ctx, "application_repository.conflict lookup failed", "email", app.Email, "error", err)
	}

	return errs.Conflict("application already exists", data)
}

func (r *applicationRepositoryImpl) toModel(app *domain.Application) *ApplicationModel {
	return &ApplicationModel{
		ApplicationID:  app.ApplicationID,
		FullName:       app.FullName,
		Email:          app.Email,
		Phone:          app.Phone,
		DateOfBirth:    app.DateOfBirth,
		Gender:         app.Gender,
		Address:        app.Address,
		City:           app.City,
		State:          app.State,
		Pincode:        app.Pincode,
		Institution:    app.Institution,
		Course:         app.Course,
		Statement:      app.Statement,
		Status:         string(app.Status),
		PaymentStatus:  string(app.PaymentStatus),
		PaymentOrderID: app.PaymentOrderID,
	}
}

func (r *applicationRepositoryImpl) toDomain(m *ApplicationModel) *domain.Application {
	return &domain.Application{
		ApplicationID:  m.ApplicationID,
		FullName:       m.FullName,
		Email:          m.Email,
		Phone:          m.Phone,
		DateOfBirth:    m.DateOfBirth,
		Gender:         m.Gender,
		Address:        m.Address,
		City:           m.City,
		State:          m.State,
		Pincode:        m.Pincode,
		Institution:    m.Institution,
		Course:         m.Course,
		Statement:      m.Statement,
		Status:         domain.ApplicationStatus(m.Status),
		PaymentStatus:  domain.PaymentStatus(m.PaymentStatus),
		PaymentOrderID: m.PaymentOrderID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
