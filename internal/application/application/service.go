// Package application 实现报名用例：提交校验、查重与查询
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/scholarpay/internal/application/domain"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"github.com/wyfcoding/scholarpay/pkg/metrics"
	"github.com/wyfcoding/scholarpay/pkg/utils"
)

// applicationIDPrefix 报名 ID 前缀
const applicationIDPrefix = "SCH"

// cacheTTL 报名读缓存的有效期
const cacheTTL = 60 * time.Second

// Cache 报名读缓存，由 Redis 实现
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SubmitApplicationCommand 提交报名命令
type SubmitApplicationCommand struct {
	FullName    string
	Email       string
	Phone       string
	DateOfBirth string
	Gender      string
	Address     string
	City        string
	State       string
	Pincode     string
	Institution string
	Course      string
	Statement   string
}

// SubmitResult 提交报名结果
type SubmitResult struct {
	ApplicationID string
	CreatedAt     time.Time
}

// ApplicationService 报名应用服务
type ApplicationService struct {
	repo    domain.ApplicationRepository
	cache   Cache
	metrics *metrics.Metrics
}

// NewApplicationService 构造函数
func NewApplicationService(repo domain.ApplicationRepository, cache Cache, m *metrics.Metrics) *ApplicationService {
	return &ApplicationService{
		repo:    repo,
		cache:   cache,
		metrics: m,
	}
}

// Submit 提交报名。
// 先做全量校验（一次性返回所有违规项），再按邮箱或手机号查重，
// 查重通过后生成报名 ID 并落库。
func (s *ApplicationService) Submit(ctx context.Context, cmd SubmitApplicationCommand) (*SubmitResult, error) {
	cmd = trimCommand(cmd)

	if violations := validateSubmission(cmd); len(violations) > 0 {
		return nil, errs.Validation(violations...)
	}

	// 同邮箱或同手机号的报名已存在时拒绝重复创建，
	// 调用方应使用其本地记住的报名 ID 直接进入支付
	existing, err := s.repo.FindByEmailOrPhone(ctx, cmd.Email, cmd.Phone)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if existing != nil {
		s.metrics.ApplicationsDuplicate.Inc()
		return nil, errs.Conflict("application already exists", map[string]any{
			"status": string(existing.Status),
		})
	}

	app := &domain.Application{
		ApplicationID: utils.NewID(applicationIDPrefix),
		FullName:      cmd.FullName,
		Email:         cmd.Email,
		Phone:         cmd.Phone,
		DateOfBirth:   cmd.DateOfBirth,
		Gender:        cmd.Gender,
		Address:       cmd.Address,
		City:          cmd.City,
		State:         cmd.State,
		Pincode:       cmd.Pincode,
		Institution:   cmd.Institution,
		Course:        cmd.Course,
		Statement:     cmd.Statement,
		Status:        domain.ApplicationStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
	}

	if err := s.repo.Create(ctx, app); err != nil {
		// 并发提交时唯一索引兜底，冲突原样返回
		if errs.KindOf(err) == errs.KindConflict {
			s.metrics.ApplicationsDuplicate.Inc()
			return nil, err
		}
		return nil, errs.Internal(err)
	}

	s.metrics.ApplicationsSubmitted.Inc()
	logger.Info(ctx, "application submitted",
		"application_id", app.ApplicationID,
		"email", app.Email,
	)

	return &SubmitResult{
		ApplicationID: app.ApplicationID,
		CreatedAt:     app.CreatedAt,
	}, nil
}

// Get 查询报名，带 Redis 读缓存
func (s *ApplicationService) Get(ctx context.Context, applicationID string) (*domain.Application, error) {
	key := cacheKey(applicationID)

	var cached domain.Application
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		// 缓存故障不阻断读路径
		logger.Warn(ctx, "application cache read failed", "application_id", applicationID, "error", err)
	} else if hit {
		return &cached, nil
	}

	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if app == nil {
		return nil, errs.NotFound("application not found")
	}

	if err := s.cache.SetJSON(ctx, key, app, cacheTTL); err != nil {
		logger.Warn(ctx, "application cache write failed", "application_id", applicationID, "error", err)
	}

	return app, nil
}

// ApplyPaymentResult 写回支付结果并失效读缓存，由支付对账流程调用
func (s *ApplicationService) ApplyPaymentResult(ctx context.Context, applicationID string, result domain.PaymentResult) error {
	if err := s.repo.UpdatePaymentResult(ctx, applicationID, result); err != nil {
		return fmt.Errorf("failed to apply payment result: %w", err)
	}
	if err := s.cache.Delete(ctx, cacheKey(applicationID)); err != nil {
		logger.Warn(ctx, "application cache invalidation failed", "application_id", applicationID, "error", err)
	}
	return nil
}

func cacheKey(applicationID string) string {
	return "scholarpay:application:" + applicationID
}
