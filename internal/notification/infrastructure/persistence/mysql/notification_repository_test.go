package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/wyfcoding/scholarpay/internal/notification/domain"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (domain.NotificationRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&NotificationModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewNotificationRepository(db), db
}

func testNotification(id string) *domain.Notification {
	return &domain.Notification{
		NotificationID:  id,
		ApplicationID:   "SCH1",
		MerchantOrderID: "MO_1",
		Type:            domain.NotificationTypeEmail,
		Target:          "asha@example.org",
		Subject:         "Payment received",
		Content:         "<p>confirmation</p>",
		Status:          domain.NotificationStatusPending,
	}
}

func TestCreateAndMarkSent(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testNotification("NTF1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	sentAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	if err := repo.MarkSent(ctx, "NTF1", sentAt); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	var model NotificationModel
	if err := db.Where("notification_id = ?", "NTF1").First(&model).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if model.Status != string(domain.NotificationStatusSent) {
		t.Errorf("status = %q", model.Status)
	}
	if model.SentAt == nil {
		t.Error("sent_at not set")
	}
}

func TestMarkFailed(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testNotification("NTF1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.MarkFailed(ctx, "NTF1", "smtp unreachable"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	var model NotificationModel
	if err := db.Where("notification_id = ?", "NTF1").First(&model).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if model.Status != string(domain.NotificationStatusFailed) {
		t.Errorf("status = %q", model.Status)
	}
	if model.ErrorMessage != "smtp unreachable" {
		t.Errorf("error message = %q", model.ErrorMessage)
	}
}
