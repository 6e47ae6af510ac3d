package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wyfcoding/scholarpay/internal/notification/domain"
	paydomain "github.com/wyfcoding/scholarpay/internal/payment/domain"
	"github.com/wyfcoding/scholarpay/pkg/metrics"
)

type fakeRepo struct {
	created   []*domain.Notification
	sent      []string
	failed    map[string]string
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{failed: make(map[string]string)}
}

func (f *fakeRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeRepo) MarkSent(ctx context.Context, notificationID string, sentAt time.Time) error {
	f.sent = append(f.sent, notificationID)
	return nil
}

func (f *fakeRepo) MarkFailed(ctx context.Context, notificationID string, errorMessage string) error {
	f.failed[notificationID] = errorMessage
	return nil
}

type fakeSender struct {
	to      string
	subject string
	body    string
	calls   int
	err     error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.to, f.subject, f.body = to, subject, body
	return nil
}

type fakePublisher struct {
	events []domain.PaymentCompletedEvent
	err    error
}

func (f *fakePublisher) PublishPaymentCompleted(ctx context.Context, event domain.PaymentCompletedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func testNotice() paydomain.PaymentCompletedNotice {
	return paydomain.PaymentCompletedNotice{
		ApplicationID:   "SCH1",
		MerchantOrderID: "MO_1",
		GatewayOrderID:  "OMO1",
		ApplicantName:   "Asha Kumari",
		ApplicantEmail:  "asha@example.org",
		Amount:          50000,
		Currency:        "INR",
		CompletedAt:     time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func newService(repo *fakeRepo, sender *fakeSender, publisher *fakePublisher) *NotificationService {
	return NewNotificationService(repo, sender, publisher, metrics.New("notification_test"))
}

func TestPaymentCompletedSendsEmail(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	publisher := &fakePublisher{}
	svc := newService(repo, sender, publisher)

	if err := svc.PaymentCompleted(context.Background(), testNotice()); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if sender.to != "asha@example.org" {
		t.Errorf("email target = %q", sender.to)
	}
	// 金额以主货币单位展示
	if !strings.Contains(sender.body, "INR 500.00") {
		t.Errorf("body should contain formatted amount: %q", sender.body)
	}
	if !strings.Contains(sender.body, "SCH1") || !strings.Contains(sender.body, "MO_1") {
		t.Errorf("body should reference application and order: %q", sender.body)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one notification record, got %d", len(repo.created))
	}
	record := repo.created[0]
	if record.Type != domain.NotificationTypeEmail || record.Target != "asha@example.org" {
		t.Errorf("unexpected record: %+v", record)
	}
	if len(repo.sent) != 1 || repo.sent[0] != record.NotificationID {
		t.Errorf("record not marked sent: %v", repo.sent)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventType != "payment.completed" || event.MerchantOrderID != "MO_1" || event.Amount != 50000 {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestPaymentCompletedSendFailure(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{err: errors.New("smtp unreachable")}
	publisher := &fakePublisher{}
	svc := newService(repo, sender, publisher)

	err := svc.PaymentCompleted(context.Background(), testNotice())
	if err == nil {
		t.Fatal("expected send failure")
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one notification record, got %d", len(repo.created))
	}
	record := repo.created[0]
	if msg, ok := repo.failed[record.NotificationID]; !ok || !strings.Contains(msg, "smtp unreachable") {
		t.Errorf("record not marked failed: %v", repo.failed)
	}
	if len(publisher.events) != 0 {
		t.Error("failed send must not publish an event")
	}
}

func TestPaymentCompletedPublishFailureSwallowed(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := newService(repo, sender, publisher)

	if err := svc.PaymentCompleted(context.Background(), testNotice()); err != nil {
		t.Fatalf("publish failure must not fail the notification: %v", err)
	}
	if len(repo.sent) != 1 {
		t.Errorf("record should still be marked sent: %v", repo.sent)
	}
}

func TestPaymentCompletedPersistFailureStillSends(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	sender := &fakeSender{}
	publisher := &fakePublisher{}
	svc := newService(repo, sender, publisher)

	if err := svc.PaymentCompleted(context.Background(), testNotice()); err != nil {
		t.Fatalf("persist failure must not block the email: %v", err)
	}
	if sender.calls != 1 {
		t.Errorf("email should still be sent, calls = %d", sender.calls)
	}
	if len(repo.sent) != 0 {
		t.Errorf("no record to mark sent: %v", repo.sent)
	}
}
