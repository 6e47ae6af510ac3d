// Package messaging 提供基于 Kafka 的事件发布实现
package messaging

import (
	"context"

	"github.com/wyfcoding/scholarpay/internal/notification/domain"
	"github.com/wyfcoding/scholarpay/pkg/mq"
)

// KafkaEventPublisher 将支付事件发布到 Kafka，实现 domain.EventPublisher
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishPaymentCompleted 发布支付完成事件，以商户订单号为分区键
func (p *KafkaEventPublisher) PublishPaymentCompleted(ctx context.Context, event domain.PaymentCompletedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.MerchantOrderID, event)
}
