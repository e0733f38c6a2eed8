// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// MessageTypePublishJob 发布任务消息类型
const MessageTypePublishJob = "site_publish"

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishJob 投递站点发布任务
func (p *Producer) PublishJob(ctx context.Context, job *PublishJobMessage) (string, error) {
	msg, err := NewMessage(job.JobID, MessageTypePublishJob, job.SiteID, job)
	if err != nil {
		return "", err
	}

	if job.RequestedBy != "" {
		msg.SetMetadata("requested_by", job.RequestedBy)
	}
	if job.Reason != "" {
		msg.SetMetadata("reason", job.Reason)
	}

	return p.Publish(ctx, StreamPublishJobs, msg)
}

// PublishJobMessage 站点发布任务消息
type PublishJobMessage struct {
	JobID       string `json:"job_id"`
	SiteID      int    `json:"site_id"`
	RequestedBy string `json:"requested_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
