package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"unibook-api/internal/application/generation"
	"unibook-api/pkg/logger"
	"unibook-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

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

	// 透传请求链路标识，便于消费端日志关联
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" && msg.GetMetadata("request_id") == "" {
		msg.SetMetadata("request_id", reqID)
	}
	if sc := span.SpanContext(); sc.HasTraceID() && msg.GetMetadata("trace_id") == "" {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}

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
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RedisStreamPublished.WithLabelValues(string(stream), "success").Inc()
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishAgentEvent 发布 Agent 事件（供外部编排方或测试使用）
func (p *Producer) PublishAgentEvent(ctx context.Context, msgType, bookID string, payload interface{}) (string, error) {
	msg, err := NewMessage("", msgType, bookID, payload)
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, StreamGenerationAgent, msg)
}

// StepPublisher 将生成步骤事件写入 Redis Stream
type StepPublisher struct {
	producer *Producer
	enabled  bool
}

var _ generation.EventPublisher = (*StepPublisher)(nil)

// NewStepPublisher 创建步骤事件发布器；enabled 为 false 时静默丢弃
func NewStepPublisher(producer *Producer, enabled bool) *StepPublisher {
	return &StepPublisher{producer: producer, enabled: enabled}
}

// PublishStep 发布步骤事件
func (p *StepPublisher) PublishStep(ctx context.Context, event generation.StepEvent) error {
	if !p.enabled || p.producer == nil {
		return nil
	}

	msg, err := NewMessage("", TypeGenerationStep, event.BookID, event)
	if err != nil {
		return err
	}
	msg.SetMetadata("operation", event.Operation)
	msg.SetMetadata("step", string(event.Status.Step))

	_, err = p.producer.Publish(ctx, StreamGenerationStep, msg)
	return err
}
