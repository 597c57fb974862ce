package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

// Declare 声明持久化的任务队列，api 和 worker 启动时都会调用
func Declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // 队列名称
		true,  // 持久化，RabbitMQ 重启后任务不会丢失
		false, // 没有消费者时不自动删除
		false, // 允许多个 worker 同时消费
		false, // 等待 RabbitMQ 确认
		nil,
	)
	return err
}

type Publisher struct {
	ch      *amqp.Channel
	queue   string
	timeout time.Duration
}

func NewPublisher(ch *amqp.Channel, queue string, timeout time.Duration) *Publisher {
	return &Publisher{
		ch:      ch,
		queue:   queue,
		timeout: timeout,
	}
}

func (p *Publisher) PublishJob(ctx context.Context, job *domain.OptimizationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.RunID.String(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume 开始消费任务队列，prefetch 限制 worker 同时持有的未确认消息数
func Consume(ch *amqp.Channel, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}

	return ch.Consume(
		queue,
		"",    // 由 RabbitMQ 分配消费者标识
		false, // 手动确认
		false,
		false,
		false,
		nil,
	)
}

var ErrMalformedJob = errors.New("任务消息格式错误")

// DecodeJob 解析任务消息，缺少 runID 或场景的消息返回 ErrMalformedJob
func DecodeJob(body []byte) (*domain.OptimizationJob, error) {
	job := &domain.OptimizationJob{}
	if err := json.Unmarshal(body, job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if job.RunID == uuid.Nil {
		return nil, fmt.Errorf("%w: 缺少 runID", ErrMalformedJob)
	}
	if job.Scenario == nil {
		return nil, fmt.Errorf("%w: 缺少 scenario", ErrMalformedJob)
	}
	return job, nil
}
