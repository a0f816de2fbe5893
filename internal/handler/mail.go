package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publishMail 将邮件投递到消息队列，由 worker 进程负责实际发送
func (h *Handler) publishMail(msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.amqpChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
