package main

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/config"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
)

// 邮件正文直接内嵌在二进制里，部署时不需要携带模板文件
// 消息体是 JSON 反序列化出来的 map，模板里引用的字段名是 JSON 字段名
var mailTemplates = map[string]*template.Template{
	"create_user": template.Must(template.New("create_user").Parse(`
		<p>{{ .fullName }}，您好：</p>
		<p>您的任务排程系统账户已创建，初始登录信息如下：</p>
		<p>用户名：{{ .username }}<br>初始密码：{{ .password }}</p>
		<p>请登录后尽快修改密码。</p>
	`)),
	"reset_password": template.Must(template.New("reset_password").Parse(`
		<p>{{ .fullName }}，您好：</p>
		<p>您正在重置密码，验证码为：<strong>{{ .otp }}</strong></p>
		<p>验证码将在 {{ .expiration }} 分钟后失效，如非本人操作请忽略本邮件。</p>
	`)),
	"change_email": template.Must(template.New("change_email").Parse(`
		<p>{{ .fullName }}，您好：</p>
		<p>您正在修改邮箱，验证码为：<strong>{{ .otp }}</strong></p>
		<p>验证码将在 {{ .expiration }} 分钟后失效，如非本人操作请忽略本邮件。</p>
	`)),
	"run_finished": template.Must(template.New("run_finished").Parse(`
		<p>{{ .fullName }}，您好：</p>
		<p>您创建的优化运行「{{ .runName }}」已{{ .status }}。</p>
		<p>最优适应度：{{ .bestFitness }}<br>终止原因：{{ .termination }}</p>
		<p>详细结果请登录系统查看。</p>
	`)),
}

var mailSubjects = map[string]string{
	"create_user":    "任务排程系统 - 账户信息",
	"reset_password": "任务排程系统 - 重置密码",
	"change_email":   "任务排程系统 - 修改邮箱",
	"run_finished":   "任务排程系统 - 优化运行结果",
}

type mailWorker struct {
	cfg    *config.Config
	logger *slog.Logger
	client *mail.Client
}

func (w *mailWorker) consume(ctx context.Context, ch *amqp.Channel) error {
	msgs, err := ch.Consume(
		"email_queue",
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			mailMessage := domain.MailMessage{}
			if err := json.Unmarshal(msg.Body, &mailMessage); err != nil {
				w.logger.Error("邮件信息反序列化失败", "error", err)
				_ = msg.Nack(false, false)
				continue
			}

			if err := w.send(mailMessage); err != nil {
				w.logger.Error("邮件发送失败", "type", mailMessage.Type, "error", err)
				_ = msg.Nack(false, true) // 将消息重新入队
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

func (w *mailWorker) send(mailMessage domain.MailMessage) error {
	tmpl, ok := mailTemplates[mailMessage.Type]
	if !ok {
		// 不认识的类型重试也没有意义，直接丢弃
		w.logger.Error("不支持的邮件类型", "type", mailMessage.Type)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(w.cfg.Email.SMTP.Username); err != nil {
		return err
	}
	if err := msg.To(mailMessage.To); err != nil {
		return err
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, mailMessage.Data); err != nil {
		return err
	}
	msg.Subject(mailSubjects[mailMessage.Type])

	return w.client.DialAndSend(msg)
}
