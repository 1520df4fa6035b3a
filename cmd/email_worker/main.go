package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/config"
	"github.com/oksasatya/student-store/pkg/helpers"
	"github.com/oksasatya/student-store/pkg/mailer"
	mailtpl "github.com/oksasatya/student-store/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if _, err := helpers.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	w := &worker{Sender: mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), Logger: logger}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			switch w.handle(ctx, msg.Body) {
			case outcomeAck:
				_ = msg.Ack(false)
			case outcomeRetry:
				_ = msg.Nack(false, true)
			default:
				_ = msg.Nack(false, false)
			}
		}
	}()

	logger.Infof("email worker listening on queue=%s", cfg.RabbitMQEmailQueue)
	<-ctx.Done()
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDrop
)

type worker struct {
	Sender mailer.Sender
	Logger *logrus.Logger
}

// handle renders and sends one queued job. Bad payloads and unknown
// templates are dropped; delivery failures are requeued.
func (w *worker) handle(ctx context.Context, body []byte) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad message")
		return outcomeDrop
	}
	if job.To == "" {
		w.Logger.Warn("message without recipient")
		return outcomeDrop
	}
	job.EnsureRecipient()

	subject, text, html, err := render(job)
	if err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Warn("render failed")
		return outcomeDrop
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Logger.WithError(err).WithField("to", job.To).Error("send failed")
		return outcomeRetry
	}
	w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	return outcomeAck
}

func render(job mailer.EmailJob) (string, string, string, error) {
	if job.Template == "" {
		if job.Subject == "" {
			return "", "", "", fmt.Errorf("job has neither template nor subject")
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	return mailtpl.Render(job.Template, job.Data)
}
