package mail

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/irodav/gatehouse/internal/queue"
)

// AMQPSender publishes outbound emails to the durable queue consumed by the
// delivery worker. It dials per send, which keeps the implementation free of
// shared connection state; auth flows send at most one email per request.
type AMQPSender struct {
	URL string
}

func NewAMQPSender(url string) *AMQPSender { return &AMQPSender{URL: url} }

// Send publishes the message to the email queue. Messages are persistent so
// a pending reset email survives a broker restart. Any failure is logged and
// returned; the caller decides how to compensate.
func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	conn, err := amqp.Dial(s.URL)
	if err != nil {
		log.Printf("mail: dial broker failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("mail: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare so publisher and consumer can start in any order.
	if _, err := ch.QueueDeclare(
		q.EmailQueueName, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		log.Printf("mail: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(q.EmailRequested{
		To:       msg.To,
		Subject:  msg.Subject,
		Body:     msg.Body,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("mail: marshal message failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",               // default exchange
		q.EmailQueueName, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		pub,
	); err != nil {
		log.Printf("mail: publish failed: %v", err)
		return err
	}
	return nil
}
