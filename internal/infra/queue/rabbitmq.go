package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.funnel"

	// Conversion event stream: every applied conversion goes out here.
	ConversionQueueName = "q.conversions"
	ConversionKey       = "k.conversion"

	// Intake events from the webhook boundary, consumed by the worker.
	IntakeQueueName = "q.intake"
	IntakeKey       = "k.intake"
	IntakeDLQName   = "q.intake.dlq"
	DLXName         = "ex.dlx"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(user, pass, host, port string) (*RabbitMQ, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func setupTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil)
	if err != nil {
		return err
	}

	if _, err = ch.QueueDeclare(IntakeDLQName, true, false, false, false, nil); err != nil {
		return err
	}

	if err = ch.QueueBind(IntakeDLQName, IntakeKey, DLXName, false, nil); err != nil {
		return err
	}

	if err = ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	// Intake queue dead-letters into the DLX on Nack.
	intakeArgs := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": IntakeKey,
	}
	if _, err = ch.QueueDeclare(IntakeQueueName, true, false, false, false, intakeArgs); err != nil {
		return err
	}
	if err = ch.QueueBind(IntakeQueueName, IntakeKey, ExchangeName, false, nil); err != nil {
		return err
	}

	if _, err = ch.QueueDeclare(ConversionQueueName, true, false, false, false, nil); err != nil {
		return err
	}
	if err = ch.QueueBind(ConversionQueueName, ConversionKey, ExchangeName, false, nil); err != nil {
		return err
	}

	return nil
}
