package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConversionPayload is one applied funnel transition on the event stream.
type ConversionPayload struct {
	ExternalMemberID string    `json:"external_member_id"`
	City             string    `json:"city,omitempty"`
	TenantCode       string    `json:"tenant_code"`
	MembershipType   string    `json:"membership_type"`
	Source           string    `json:"source"`
	HadCourseStep    bool      `json:"had_course_step"`
	MemberSince      time.Time `json:"member_since"`
}

// IntakePayload wraps a validated webhook event for the intake worker.
type IntakePayload struct {
	Type string `json:"type"` // contract_created, booking_changed

	ExternalMemberID string `json:"external_member_id"`
	TenantCode       string `json:"tenant_code,omitempty"`
	City             string `json:"city,omitempty"`
	Email            string `json:"email,omitempty"`
	PlanName         string `json:"plan_name,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	State            string `json:"state,omitempty"`
	CreditsLeft      *int   `json:"credits_left,omitempty"`
}

const (
	IntakeContractCreated = "contract_created"
	IntakeBookingChanged  = "booking_changed"
)

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishConversion(ctx context.Context, payload ConversionPayload) error {
	return p.publish(ctx, ConversionKey, payload)
}

func (p *RabbitMQProducer) PublishIntake(ctx context.Context, payload IntakePayload) error {
	return p.publish(ctx, IntakeKey, payload)
}

func (p *RabbitMQProducer) publish(ctx context.Context, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		key,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // survives a broker restart
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to RabbitMQ: %w", err)
	}

	return nil
}

type IntakePublisherInterface interface {
	PublishIntake(ctx context.Context, payload IntakePayload) error
}
