package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/funnelsync/internal/entity"
)

// Worker drains the intake queue and turns validated platform events into
// prospect writes. Keeping this off the webhook request path means a slow
// database never makes the platform retry its webhooks.
type Worker struct {
	Channel *amqp.Channel
	Trials  entity.TrialRepositoryInterface
	Guests  entity.GuestRepositoryInterface
}

func NewWorker(ch *amqp.Channel, trials entity.TrialRepositoryInterface, guests entity.GuestRepositoryInterface) *Worker {
	return &Worker{
		Channel: ch,
		Trials:  trials,
		Guests:  guests,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack (manual is safer)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		log.Fatalf("❌ Failed to register RabbitMQ consumer: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload IntakePayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] invalid JSON: %s", err)
				// Poison message. Reject without requeue so the queue keeps moving.
				d.Nack(false, false)
				continue
			}

			if err := w.processMessage(context.Background(), payload); err != nil {
				log.Printf("❌ [WORKER] intake %s for member %s failed: %s", payload.Type, payload.ExternalMemberID, err)
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Intake worker waiting on queue '%s'", queueName)
	<-forever
}

func (w *Worker) processMessage(ctx context.Context, payload IntakePayload) error {
	switch payload.Type {
	case IntakeContractCreated:
		return w.handleContract(ctx, payload)
	case IntakeBookingChanged:
		return w.handleBooking(ctx, payload)
	default:
		return fmt.Errorf("unknown intake type %q", payload.Type)
	}
}

// handleContract attaches the platform member id to the trial that booked
// with the same email, so the next sync run can check it. Events without a
// matching trial belong to direct signups and are acknowledged as-is.
func (w *Worker) handleContract(ctx context.Context, payload IntakePayload) error {
	if payload.Email == "" {
		log.Printf("📥 [WORKER] contract for member %s carries no email, nothing to attach", payload.ExternalMemberID)
		return nil
	}

	trial, err := w.Trials.FindByEmail(ctx, payload.Email)
	if err != nil {
		return fmt.Errorf("lookup trial by email: %w", err)
	}
	if trial == nil {
		log.Printf("📥 [WORKER] contract for %s matches no trial, treating as direct signup", payload.Email)
		return nil
	}
	if trial.ExternalMemberID == payload.ExternalMemberID {
		return nil // replayed webhook
	}

	if err := w.Trials.SetExternalMemberID(ctx, trial.ID, payload.ExternalMemberID); err != nil {
		return fmt.Errorf("attach member id to trial %s: %w", trial.ID, err)
	}

	log.Printf("✅ [WORKER] trial %s linked to platform member %s", trial.ID, payload.ExternalMemberID)
	return nil
}

// handleBooking keeps guest credits and city current.
func (w *Worker) handleBooking(ctx context.Context, payload IntakePayload) error {
	guest, err := w.Guests.FindByExternalMemberID(ctx, payload.TenantCode, payload.ExternalMemberID)
	if err != nil {
		return fmt.Errorf("lookup guest: %w", err)
	}
	if guest == nil {
		// Bookings of members and trials also arrive here; only guests
		// carry credits to track.
		return nil
	}
	if guest.IsConverted() {
		return nil
	}

	if payload.City != "" && guest.City == "" {
		guest.City = payload.City
		guest.UpdatedAt = time.Now()
		if err := w.Guests.Upsert(ctx, guest); err != nil {
			return fmt.Errorf("set guest city: %w", err)
		}
	}

	if payload.CreditsLeft != nil {
		if err := w.Guests.UpdateCredits(ctx, payload.TenantCode, payload.ExternalMemberID, *payload.CreditsLeft); err != nil {
			return fmt.Errorf("update guest credits: %w", err)
		}
	}

	return nil
}
