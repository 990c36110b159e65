package services

import (
	stdContext "context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const EVENT_SVC = "event_svc"

const (
	QueueSeatClaimed    = "world.seat.claimed"
	QueueSeatReleased   = "world.seat.released"
	QueueQuestCompleted = "world.quest.completed"
	QueueSessionEnded   = "world.session.ended"
)

// EventService publishes world events to RabbitMQ for downstream consumers
// (analytics, moderation). Publishing is fire and forget: a broker outage
// never fails the request that produced the event. When AMQP_URL is unset the
// service stays disabled and every publish is a no-op.
type EventService struct {
	context.DefaultService

	url  string
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func (svc *EventService) Id() string {
	return EVENT_SVC
}

func (svc *EventService) Configure(ctx *context.Context) error {
	svc.url = os.Getenv("AMQP_URL")
	return svc.DefaultService.Configure(ctx)
}

func (svc *EventService) Start() error {
	if svc.url == "" {
		log.Info("AMQP_URL not set, event publishing disabled")
		return nil
	}

	conn, err := amqp.Dial(svc.url)
	if err != nil {
		return err
	}
	svc.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	svc.ch = ch

	for _, queue := range []string{QueueSeatClaimed, QueueSeatReleased, QueueQuestCompleted, QueueSessionEnded} {
		_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
		if err != nil {
			return err
		}
	}

	log.Info("Event publisher connected")
	return nil
}

func (svc *EventService) Shutdown() {
	if svc.ch != nil {
		_ = svc.ch.Close()
	}
	if svc.conn != nil {
		_ = svc.conn.Close()
	}
}

// Publish serializes the payload and drops it on the named queue. Errors are
// logged, never returned to the caller.
func (svc *EventService) Publish(queue string, payload interface{}) {
	if svc.ch == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("queue", queue).Error("Failed to marshal event")
		return
	}

	ctx, cancel := stdContext.WithTimeout(stdContext.Background(), 5*time.Second)
	defer cancel()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	err = svc.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		log.WithError(err).WithField("queue", queue).Error("Failed to publish event")
	}
}
