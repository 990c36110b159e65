package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventServiceIdUsesPointerReceiver(t *testing.T) {
	svc := &EventService{}
	assert.Equal(t, EVENT_SVC, svc.Id())
}

func TestPublishWithoutBrokerIsNoop(t *testing.T) {
	svc := &EventService{}

	// No channel means disabled; must not panic or block.
	svc.Publish(QueueSeatClaimed, map[string]string{"slot": "seat_1"})
	svc.Publish(QueueSessionEnded, nil)
}
