package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"adventure-server/internal/messaging"
	"adventure-server/internal/models"
)

// EventPublisher is a mock type for the messaging.EventPublisher interface.
type EventPublisher struct {
	mock.Mock
}

func (_m *EventPublisher) PublishGameEvent(ctx context.Context, event models.GameEvent) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

var _ messaging.EventPublisher = (*EventPublisher)(nil)
