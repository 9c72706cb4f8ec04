package services

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []*messaging.Message
	err  error
}

func (s *recordingSender) Send(ctx context.Context, m *messaging.Message) (string, error) {
	s.sent = append(s.sent, m)
	return "projects/carbid/messages/1", s.err
}

func TestPushChannelDeliver(t *testing.T) {
	users := fixtureCatalog()
	users.users["seller-1"].FCMToken = "device-token"
	sender := &recordingSender{}
	ch := NewPushChannel(sender, users)

	n := Notice{
		Event:       models.EventBidCreated,
		AggregateID: "bid-1",
		Status:      "pending",
		UserID:      "seller-1",
		Subject:     "New bid on Toyota Prado",
		SMS:         "CarBid: new bid of 1200.00/day on Toyota Prado from Wanjiru.",
	}
	require.NoError(t, ch.Deliver(context.Background(), n))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "device-token", msg.Token)
	assert.Equal(t, "New bid on Toyota Prado", msg.Notification.Title)
	assert.Equal(t, n.SMS, msg.Notification.Body)
	assert.Equal(t, "bid-1", msg.Data["id"])

	sender.err = errors.New("registration-token-not-registered")
	assert.Error(t, ch.Deliver(context.Background(), n))
}

func TestPushChannelSkips(t *testing.T) {
	sender := &recordingSender{}
	ch := NewPushChannel(sender, fixtureCatalog())

	// renter-1 has no device registered.
	err := ch.Deliver(context.Background(), Notice{UserID: "renter-1", Lines: []string{"hello"}})
	assert.ErrorIs(t, err, ErrChannelSkipped)

	err = ch.Deliver(context.Background(), Notice{UserID: "ghost"})
	assert.ErrorIs(t, err, ErrChannelSkipped)

	err = NewPushChannel(nil, fixtureCatalog()).Deliver(context.Background(), Notice{UserID: "seller-1"})
	assert.ErrorIs(t, err, ErrChannelSkipped)
	assert.Empty(t, sender.sent)
}
