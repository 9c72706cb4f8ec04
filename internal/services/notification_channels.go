package services

import (
	"context"
	"strings"
	"time"

	"github.com/chachabrian/carbid-backend/pkg/utils"
)

type EmailChannel struct {
	mailer *utils.Mailer
}

func NewEmailChannel(m *utils.Mailer) *EmailChannel {
	return &EmailChannel{mailer: m}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, n Notice) error {
	if !c.mailer.Configured() || n.Email == "" {
		return ErrChannelSkipped
	}
	return c.mailer.Send([]string{n.Email}, n.Subject+" - CarBid", c.mailer.RenderEmail(n.Subject, n.Lines))
}

type SMSChannel struct {
	client *utils.SMSClient
}

func NewSMSChannel(client *utils.SMSClient) *SMSChannel {
	return &SMSChannel{client: client}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Deliver(ctx context.Context, n Notice) error {
	if !c.client.Configured() || n.Phone == "" || n.SMS == "" {
		return ErrChannelSkipped
	}
	return c.client.Send(ctx, n.SMS, []string{n.Phone})
}

// HubChannel pushes notices to the user's open websocket connections.
type HubChannel struct {
	hub *Hub
}

func NewHubChannel(hub *Hub) *HubChannel {
	return &HubChannel{hub: hub}
}

func (c *HubChannel) Name() string { return "websocket" }

func (c *HubChannel) Deliver(ctx context.Context, n Notice) error {
	delivered, err := c.hub.SendToUser(n.UserID, WebSocketMessage{Type: n.Event, Data: n.Data})
	if err != nil {
		return err
	}
	if delivered == 0 {
		return ErrChannelSkipped
	}
	return nil
}

// PubSubChannel republishes notices on Redis for other services.
type PubSubChannel struct {
	cache *RedisCache
}

func NewPubSubChannel(cache *RedisCache) *PubSubChannel {
	return &PubSubChannel{cache: cache}
}

func (c *PubSubChannel) Name() string { return "redis" }

func (c *PubSubChannel) Deliver(ctx context.Context, n Notice) error {
	channel := BidUpdatesChannel
	if strings.HasPrefix(n.Event, "booking.") {
		channel = BookingUpdatesChannel
	}
	return c.cache.Publish(ctx, channel, StatusUpdate{
		Event:     n.Event,
		ID:        n.AggregateID,
		Status:    n.Status,
		UserID:    n.UserID,
		Data:      n.Data,
		Timestamp: time.Now().Unix(),
	})
}
