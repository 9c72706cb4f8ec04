package services

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"google.golang.org/api/option"
)

// InitFirebase returns an FCM client authenticated with the service account
// at serviceAccountPath.
func InitFirebase(ctx context.Context, serviceAccountPath string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return client, nil
}

// PushSender is the part of the FCM client the push channel needs.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// PushChannel sends notices to the device token registered on the user's
// account.
type PushChannel struct {
	sender PushSender
	users  UserDirectory
}

func NewPushChannel(sender PushSender, users UserDirectory) *PushChannel {
	return &PushChannel{sender: sender, users: users}
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, n Notice) error {
	if c.sender == nil || n.UserID == "" {
		return ErrChannelSkipped
	}
	user, err := c.users.GetUser(ctx, n.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return ErrChannelSkipped
	}
	if err != nil {
		return err
	}
	if user.FCMToken == "" {
		return ErrChannelSkipped
	}

	if _, err := c.sender.Send(ctx, pushMessage(user.FCMToken, n)); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

func pushMessage(token string, n Notice) *messaging.Message {
	body := n.SMS
	if body == "" && len(n.Lines) > 0 {
		body = n.Lines[0]
	}
	badge := 1
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Subject,
			Body:  body,
		},
		// FCM data values must be strings.
		Data: map[string]string{
			"event":  n.Event,
			"id":     n.AggregateID,
			"status": n.Status,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:             "carbid_default",
				Sound:                 "default",
				DefaultSound:          true,
				Icon:                  "ic_stat_logo",
				Tag:                   n.AggregateID,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:          "default",
					Badge:          &badge,
					MutableContent: true,
				},
			},
		},
	}
}
