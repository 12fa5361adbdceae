package realtime

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/google/uuid"
	pubnub "github.com/pubnub/go/v7"
)

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
}

// NewPubNub builds a client. An empty UserID gets a random one so that
// several instances never share a presence identity.
func NewPubNub(cfg PubNubConfig) *pubnub.PubNub {
	userID := cfg.UserID
	if userID == "" {
		userID = "shop-finder-" + uuid.NewString()
	}

	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey

	return pubnub.NewPubNub(pnConfig)
}

type PubNubPublisher struct {
	pubnub *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pubnub: pn}
}

func (p *PubNubPublisher) Publish(ctx context.Context, update Update) error {
	for _, channel := range update.Channels() {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, _, err := p.pubnub.PublishWithContext(ctx).
			Channel(channel).
			Message(update).
			Execute()
		if err != nil {
			return fmt.Errorf("publish %s to %s: %w", update.Type, channel, err)
		}
	}
	return nil
}

type PubNubSubscriber struct {
	pubnub   *pubnub.PubNub
	channels []string
}

func NewPubNubSubscriber(pn *pubnub.PubNub, channels ...string) *PubNubSubscriber {
	if len(channels) == 0 {
		channels = []string{ShopsChannel}
	}
	return &PubNubSubscriber{pubnub: pn, channels: channels}
}

func (s *PubNubSubscriber) Subscribe(ctx context.Context, handle func(Update)) error {
	listener := pubnub.NewListener()
	s.pubnub.AddListener(listener)
	s.pubnub.Subscribe().
		Channels(s.channels).
		Execute()

	defer func() {
		s.pubnub.Unsubscribe().
			Channels(s.channels).
			Execute()
		s.pubnub.RemoveListener(listener)
	}()

	return consume(ctx, listener, handle)
}

func consume(ctx context.Context, listener *pubnub.Listener, handle func(Update)) error {
	for {
		select {
		case status := <-listener.Status:
			switch status.Category {
			case pubnub.PNConnectedCategory:
				log.Println("connected to pubnub")
			case pubnub.PNReconnectedCategory:
				log.Println("reconnected to pubnub")
			case pubnub.PNDisconnectedCategory:
				log.Println("disconnected from pubnub")
			case pubnub.PNAccessDeniedCategory:
				slog.Error("pubnub access denied", "channels", status.AffectedChannels)
			}

		case message := <-listener.Message:
			update, err := DecodeUpdate(message.Message)
			if err != nil {
				slog.Warn("dropping realtime message", "channel", message.Channel, "error", err)
				continue
			}
			handle(update)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
