// Package wire is the NATS edge of the assistant: it decodes inbound
// WhatsApp events published by the transport bridge and publishes outbound
// send commands back to it.
package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects shared with the transport bridge.
const (
	SubjectMessageReceived = "wa.message.received"
	SubjectSendText        = "wa.send.text"
	SubjectSendImage       = "wa.send.image"
)

// InboundEvent is one message event from the transport bridge. AltID carries
// the secondary @lid identifier some conversations publish under; the intake
// maps it back to the canonical ID. Timestamp is epoch seconds.
type InboundEvent struct {
	ConversationID string `json:"conversation_id"`
	AltID          string `json:"alt_id,omitempty"`
	MessageID      string `json:"message_id"`
	Timestamp      int64  `json:"timestamp"`
	FromSelf       bool   `json:"from_self"`
	IsGroup        bool   `json:"is_group"`
	Text           string `json:"text"`
	HasMedia       bool   `json:"has_media"`
}

// Time returns the event timestamp, or the zero time when unset.
func (e InboundEvent) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(e.Timestamp, 0)
}

// TextCommand asks the bridge to send a plain text message.
type TextCommand struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// ImageCommand asks the bridge to send an image with a caption.
type ImageCommand struct {
	ConversationID string `json:"conversation_id"`
	Caption        string `json:"caption"`
	Image          string `json:"image"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// SubscribeInbound registers the handler for transport message events.
// Malformed payloads are logged and dropped.
func (c *Client) SubscribeInbound(handler func(event InboundEvent)) error {
	sub, err := c.conn.Subscribe(SubjectMessageReceived, func(msg *nats.Msg) {
		var event InboundEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Warn("dropping malformed inbound event", "error", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectMessageReceived, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", SubjectMessageReceived)
	return nil
}

// SendText publishes a text send command.
func (c *Client) SendText(_ context.Context, conversationID, text string) error {
	return c.publish(SubjectSendText, TextCommand{ConversationID: conversationID, Text: text})
}

// SendImage publishes an image send command with a caption.
func (c *Client) SendImage(_ context.Context, conversationID, caption, image string) error {
	return c.publish(SubjectSendImage, ImageCommand{ConversationID: conversationID, Caption: caption, Image: image})
}

func (c *Client) publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
