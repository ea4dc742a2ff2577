package natsbus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/nats-io/nats.go"
)

// Handler processes one message payload.
type Handler func(ctx context.Context, data []byte) error

// Publisher publishes raw payloads to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Subscriber registers a handler on a subject and returns a function that removes it.
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler Handler) (func() error, error)
}

// Client wraps a NATS connection shared by the board publisher and subscribers.
type Client struct {
	conn *nats.Conn
	logg *logger.Logger
}

// New connects to NATS with reconnect handling.
func New(ctx context.Context, cfg config.NATSConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("nats url is required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	conn, err := nats.Connect(cfg.URL, options(ctx, cfg, logg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logg.Info(logg.WithField(ctx, "nats_url", conn.ConnectedUrlRedacted()), "nats connection established")
	return &Client{conn: conn, logg: logg}, nil
}

func options(ctx context.Context, cfg config.NATSConfig, logg *logger.Logger) []nats.Option {
	ctx = context.WithoutCancel(ctx)
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logg.Error(ctx, "nats disconnected", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logg.Info(logg.WithField(ctx, "nats_url", c.ConnectedUrlRedacted()), "nats reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logg.Error(logg.WithField(ctx, "subject", subject), "nats async error", err)
		}),
	}
	if name := strings.TrimSpace(cfg.ClientName); name != "" {
		opts = append(opts, nats.Name(name))
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	return opts
}

// Publish sends data on subject. Delivery is at-most-once.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	if c == nil || c.conn == nil {
		return errors.New("nats client not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.Publish(subject, data)
}

// Subscribe runs handler for every message on subject. Handler errors are logged.
func (c *Client) Subscribe(ctx context.Context, subject string, handler Handler) (func() error, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("nats client not initialized")
	}
	if handler == nil {
		return nil, errors.New("handler required")
	}
	ctx = context.WithoutCancel(ctx)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			c.logg.Error(c.logg.WithField(ctx, "subject", msg.Subject), "nats handler failed", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub.Unsubscribe, nil
}

// Ping flushes the connection as a health check.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("nats client not initialized")
	}
	if !c.conn.IsConnected() {
		return fmt.Errorf("nats status %s", c.conn.Status())
	}
	return c.conn.FlushWithContext(ctx)
}

// Close drains subscriptions and closes the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

// Subject joins non-empty parts with dots after replacing characters NATS treats as
// separators or wildcards.
func Subject(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, subjectReplacer.Replace(part))
	}
	return strings.Join(clean, ".")
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
