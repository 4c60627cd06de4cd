// Package notify publishes site events for other systems to act on, such as
// forwarding new contact requests to the sales inbox.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "corpsite.contact.submitted"

// ContactEvent is published for every stored contact submission.
type ContactEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier delivers site events.
type Notifier interface {
	ContactSubmitted(ctx context.Context, ev ContactEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) ContactSubmitted(context.Context, ContactEvent) error { return nil }
func (Nop) Close() error                                         { return nil }

type publisher interface {
	Publish(subj string, data []byte) error
}

// NATS publishes events as JSON on a NATS subject.
type NATS struct {
	pub     publisher
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATS connects to the NATS server at url. The connection reconnects on
// its own; publishes while disconnected are buffered by the client.
func NewNATS(url, subject string, logger *slog.Logger) (*NATS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("corpsite"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{pub: conn, conn: conn, subject: subject, logger: logger}, nil
}

func (n *NATS) ContactSubmitted(ctx context.Context, ev ContactEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev.Type = "contact.submitted"
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal contact event: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	n.logger.Debug("contact event published", "subject", n.subject, "id", ev.ID)
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
