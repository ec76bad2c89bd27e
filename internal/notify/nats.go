package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject backfill events are published on.
const DefaultSubject = "crier.articles.backfilled"

// Event is the JSON payload published for each backfilled date.
type Event struct {
	Date        string    `json:"date"`
	ContentKeys []string  `json:"content_keys"`
	Count       int       `json:"count"`
	PublishedAt time.Time `json:"published_at"`
}

// Connect dials a NATS server with unlimited reconnects.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS connection lost", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSNotifier publishes an Event per backfill.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// NewNATSNotifier publishes on subject (DefaultSubject when empty). The
// caller owns conn.
func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: conn, subject: subject, now: time.Now}
}

func (n *NATSNotifier) ArticlesBackfilled(_ context.Context, b Backfill) error {
	data, err := json.Marshal(n.event(b))
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish backfill for %s: %w", b.Date, err)
	}
	return nil
}

func (n *NATSNotifier) event(b Backfill) Event {
	keys := make([]string, len(b.Articles))
	for i, a := range b.Articles {
		keys[i] = a.ContentKey
	}
	return Event{
		Date:        b.Date,
		ContentKeys: keys,
		Count:       len(keys),
		PublishedAt: n.now().UTC(),
	}
}

// Subscribe calls handle for every backfill event on subject until ctx is
// cancelled. Malformed messages are logged and dropped.
func Subscribe(ctx context.Context, conn *nats.Conn, subject string, logger *slog.Logger, handle func(context.Context, Event)) error {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan *nats.Msg, 64)
	sub, err := conn.ChanSubscribe(subject, ch)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			var ev Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				logger.Warn("dropping malformed backfill event", "subject", msg.Subject, "error", err)
				continue
			}
			handle(ctx, ev)
		}
	}
}
