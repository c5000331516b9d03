// Package publish pushes extracted records to NATS with trace context in
// the message headers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"news-extractor/internal/observability"
	"news-extractor/internal/scraper"
)

// headerCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Connect dials NATS with reconnect logging. maxReconnects < 0 retries forever.
func Connect(url, name string, maxReconnects int, logger *observability.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *observability.Logger
}

func NewPublisher(nc *nats.Conn, subject string, logger *observability.Logger) *Publisher {
	return &Publisher{nc: nc, subject: subject, logger: logger}
}

// Subject is the subject a record of the given medium goes to:
// <base>.<medium>, with characters NATS treats specially replaced.
func (p *Publisher) Subject(medium string) string {
	if medium == "" {
		return p.subject
	}
	return p.subject + "." + subjectToken(medium)
}

// Publish sends the record JSON. Trace context from ctx is injected into
// the message headers.
func (p *Publisher) Publish(ctx context.Context, rec *scraper.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.URL, err)
	}
	msg := &nats.Msg{
		Subject: p.Subject(rec.Medium),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Nats-Msg-Id", rec.URL)
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", rec.URL, err)
	}
	p.logger.Debug("Record published", "subject", msg.Subject, "url", rec.URL)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
