// Package analytics records product events. Sinks are fire-and-forget: a
// failing sink is logged and never fails the caller.
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"go-referral/log"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type Params map[string]any

type Sink interface {
	LogEvent(ctx context.Context, name string, params Params)
}

// Log writes events to the structured log.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) LogEvent(ctx context.Context, name string, params Params) {
	l.logger.WithFields(logrus.Fields(params)).WithField("event", name).Info("analytics event")
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes each event as JSON on analytics.<name>.
type NATS struct {
	conn   publisher
	logger *log.Logger
}

func NewNATS(conn *nats.Conn, logger *log.Logger) *NATS {
	return &NATS{conn: conn, logger: logger}
}

// Connect dials url and returns a NATS sink using the connection.
func Connect(url string, logger *log.Logger) (*NATS, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("referral-analytics"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, err
	}
	return NewNATS(nc, logger), nc, nil
}

type event struct {
	Name   string    `json:"name"`
	Params Params    `json:"params,omitempty"`
	At     time.Time `json:"at"`
}

func (n *NATS) LogEvent(ctx context.Context, name string, params Params) {
	data, err := json.Marshal(event{Name: name, Params: params, At: time.Now().UTC()})
	if err != nil {
		n.logger.WithError(err).WithField("event", name).Warn("analytics: encode event")
		return
	}
	if err := n.conn.Publish("analytics."+name, data); err != nil {
		n.logger.WithError(err).WithField("event", name).Warn("analytics: publish event")
	}
}

// Multi fans an event out to every sink.
type Multi []Sink

func (m Multi) LogEvent(ctx context.Context, name string, params Params) {
	for _, s := range m {
		s.LogEvent(ctx, name, params)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, Params) {}
