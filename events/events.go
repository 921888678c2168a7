// Package events publishes change notifications for inventory objects after
// their transaction committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// Event types.
const (
	ObjectCreated = "object.created"
	ObjectUpdated = "object.updated"
	ObjectDeleted = "object.deleted"
	ObjectMoved   = "object.moved"
)

// Event describes a committed change of an inventory object.
type Event struct {
	Type      string                   `json:"type"`
	ClassName string                   `json:"className"`
	ObjectID  string                   `json:"objectId"`
	Name      string                   `json:"name,omitempty"`
	Time      time.Time                `json:"time"`
	Changes   *models.ChangeDescriptor `json:"changes,omitempty"`
}

// New creates an event stamped with the current time.
func New(typ string, obj models.ObjectLight) Event {
	return Event{Type: typ, ClassName: obj.ClassName, ObjectID: obj.ID, Name: obj.Name, Time: time.Now()}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards all events.
var Noop Publisher = noop{}

type noop struct{}

func (noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	lock   sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Event(nil), r.events...)
}

// NATSPublisher publishes events as JSON on the subject <prefix>.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	owned  bool
}

// Connect dials a NATS server and returns a publisher owning the connection.
func Connect(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("neoinventory"))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to NATS at %s: %w", url, err)
	}
	p := NewNATSPublisher(conn, prefix)
	p.owned = true
	return p, nil
}

// NewNATSPublisher publishes on an existing connection.
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "neoinventory"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject events of a type are published on.
func (p *NATSPublisher) Subject(typ string) string {
	return p.prefix + "." + typ
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.Subject(ev.Type), data); err != nil {
		return fmt.Errorf("cannot publish %s event: %w", ev.Type, err)
	}
	log.Trace("published {{type}} for {{id}}", "type", ev.Type, "id", ev.ObjectID)
	return nil
}

// Close drains the connection if the publisher created it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.conn.Drain()
}
