package dispatch

import (
	"encoding/json"
	"expvar"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	metricEventsSent    = expvar.NewInt("dispatch_events_sent_total")
	metricEventsDropped = expvar.NewInt("dispatch_events_dropped_total")
)

type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Dispatcher owns one buffered outbox per attached connection. A single
// writer drains each outbox, so events for one connection arrive in the
// order Notify was called. Delivery is best-effort: a missing or full outbox
// drops the event and logs it.
type Dispatcher struct {
	mu       sync.Mutex
	size     int
	outboxes map[string]chan []byte
}

func New(outboxSize int) *Dispatcher {
	if outboxSize <= 0 {
		outboxSize = 32
	}
	return &Dispatcher{size: outboxSize, outboxes: map[string]chan []byte{}}
}

// Attach creates the outbox for connID. Attaching an id twice replaces (and
// closes) the previous outbox.
func (d *Dispatcher) Attach(connID string) <-chan []byte {
	ch := make(chan []byte, d.size)
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.outboxes[connID]; ok {
		close(old)
	}
	d.outboxes[connID] = ch
	return ch
}

func (d *Dispatcher) Detach(connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.outboxes[connID]; ok {
		close(ch)
		delete(d.outboxes, connID)
	}
}

func (d *Dispatcher) Attached(connID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.outboxes[connID]
	return ok
}

// Notify delivers one event to exactly the given connections.
func (d *Dispatcher) Notify(conns []string, event string, payload any) {
	msg, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("dispatch_marshal_failed")
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, connID := range lo.Uniq(conns) {
		ch, ok := d.outboxes[connID]
		if !ok {
			metricEventsDropped.Add(1)
			log.Debug().Str("conn_id", connID).Str("event", event).Msg("dispatch_drop_detached")
			continue
		}
		select {
		case ch <- msg:
			metricEventsSent.Add(1)
		default:
			metricEventsDropped.Add(1)
			log.Warn().Str("conn_id", connID).Str("event", event).Msg("dispatch_drop_outbox_full")
		}
	}
}
