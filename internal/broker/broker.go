package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"dice-duel/internal/match"
)

const defaultBuffer = 1024

// Publisher is the part of *nats.Conn the broker needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Envelope struct {
	Type     string `json:"type"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data"`
}

type message struct {
	subject string
	env     Envelope
}

// Broker publishes match lifecycle events to NATS. Observer callbacks only
// enqueue; a single worker publishes so callers never wait on the network.
type Broker struct {
	pub     Publisher
	subject string
	jobs    chan message
	done    chan struct{}

	mu      sync.Mutex
	started bool
}

func New(pub Publisher, subject string, buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if subject == "" {
		subject = "dice.match"
	}
	return &Broker{
		pub:     pub,
		subject: subject,
		jobs:    make(chan message, buffer),
		done:    make(chan struct{}),
	}
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats_disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats_reconnected")
		}),
	)
}

// Start runs the publish loop until ctx is done.
func (b *Broker) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				b.drain()
				return
			case msg := <-b.jobs:
				b.publish(msg)
			}
		}
	}()
}

// Done is closed once the publish loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) drain() {
	for {
		select {
		case msg := <-b.jobs:
			b.publish(msg)
		default:
			return
		}
	}
}

func (b *Broker) publish(msg message) {
	data, err := json.Marshal(msg.env)
	if err != nil {
		metricPublishFailed.Add(1)
		log.Error().Err(err).Str("subject", msg.subject).Msg("broker_marshal_failed")
		return
	}
	if err := b.pub.Publish(msg.subject, data); err != nil {
		metricPublishFailed.Add(1)
		log.Warn().Err(err).Str("subject", msg.subject).Msg("broker_publish_failed")
		return
	}
	metricPublished.Add(1)
	metricQueueLen.Set(int64(len(b.jobs)))
}

func (b *Broker) enqueue(suffix, typ string, data any) {
	msg := message{
		subject: b.subject + "." + suffix,
		env:     Envelope{Type: typ, ServerTS: time.Now().UnixMilli(), Data: data},
	}
	select {
	case b.jobs <- msg:
		metricQueueLen.Set(int64(len(b.jobs)))
	default:
		metricDropped.Add(1)
		log.Warn().Str("subject", msg.subject).Msg("broker_queue_full")
	}
}

func (b *Broker) OnMatchStarted(ev match.MatchStarted) {
	b.enqueue("started", "match_started", ev)
}

func (b *Broker) OnMatchClosed(ev match.MatchClosed) {
	b.enqueue("closed", "match_closed", ev)
}

func (b *Broker) OnReconciliation(ev match.ReconciliationRequired) {
	b.enqueue("reconciliation", "reconciliation_required", ev)
}
