package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/relay"
)

type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	// InactiveThreshold removes the consumer after the gateway is gone.
	InactiveThreshold time.Duration
	MaxReconnects     int
	ReconnectWait     time.Duration
}

func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:               nats.DefaultURL,
		StreamName:        "SCOREBOARD",
		ConsumerName:      "scoreboard-gateway",
		SubjectFilter:     "scoreboard.sessions.>",
		MaxDeliver:        3,
		AckWait:           10 * time.Second,
		MaxAckPending:     100,
		InactiveThreshold: time.Hour,
		MaxReconnects:     -1,
		ReconnectWait:     2 * time.Second,
	}
}

// EventConsumer reads the SCOREBOARD stream and broadcasts each court's
// snapshots to its viewers.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig

	// lastSeq is the newest stream sequence broadcast per court. Only the
	// Start loop touches it.
	lastSeq map[string]uint64
}

var _ EventSource = (*EventConsumer)(nil)

func NewEventConsumer(cm *ConnectionManager, config JetStreamConsumerConfig) (*EventConsumer, error) {
	nc, err := nats.Connect(config.URL, relay.NatsOptions(config.MaxReconnects, config.ReconnectWait)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		js:                js,
		config:            config,
		lastSeq:           make(map[string]uint64),
	}
	if err := ec.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              ec.config.ConsumerName,
		Durable:           ec.config.ConsumerName,
		Description:       "Scoreboard websocket gateway",
		FilterSubject:     ec.config.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverLastPerSubjectPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        ec.config.MaxDeliver,
		AckWait:           ec.config.AckWait,
		MaxAckPending:     ec.config.MaxAckPending,
		InactiveThreshold: ec.config.InactiveThreshold,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("JetStream consumer ready")

	ec.consumer = consumer
	return nil
}

func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.processMessage(msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				// a malformed snapshot will not parse on redelivery either
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to TERM message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// processMessage broadcasts one snapshot. A redelivered message that is
// older than what viewers already have is acknowledged and dropped.
func (ec *EventConsumer) processMessage(msg jetstream.Msg) error {
	ev, err := decodeEvent(msg.Data(), msg.Headers().Get(relay.HeaderCourt))
	if err != nil {
		return err
	}
	if meta, err := msg.Metadata(); err == nil && !ec.advance(ev.Court, meta.Sequence.Stream) {
		log.Debug().
			Str("court", ev.Court).
			Uint64("sequence", meta.Sequence.Stream).
			Msg("skipping stale scoreboard event")
		return nil
	}
	ec.connectionManager.Broadcast(ev)
	return nil
}

func (ec *EventConsumer) advance(court string, seq uint64) bool {
	if seq <= ec.lastSeq[court] {
		return false
	}
	ec.lastSeq[court] = seq
	return true
}

// decodeEvent parses a published event, taking the court from the message
// header when the body has none.
func decodeEvent(data []byte, headerCourt string) (*ScoreboardEvent, error) {
	var ev ScoreboardEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal scoreboard event: %w", err)
	}
	if ev.Court == "" {
		ev.Court = headerCourt
	}
	if ev.Court == "" {
		return nil, fmt.Errorf("scoreboard event %s has no court", ev.ID)
	}
	switch ev.Type {
	case relay.EventTypeSessionUpdated, relay.EventTypeSessionCleared:
	default:
		return nil, fmt.Errorf("unknown event type: %s", ev.Type)
	}
	return &ev, nil
}

func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
