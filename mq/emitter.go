package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CampEventsChannel is the Redis pub/sub channel carrying CampEvent JSON.
const CampEventsChannel = "camp-events"

const (
	EventRegistrationCreated = "registration.created"
	EventRegistrationUpdated = "registration.updated"
	EventCampUpdated         = "camp.updated"
)

// CampEvent describes a change to a camp's registrations or capacity.
type CampEvent struct {
	Type           string    `json:"type"`
	CampID         string    `json:"campId"`
	RegistrationID string    `json:"registrationId,omitempty"`
	Status         string    `json:"status,omitempty"`
	ActualDonors   int       `json:"actualDonors"`
	ExpectedDonors int       `json:"expectedDonors"`
	At             time.Time `json:"at"`
}

// Publisher emits camp events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev CampEvent) error
}

// Emit publishes ev and logs instead of failing the caller; events are advisory.
func Emit(ctx context.Context, p Publisher, ev CampEvent) {
	if p == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", ev.Type).Str("campId", ev.CampID).Msg("publish camp event")
	}
}

// RedisBus publishes and consumes camp events over Redis pub/sub.
type RedisBus struct {
	client  *redis.Client
	channel string
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, channel: CampEventsChannel}
}

func (b *RedisBus) Publish(ctx context.Context, ev CampEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal camp event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish camp event: %w", err)
	}
	return nil
}

// Subscribe delivers events to handle until ctx is cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, handle func(CampEvent)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	log.Info().Str("channel", b.channel).Msg("listening for camp events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				log.Warn().Err(err).Msg("drop malformed camp event")
				continue
			}
			handle(ev)
		}
	}
}

// Decode parses a CampEvent payload.
func Decode(data []byte) (CampEvent, error) {
	var ev CampEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return CampEvent{}, fmt.Errorf("decode camp event: %w", err)
	}
	if ev.CampID == "" {
		return CampEvent{}, fmt.Errorf("decode camp event: missing campId")
	}
	return ev, nil
}

// Direct hands events straight to a local handler when no broker is configured.
type Direct func(CampEvent)

func (d Direct) Publish(_ context.Context, ev CampEvent) error {
	d(ev)
	return nil
}
