package exam

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/theory-exam/pkg/http/ws"
)

// Event kinds.
const (
	EventFinished  = "finished"
	EventRestarted = "restarted"
)

// DefaultEventsChannel is the Redis Pub/Sub channel for exam events.
const DefaultEventsChannel = "exam:events"

// Event announces a session state change to every API instance.
type Event struct {
	Type    string    `json:"type"`
	ExamID  uuid.UUID `json:"exam_id"`
	UserID  uuid.UUID `json:"user_id"`
	Attempt int       `json:"attempt"`
	Result  *Result   `json:"result,omitempty"`
}

// Publisher sends exam events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// RedisPublisher publishes events on a Pub/Sub channel.
type RedisPublisher struct {
	redis   *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &RedisPublisher{redis: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.redis.Publish(ctx, p.channel, data).Err()
}

// RoomBroadcaster is the part of the websocket hub events are forwarded to.
type RoomBroadcaster interface {
	BroadcastToRoom(roomID uuid.UUID, msg ws.Message) error
}

// Broadcaster listens for exam events and forwards them to connected clients.
type Broadcaster struct {
	redis   *redis.Client
	hub     RoomBroadcaster
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a Pub/Sub powered exam event broadcaster.
func NewBroadcaster(client *redis.Client, hub RoomBroadcaster, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &Broadcaster{
		redis:   client,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "exam_broadcaster").Logger(),
	}
}

// Run subscribes to the event channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode exam event")
		return
	}

	msg, ok := eventMessage(evt)
	if !ok {
		return
	}
	if err := b.hub.BroadcastToRoom(evt.ExamID, msg); err != nil {
		b.logger.Debug().Err(err).Str("exam_id", evt.ExamID.String()).Msg("exam event not delivered")
	}
}

// eventMessage converts an event into its websocket message.
func eventMessage(evt Event) (ws.Message, bool) {
	var (
		msg ws.Message
		err error
	)
	switch evt.Type {
	case EventFinished:
		if evt.Result == nil {
			return ws.Message{}, false
		}
		msg, err = ws.NewMessage(ws.TypeExamFinished, finishedPayload(evt.ExamID, evt.Attempt, *evt.Result))
	case EventRestarted:
		msg, err = ws.NewMessage(ws.TypeExamRestart, ws.ExamRestartPayload{
			ExamID:  evt.ExamID.String(),
			Attempt: evt.Attempt,
		})
	default:
		return ws.Message{}, false
	}
	return msg, err == nil
}

func finishedPayload(id uuid.UUID, attempt int, res Result) ws.ExamFinishedPayload {
	return ws.ExamFinishedPayload{
		ExamID:   id.String(),
		Attempt:  attempt,
		Score:    res.Score,
		MaxScore: res.MaxScore,
		Correct:  res.Correct,
		Total:    res.Total,
		Expired:  res.Expired,
	}
}
