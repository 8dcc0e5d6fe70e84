package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"atomdeck/api/internal/operation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	OperationChannelPrefix  = "atomdeck:ops:"
	SuggestionChannelPrefix = "atomdeck:suggestions:"
	SuggestionPattern       = SuggestionChannelPrefix + "*"
)

func OperationChannel(presentationID string) string {
	return OperationChannelPrefix + presentationID
}

func SuggestionChannel(presentationID string) string {
	return SuggestionChannelPrefix + presentationID
}

// RedisSink broadcasts records to other sessions over Redis pub/sub.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Publish(ctx, OperationChannel(rec.PresentationID), payload).Err(); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

// ReplayFunc executes a suggested operation against a presentation through
// the same entry point user operations take.
type ReplayFunc func(ctx context.Context, presentationID string, op operation.AtomicOperation) error

// SuggestionSubscriber replays operations published on the suggestion channels.
type SuggestionSubscriber struct {
	client *redis.Client
	replay ReplayFunc
	log    *zap.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

func NewSuggestionSubscriber(client *redis.Client, replay ReplayFunc, logger *zap.Logger) *SuggestionSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionSubscriber{
		client: client,
		replay: replay,
		log:    logger.Named("suggestions"),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the subscription is confirmed by Redis.
func (s *SuggestionSubscriber) Ready() <-chan struct{} { return s.ready }

// Run blocks until ctx is done or the subscription fails.
func (s *SuggestionSubscriber) Run(ctx context.Context) error {
	pubsub := s.client.PSubscribe(ctx, SuggestionPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe suggestions: %w", err)
	}
	s.readyOnce.Do(func() { close(s.ready) })

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *SuggestionSubscriber) handle(ctx context.Context, msg *redis.Message) {
	presentationID := strings.TrimPrefix(msg.Channel, SuggestionChannelPrefix)
	var op operation.AtomicOperation
	if err := json.Unmarshal([]byte(msg.Payload), &op); err != nil {
		s.log.Warn("decode suggestion", zap.String("presentation_id", presentationID), zap.Error(err))
		return
	}
	if err := s.replay(ctx, presentationID, op); err != nil {
		s.log.Warn("replay suggestion",
			zap.String("presentation_id", presentationID),
			zap.String("op", string(op.Op)),
			zap.String("type", op.Type),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("suggestion replayed", zap.String("presentation_id", presentationID), zap.String("op", string(op.Op)))
}
