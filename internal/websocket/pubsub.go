package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// PubSubProvider определяет интерфейс для провайдеров публикации/подписки
type PubSubProvider interface {
	// Publish публикует сообщение в указанный канал
	Publish(channel string, message []byte) error

	// Subscribe подписывается на канал; the returned channel closes when ctx ends.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)

	Close() error
}

// NoOpPubSub is used when running a single instance.
type NoOpPubSub struct{}

func (p *NoOpPubSub) Publish(channel string, message []byte) error { return nil }

func (p *NoOpPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	msgCh := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(msgCh)
	}()
	return msgCh, nil
}

func (p *NoOpPubSub) Close() error { return nil }

// RedisPubSub реализует PubSubProvider с использованием Redis.
// The client is shared with the rest of the app and is not closed here.
type RedisPubSub struct {
	client redis.UniversalClient
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	subs   map[string]*redis.PubSub
}

// NewRedisPubSub создает Redis Pub/Sub провайдер, используя существующий UniversalClient.
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisPubSub")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("provided redis client failed ping check: %w", err)
	}

	pctx, pcancel := context.WithCancel(context.Background())
	return &RedisPubSub{client: client, ctx: pctx, cancel: pcancel, subs: make(map[string]*redis.PubSub)}, nil
}

func (p *RedisPubSub) Publish(channel string, message []byte) error {
	if err := p.client.Publish(p.ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}
	return nil
}

func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[channel]; ok {
		return nil, fmt.Errorf("already subscribed to %s", channel)
	}

	pubsub := p.client.Subscribe(p.ctx, channel)
	if _, err := pubsub.Receive(p.ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to Redis channel %s: %w", channel, err)
	}
	p.subs[channel] = pubsub

	msgCh := make(chan []byte, 100)
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.subs, channel)
			p.mu.Unlock()
			pubsub.Close()
			close(msgCh)
			log.Debug().Str("channel", channel).Msg("[RedisPubSub] Unsubscribed")
		}()

		redisCh := pubsub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case msgCh <- []byte(msg.Payload):
				case <-p.ctx.Done():
					return
				case <-ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return msgCh, nil
}

// Close отменяет все активные подписки
func (p *RedisPubSub) Close() error {
	p.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	var lastErr error
	for channel, sub := range p.subs {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("[RedisPubSub] Error closing subscription")
			lastErr = err
		}
	}
	return lastErr
}
