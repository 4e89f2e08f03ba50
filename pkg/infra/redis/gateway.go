// Package redis はRedisのPub/Subからアラートと価格を受け取る market.FeedGateway です
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/feed"
)

// Config はRedisフィードの設定です
type Config struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD"`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	AlertChannel string `envconfig:"REDIS_ALERT_CHANNEL" default:"alerts"`
	PriceChannel string `envconfig:"REDIS_PRICE_CHANNEL" default:"prices"`
}

func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Gateway は market.FeedGateway の実装です
type Gateway struct {
	client     *redis.Client
	cfg        Config
	retryDelay time.Duration
	counter    feed.Counter
	logger     *zap.Logger
}

func NewGateway(client *redis.Client, cfg Config, retryDelay time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{client: client, cfg: cfg, retryDelay: retryDelay, logger: logger}
}

// Start は購読ループを裏側で起動し、価格とアラートのチャネルを返します。
// 最初の購読に失敗したら retryDelay ごとに再試行し、購読後の再接続は go-redis の PubSub に任せます
func (g *Gateway) Start(ctx context.Context) (<-chan market.Tick, <-chan market.Alert, error) {
	sink := feed.NewSink(&g.counter, g.logger)

	go func() {
		defer sink.Close()

		ps, ok := g.subscribeWithRetry(ctx)
		if !ok {
			return
		}
		g.consume(ctx, ps, sink)
	}()

	return sink.Ticks(), sink.Alerts(), nil
}

func (g *Gateway) subscribeWithRetry(ctx context.Context) (*redis.PubSub, bool) {
	for {
		ps, err := g.subscribe(ctx)
		if err == nil {
			return ps, true
		}
		if ctx.Err() != nil {
			return nil, false
		}

		g.logger.Warn("redis subscribe failed, retrying",
			zap.Error(err),
			zap.Duration("delay", g.retryDelay))

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(g.retryDelay):
		}
	}
}

// subscribe は両チャンネルの購読が確定するまで待ちます
func (g *Gateway) subscribe(ctx context.Context) (*redis.PubSub, error) {
	ps := g.client.Subscribe(ctx, g.cfg.AlertChannel, g.cfg.PriceChannel)
	for confirmed := 0; confirmed < 2; {
		msg, err := ps.Receive(ctx)
		if err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("redis subscribe: %w", err)
		}
		if _, ok := msg.(*redis.Subscription); ok {
			confirmed++
		}
	}

	g.counter.SetConnected(true)
	g.logger.Info("redis subscribed",
		zap.String("alerts", g.cfg.AlertChannel),
		zap.String("prices", g.cfg.PriceChannel))
	return ps, nil
}

func (g *Gateway) consume(ctx context.Context, ps *redis.PubSub, sink *feed.Sink) {
	defer g.counter.SetConnected(false)

	msgs := ps.Channel()
	stop := context.AfterFunc(ctx, func() { _ = ps.Close() })
	defer func() {
		if stop() {
			_ = ps.Close()
		}
	}()

	for msg := range msgs {
		var ok bool
		switch msg.Channel {
		case g.cfg.AlertChannel:
			ok = g.deliver(ctx, sink.DeliverAlert, msg.Payload)
		case g.cfg.PriceChannel:
			ok = g.deliver(ctx, sink.DeliverTick, msg.Payload)
		default:
			ok = true
		}
		if !ok {
			return
		}
	}
}

func (g *Gateway) deliver(ctx context.Context, fn func(context.Context, []byte) bool, payload string) bool {
	if ctx.Err() != nil {
		return false
	}
	return fn(ctx, []byte(payload))
}

func (g *Gateway) Status() market.FeedStatus {
	return g.counter.Status("redis")
}
