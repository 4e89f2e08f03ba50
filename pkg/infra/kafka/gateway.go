// Package kafka はKafkaトピックからアラートと価格を読む market.FeedGateway です
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/feed"
)

// Config はKafkaフィードの設定です
type Config struct {
	Brokers    string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID    string `envconfig:"KAFKA_GROUP_ID" default:"dashboard"`
	AlertTopic string `envconfig:"KAFKA_ALERT_TOPIC" default:"alerts"`
	PriceTopic string `envconfig:"KAFKA_PRICE_TOPIC" default:"prices"`
}

func (c Config) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// MessageReader は kafka.Reader のうち使う部分だけを抜き出したものです
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Gateway は market.FeedGateway の実装です
type Gateway struct {
	alerts     MessageReader
	prices     MessageReader
	retryDelay time.Duration
	counter    feed.Counter
	logger     *zap.Logger
}

func NewGateway(alerts, prices MessageReader, retryDelay time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		alerts:     alerts,
		prices:     prices,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// NewReaders は設定からアラート用と価格用の kafka.Reader を作ります
func NewReaders(cfg Config) (alerts, prices *kafka.Reader, err error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, nil, fmt.Errorf("no kafka brokers configured")
	}

	newReader := func(topic string) *kafka.Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		})
	}
	return newReader(cfg.AlertTopic), newReader(cfg.PriceTopic), nil
}

// Start は2本の読み込みループを起動します。ctx が終了するとリーダーを閉じ、両チャネルを閉じます
func (g *Gateway) Start(ctx context.Context) (<-chan market.Tick, <-chan market.Alert, error) {
	sink := feed.NewSink(&g.counter, g.logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g.readLoop(ctx, "alerts", g.alerts, sink.DeliverAlert)
	}()
	go func() {
		defer wg.Done()
		g.readLoop(ctx, "prices", g.prices, sink.DeliverTick)
	}()

	go func() {
		wg.Wait()
		g.counter.SetConnected(false)
		if err := g.alerts.Close(); err != nil {
			g.logger.Warn("closing kafka alert reader", zap.Error(err))
		}
		if err := g.prices.Close(); err != nil {
			g.logger.Warn("closing kafka price reader", zap.Error(err))
		}
		sink.Close()
	}()

	return sink.Ticks(), sink.Alerts(), nil
}

func (g *Gateway) readLoop(ctx context.Context, name string, r MessageReader, deliver func(context.Context, []byte) bool) {
	g.logger.Info("kafka reader started", zap.String("channel", name))
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			g.counter.SetConnected(false)
			g.logger.Error("kafka read error", zap.String("channel", name), zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(g.retryDelay):
			}
			continue
		}

		g.counter.SetConnected(true)
		if !deliver(ctx, m.Value) {
			return
		}
	}
}

func (g *Gateway) Status() market.FeedStatus {
	return g.counter.Status("kafka")
}
