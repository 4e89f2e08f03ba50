// Package stomp はSTOMP over websocket(SockJS)のフィードを market.FeedGateway として提供します
package stomp

import (
	"context"

	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/feed"
)

const (
	alertSubscriptionID = "sub-0"
	priceSubscriptionID = "sub-1"
)

// Gateway は market.FeedGateway の実装です
type Gateway struct {
	cfg     Config
	client  *Client
	counter feed.Counter
	logger  *zap.Logger
}

func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	g := &Gateway{cfg: cfg, logger: logger}
	g.client = NewClient(cfg, &g.counter, logger)
	return g
}

// Start は接続ループを裏側で起動し、価格とアラートのチャネルを返します。
// ctx が終了すると両チャネルが一緒に閉じます
func (g *Gateway) Start(ctx context.Context) (<-chan market.Tick, <-chan market.Alert, error) {
	// 設定ミスは再接続しても直らないので先に弾く
	if err := g.cfg.Validate(); err != nil {
		return nil, nil, err
	}

	sink := feed.NewSink(&g.counter, g.logger)
	subs := []Subscription{
		{ID: alertSubscriptionID, Destination: g.cfg.AlertTopic, Handle: sink.DeliverAlert},
		{ID: priceSubscriptionID, Destination: g.cfg.PriceTopic, Handle: sink.DeliverTick},
	}

	go func() {
		defer sink.Close()
		g.client.Run(ctx, subs)
	}()

	return sink.Ticks(), sink.Alerts(), nil
}

func (g *Gateway) Status() market.FeedStatus {
	return g.counter.Status("stomp")
}
