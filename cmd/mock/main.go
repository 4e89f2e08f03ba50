// cmd/mock/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/config"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/feed"
	"github.com/r-umemoto/anomaly-dashboard/pkg/infra/stomp/stomptest"
	"github.com/r-umemoto/anomaly-dashboard/pkg/logger"
)

// 前回からの上昇率がこれを超えたらアラートを出す (%)
const alertThreshold = 2.0

type instrument struct {
	symbol string
	base   float64
}

var instruments = []instrument{
	{symbol: "BTC/USD", base: 65000},
	{symbol: "ETH/USD", base: 3200},
	{symbol: "SOL/USD", base: 145},
	{symbol: "XRP/USD", base: 0.52},
	{symbol: "DOGE/USD", base: 0.12},
}

// テスト用の価格シナリオ（波）。基準価格に掛ける倍率です
// 1.0 から少し沈み、急騰してアラートを出し、また戻ってくる波
var priceWave = []float64{
	1.000, 0.998, 0.995, 0.991,
	0.990, 0.993, 0.997,
	1.030, // 🎯 ここで上昇率が閾値を超えてアラートが出るはず
	1.034, 1.020, 1.008,
	1.002, 0.999,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := stomptest.NewBroker("/ws-alerts")
	srv := &http.Server{Addr: cfg.Mock.Addr, Handler: broker}

	go func() {
		zl.Info("[Mock] モックフィードが待機中", zap.String("addr", cfg.Mock.Addr), zap.String("path", "/ws-alerts"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("[Mock] サーバー起動エラー", zap.Error(err))
			stop()
		}
	}()

	run(ctx, broker, cfg.Stomp.PriceTopic, cfg.Stomp.AlertTopic, cfg.Mock.Interval, zl)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	broker.DropAll()
	_ = srv.Shutdown(shutdownCtx)
	zl.Info("[Mock] 停止しました")
}

// run は interval ごとに全銘柄の価格を配信し、急騰した銘柄のアラートを出します
func run(ctx context.Context, broker *stomptest.Broker, priceTopic, alertTopic string, interval time.Duration, zl *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := make(map[string]float64, len(instruments))
	tick := 0

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for i, ins := range instruments {
				// 銘柄ごとに波の位相をずらす
				factor := priceWave[(tick+i*3)%len(priceWave)]
				price := round(ins.base*factor, 6)
				ts := now.UnixMilli()

				body, _ := json.Marshal(feed.PricePayload{Symbol: ins.symbol, Price: &price, Timestamp: ts})
				delivered := broker.Publish(priceTopic, body)
				zl.Debug("🌊 モック相場変動",
					zap.String("symbol", ins.symbol),
					zap.Float64("price", price),
					zap.Int("subscribers", delivered))

				if last, ok := prev[ins.symbol]; ok {
					increase := round((price-last)/last*100, 4)
					if increase > alertThreshold {
						symbol := ins.symbol
						alert, _ := json.Marshal(feed.AlertPayload{
							Symbol:             &symbol,
							LatestPrice:        &price,
							PercentageIncrease: &increase,
							Timestamp:          &ts,
						})
						broker.Publish(alertTopic, alert)
						zl.Info("🚨 モックアラート",
							zap.String("symbol", symbol),
							zap.Float64("increase", increase))
					}
				}
				prev[ins.symbol] = price
			}
			tick++
		}
	}
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
